package storyboard

import (
	"regexp"
	"strings"
)

var (
	avoidMarker   = regexp.MustCompile(`(?i)avoid:`)
	includePrefix = regexp.MustCompile(`(?i)^\s*include:`)
)

// SpecificElements is the free-text include/avoid field split into lists.
type SpecificElements struct {
	Include []string `json:"include"`
	Avoid   []string `json:"avoid"`
}

// ParseSpecificElements splits text at the first "avoid:" (any case). The
// part before it, minus an optional "include:" prefix, is the include list and
// the part after it is the avoid list. Both are comma separated.
func ParseSpecificElements(text string) SpecificElements {
	include, avoid := text, ""
	if loc := avoidMarker.FindStringIndex(text); loc != nil {
		include, avoid = text[:loc[0]], text[loc[1]:]
	}
	include = includePrefix.ReplaceAllString(include, "")
	return SpecificElements{
		Include: splitList(include),
		Avoid:   splitList(avoid),
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// unionFold appends the items of every list in order, skipping items already
// present ignoring case.
func unionFold(lists ...[]string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, list := range lists {
		for _, item := range list {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			key := strings.ToLower(item)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return append([]string(nil), l...)
		}
	}
	return nil
}
