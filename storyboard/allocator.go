package storyboard

import (
	"fmt"
	"math"
)

const (
	defaultTotalDuration = 60
	defaultSceneCount    = 2

	trailerThreshold   = 60
	trailerMinScenes   = 3
	trailerShare       = 0.15
	trailerMinDuration = 30
	trailerMaxDuration = 89
	trailerMinShots    = 3
	trailerMaxShots    = 10

	// TrailerID is the fixed id of the trailer segment.
	TrailerID = "trailer-segment-main"

	jitterShare = 0.4
)

// SegmentPlan is the duration skeleton of one scene or of the trailer.
type SegmentPlan struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Number        int        `json:"number"`
	Pacing        PacingCode `json:"pacing"`
	Duration      int        `json:"duration"`
	ShotDurations []int      `json:"shotDurations"`
}

// ShotCount is the number of shot slots in the plan.
func (p SegmentPlan) ShotCount() int { return len(p.ShotDurations) }

// Allocation is the full project skeleton.
type Allocation struct {
	Trailer  *SegmentPlan  `json:"trailer,omitempty"`
	Scenes   []SegmentPlan `json:"scenes"`
	Fallback bool          `json:"fallback"`
}

// Allocate splits total seconds into scenes and shots. Scene durations come
// from configs when present; otherwise the recommendation band for total
// decides the scene count and every scene runs at Medium pacing.
func Allocate(total int, configs []SceneConfig, e Entropy) Allocation {
	if total <= 0 {
		total = defaultTotalDuration
	}
	var a Allocation
	if NeedsTrailer(total, configs) {
		t := TrailerPlan(total, e)
		a.Trailer = &t
	}

	scenes := configs
	if len(scenes) == 0 {
		a.Fallback = true
		scenes = fallbackSceneConfigs(total)
	}
	for i, cfg := range scenes {
		d := cfg.Duration
		if d <= 0 {
			d = max(1, total/len(scenes))
		}
		pacing := LookupPacing(cfg.Pacing)
		count := ShotCount(d, pacing)
		id := cfg.ID
		if id == "" {
			id = fmt.Sprintf("scene-%d", i+1)
		}
		title := cfg.Title
		if title == "" {
			title = fmt.Sprintf("Scene %d", i+1)
		}
		a.Scenes = append(a.Scenes, SegmentPlan{
			ID:            id,
			Title:         title,
			Number:        i + 1,
			Pacing:        pacing.Code,
			Duration:      d,
			ShotDurations: SplitDurations(d, count, pacing, e.For("alloc/"+id)),
		})
	}
	return a
}

// NeedsTrailer reports whether a trailer segment is built for the project.
func NeedsTrailer(total int, configs []SceneConfig) bool {
	return total > trailerThreshold && len(configs) >= trailerMinScenes
}

// TrailerDuration is 15% of total, clamped to [30, 89] seconds.
func TrailerDuration(total int) int {
	d := int(math.Floor(float64(total) * trailerShare))
	return clampInt(d, trailerMinDuration, trailerMaxDuration)
}

// TrailerPlan builds the trailer skeleton for total seconds.
func TrailerPlan(total int, e Entropy) SegmentPlan {
	pacing := LookupPacing(PacingFast)
	d := TrailerDuration(total)
	count := clampInt(int(math.Round(float64(d)/pacing.Average)), trailerMinShots, trailerMaxShots)
	return SegmentPlan{
		ID:            TrailerID,
		Number:        0,
		Pacing:        pacing.Code,
		Duration:      d,
		ShotDurations: SplitDurations(d, count, pacing, e.For("alloc/"+TrailerID)),
	}
}

// ShotCount is max(1, round(duration/average)).
func ShotCount(duration int, p Pacing) int {
	if p.Average <= 0 {
		return 1
	}
	return max(1, int(math.Round(float64(duration)/p.Average)))
}

// SplitDurations spreads duration over count slots. Every slot but the last
// aims at the remaining average with a jitter of ±20% of the pacing range
// width, clamped to the range, and never eats the last second of a slot still
// to come. The last slot takes whatever remains, at least one second, so it
// may fall outside the range.
func SplitDurations(duration, count int, p Pacing, r Rand) []int {
	if count < 1 {
		count = 1
	}
	if duration < 1 {
		duration = 1
	}
	out := make([]int, count)
	remaining := duration
	width := float64(p.Max - p.Min)
	for i := 0; i < count-1; i++ {
		left := count - i
		target := float64(remaining)/float64(left) + (r.Float64()-0.5)*width*jitterShare
		d := int(math.Round(math.Min(math.Max(target, float64(p.Min)), float64(p.Max))))
		if limit := remaining - (left - 1); d > limit {
			d = limit
		}
		if d < 1 {
			d = 1
		}
		out[i] = d
		remaining = max(0, remaining-d)
	}
	out[count-1] = max(1, remaining)
	return out
}

func fallbackSceneConfigs(total int) []SceneConfig {
	n := defaultSceneCount
	if rec, ok := RecommendScenes(total); ok {
		n = rec.MinScenes
	}
	configs := RecommendSceneConfigs(total, n)
	for i := range configs {
		configs[i].ID = fmt.Sprintf("fallback-scene-%d", i)
	}
	return configs
}

// RecommendSceneConfigs proposes n scenes whose durations add up to total.
// n <= 0 picks the low end of the recommendation band.
func RecommendSceneConfigs(total, n int) []SceneConfig {
	if total <= 0 {
		total = defaultTotalDuration
	}
	if n <= 0 {
		n = 1
		if rec, ok := RecommendScenes(total); ok {
			n = rec.MinScenes
		}
	}
	configs := make([]SceneConfig, n)
	for i := range configs {
		configs[i] = SceneConfig{
			ID:     fmt.Sprintf("scene-config-%d", i+1),
			Title:  fmt.Sprintf("Scene %d", i+1),
			Pacing: PacingMedium,
		}
	}
	spreadDurations(configs, total)
	return configs
}

// ResizeSceneConfigs grows or shrinks existing to n scenes, keeping the ids,
// titles and pacing of the scenes that survive, and re-spreads total.
func ResizeSceneConfigs(total int, existing []SceneConfig, n int) []SceneConfig {
	if n < 1 {
		n = 1
	}
	out := make([]SceneConfig, n)
	for i := range out {
		if i < len(existing) {
			out[i] = existing[i]
			continue
		}
		out[i] = SceneConfig{
			ID:     fmt.Sprintf("scene-config-%d", i+1),
			Title:  fmt.Sprintf("Scene %d", i+1),
			Pacing: PacingMedium,
		}
	}
	if total <= 0 {
		total = defaultTotalDuration
	}
	spreadDurations(out, total)
	return out
}

func spreadDurations(configs []SceneConfig, total int) {
	n := len(configs)
	base, remainder := total/n, total%n
	sum := 0
	for i := range configs {
		d := base
		if i < remainder {
			d++
		}
		configs[i].Duration = max(1, d)
		sum += configs[i].Duration
	}
	if diff := total - sum; diff != 0 {
		configs[n-1].Duration = max(1, configs[n-1].Duration+diff)
	}
}

// CheckDurations returns a warning when the configured scenes do not add up
// to the project length within one second. Generation proceeds regardless.
func CheckDurations(spec ProjectSpec) []string {
	if len(spec.SceneConfigurations) == 0 {
		return nil
	}
	total := spec.TotalDuration
	if total <= 0 {
		total = defaultTotalDuration
	}
	sum := 0
	for _, c := range spec.SceneConfigurations {
		sum += c.Duration
	}
	if diff := sum - total; diff > 1 || diff < -1 {
		return []string{fmt.Sprintf("total scene duration %ds does not match project duration %ds", sum, total)}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
