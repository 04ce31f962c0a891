package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"storyboard-server/storyboard"
)

// ProjectType discriminates the payload of a saved project.
type ProjectType string

const (
	ProjectTypeStoryboard    ProjectType = "storyboard"
	ProjectTypeStorylineIdea ProjectType = "storylineIdea"
)

const copySuffix = " (Copy)"

type StorylineIdea struct {
	Title     string `json:"title"`
	Logline   string `json:"logline"`
	Synopsis  string `json:"synopsis"`
	Storyline string `json:"storyline"`
}

type SavedStorylineIdea struct {
	Genre       string        `json:"genre"`
	VisualStyle string        `json:"visualStyle"`
	Result      StorylineIdea `json:"result"`
}

// SavedProject is the persisted form of a project. Storyboards carry the spec
// and the full scene tree, generated URLs included.
type SavedProject struct {
	ID           string      `json:"id"`
	LastModified time.Time   `json:"lastModified"`
	ProjectType  ProjectType `json:"projectType"`

	FormData    *storyboard.ProjectSpec `json:"formData,omitempty"`
	Trailer     *storyboard.Scene       `json:"trailer,omitempty"`
	Scenes      []storyboard.Scene      `json:"scenes,omitempty"`
	TotalScenes int                     `json:"totalScenes,omitempty"`
	TotalShots  int                     `json:"totalShots,omitempty"`
	AspectRatio string                  `json:"projectAspectRatio,omitempty"`

	StorylineIdea *SavedStorylineIdea `json:"storylineIdeaData,omitempty"`
}

// NewStoryboardProject wraps an assembled preview for saving.
func NewStoryboardProject(id string, p storyboard.Preview, now time.Time) SavedProject {
	spec := p.FormData
	return SavedProject{
		ID:           id,
		LastModified: now.UTC(),
		ProjectType:  ProjectTypeStoryboard,
		FormData:     &spec,
		Trailer:      p.Trailer,
		Scenes:       p.Scenes,
		TotalScenes:  p.TotalScenes,
		TotalShots:   p.TotalShots,
		AspectRatio:  p.AspectRatio,
	}
}

// Valid reports whether the record has the keys its type requires.
func (p SavedProject) Valid() bool {
	if p.ID == "" || p.LastModified.IsZero() {
		return false
	}
	switch p.ProjectType {
	case ProjectTypeStoryboard:
		return p.FormData != nil
	case ProjectTypeStorylineIdea:
		return p.StorylineIdea != nil
	}
	return false
}

// Title is the user-facing name of the project.
func (p SavedProject) Title() string {
	switch {
	case p.FormData != nil:
		return p.FormData.ProjectTitle
	case p.StorylineIdea != nil:
		return p.StorylineIdea.Result.Title
	}
	return ""
}

// Preview rebuilds the storyboard view stored in a storyboard project.
func (p SavedProject) Preview() (storyboard.Preview, bool) {
	if p.ProjectType != ProjectTypeStoryboard || p.FormData == nil {
		return storyboard.Preview{}, false
	}
	scenes := p.Scenes
	if scenes == nil {
		scenes = []storyboard.Scene{}
	}
	return storyboard.Preview{
		FormData:    *p.FormData,
		Trailer:     p.Trailer,
		Scenes:      scenes,
		TotalScenes: p.TotalScenes,
		TotalShots:  p.TotalShots,
		AspectRatio: p.AspectRatio,
	}, true
}

// Duplicate returns a deep copy under a new id with " (Copy)" appended to the
// title. A title that already ends in " (Copy)" is not suffixed twice.
func (p SavedProject) Duplicate(id string, now time.Time) (SavedProject, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return SavedProject{}, err
	}
	var out SavedProject
	if err := json.Unmarshal(raw, &out); err != nil {
		return SavedProject{}, err
	}
	out.ID = id
	out.LastModified = now.UTC()
	switch {
	case out.FormData != nil:
		out.FormData.ProjectTitle = CopyTitle(out.FormData.ProjectTitle)
	case out.StorylineIdea != nil:
		out.StorylineIdea.Result.Title = CopyTitle(out.StorylineIdea.Result.Title)
	}
	return out, nil
}

// CopyTitle appends " (Copy)" once.
func CopyTitle(title string) string {
	for strings.HasSuffix(title, copySuffix) {
		title = strings.TrimSuffix(title, copySuffix)
	}
	return title + copySuffix
}

// ParseProjectList decodes a JSON array of saved projects. Anything that is
// not an array yields an empty list; records that fail to decode or validate
// are dropped. The result is ordered newest first.
func ParseProjectList(raw []byte) []SavedProject {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []SavedProject{}
	}
	out := make([]SavedProject, 0, len(items))
	for _, item := range items {
		var p SavedProject
		if err := json.Unmarshal(item, &p); err != nil || !p.Valid() {
			continue
		}
		out = append(out, p)
	}
	SortByLastModified(out)
	return out
}

// SortByLastModified orders projects newest first.
func SortByLastModified(projects []SavedProject) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].LastModified.After(projects[j].LastModified)
	})
}

// FindShot returns a pointer into the stored scene tree.
func (p *SavedProject) FindShot(id string) (*storyboard.Shot, bool) {
	if p.Trailer != nil {
		for i := range p.Trailer.Shots {
			if p.Trailer.Shots[i].ID == id {
				return &p.Trailer.Shots[i], true
			}
		}
	}
	for i := range p.Scenes {
		for j := range p.Scenes[i].Shots {
			if p.Scenes[i].Shots[j].ID == id {
				return &p.Scenes[i].Shots[j], true
			}
		}
	}
	return nil, false
}

// Shots lists every shot in document order, trailer first.
func (p SavedProject) Shots() []storyboard.Shot {
	var out []storyboard.Shot
	if p.Trailer != nil {
		out = append(out, p.Trailer.Shots...)
	}
	for _, sc := range p.Scenes {
		out = append(out, sc.Shots...)
	}
	return out
}
