package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Category names used to address a subject's channels. Every subject
// carries at least Main; Public backs the community shared area.
const (
	CategoryMain      = "Main"
	CategoryTheory    = "Theory"
	CategoryPractical = "Practical"
	CategoryPublic    = "Public"
)

// MemberCategories are the categories a caller joins when subscribing
// to a subject. Public channels are browsable without membership.
var MemberCategories = []string{CategoryMain, CategoryTheory, CategoryPractical}

// Catalog maps subject → category → channel id. It is configuration
// data: loaded once at startup and read-only afterwards.
type Catalog struct {
	subjects map[string]map[string]int64
}

// Load reads a catalog JSON file of the form
// {"Subject": {"Main": -100..., "Theory": ...}, ...}. An empty path
// returns the built-in default catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return New(defaultSubjects()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var subjects map[string]map[string]int64
	if err := json.Unmarshal(data, &subjects); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no subjects", path)
	}

	return New(subjects), nil
}

// New builds a catalog, normalizing every channel id and dropping
// zero-valued entries.
func New(subjects map[string]map[string]int64) *Catalog {
	normalized := make(map[string]map[string]int64, len(subjects))
	for subject, categories := range subjects {
		out := make(map[string]int64, len(categories))
		for category, id := range categories {
			if id == 0 {
				continue
			}
			out[category] = NormalizeLocationID(id)
		}
		if len(out) > 0 {
			normalized[subject] = out
		}
	}
	return &Catalog{subjects: normalized}
}

func (c *Catalog) HasSubject(subject string) bool {
	_, ok := c.subjects[subject]
	return ok
}

// Location resolves a (subject, category) pair. The second return is
// false when either level is missing.
func (c *Catalog) Location(subject string, category string) (int64, bool) {
	categories, ok := c.subjects[subject]
	if !ok {
		return 0, false
	}
	id, ok := categories[category]
	return id, ok
}

func (c *Catalog) Subjects() []string {
	out := make([]string, 0, len(c.subjects))
	for subject := range c.subjects {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

// Categories returns the category → location map for one subject.
// The returned map is a copy; mutating it does not affect the catalog.
func (c *Catalog) Categories(subject string) map[string]int64 {
	categories, ok := c.subjects[subject]
	if !ok {
		return nil
	}
	out := make(map[string]int64, len(categories))
	for category, id := range categories {
		out[category] = id
	}
	return out
}

// MemberLocations returns the aggregation catalog restricted to
// member categories (Main/Theory/Practical), keyed subject → category
// → location.
func (c *Catalog) MemberLocations() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(c.subjects))
	for subject := range c.subjects {
		categories := make(map[string]int64)
		for _, category := range MemberCategories {
			if id, ok := c.Location(subject, category); ok {
				categories[category] = id
			}
		}
		if len(categories) > 0 {
			out[subject] = categories
		}
	}
	return out
}

// PublicLocations returns subject → Public channel id for every
// subject that has one.
func (c *Catalog) PublicLocations() map[string]int64 {
	out := make(map[string]int64)
	for subject := range c.subjects {
		if id, ok := c.Location(subject, CategoryPublic); ok {
			out[subject] = id
		}
	}
	return out
}

func defaultSubjects() map[string]map[string]int64 {
	return map[string]map[string]int64{
		"Advanced Java": {
			CategoryMain:      -1002392486470,
			CategoryTheory:    -1002390876365,
			CategoryPractical: -1002254568649,
			CategoryPublic:    -1002829954272,
		},
		"Data Analytics with Python": {
			CategoryMain:      -1002428431170,
			CategoryTheory:    -1002355222084,
			CategoryPractical: -1002301366458,
			CategoryPublic:    -1002893139466,
		},
		"Human Computer Interface": {
			CategoryMain:      -1002274201455,
			CategoryTheory:    -1002428841710,
			CategoryPractical: -1002462133059,
			CategoryPublic:    -1002589895149,
		},
		"Mobile Application Development": {
			CategoryMain:      -1002390629719,
			CategoryTheory:    -1002313593362,
			CategoryPractical: -1002453803465,
			CategoryPublic:    -1002745625135,
		},
		"Probability Statistics": {
			CategoryMain:      -1002277439553,
			CategoryTheory:    -1002466989253,
			CategoryPractical: -1002260169268,
			CategoryPublic:    -1002720939522,
		},
		"Software Engineering": {
			CategoryMain:      -1002342125939,
			CategoryTheory:    -1002345923267,
			CategoryPractical: -1002449513822,
			CategoryPublic:    -1002810729508,
		},
	}
}
