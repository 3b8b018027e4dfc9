// Package category owns the fixed crime-category taxonomy: harm weights and
// time-of-day multipliers seeded once at startup and treated as read-only
// configuration thereafter.
package category

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"saferoute/internal/core/scoring"
)

// Other is the catch-all category every unrecognized feed value normalizes
// to before aggregation.
const Other = "other"

// ToD holds the four diurnal multipliers for one category.
type ToD struct {
	Night   float64
	Morning float64
	Day     float64
	Evening float64
}

// At returns the multiplier for a TimeOfDay bucket, defaulting to 1 when
// empty (no filter requested).
func (t ToD) At(b scoring.TimeOfDay) float64 {
	switch b {
	case scoring.Night:
		return t.Night
	case scoring.Morning:
		return t.Morning
	case scoring.Day:
		return t.Day
	case scoring.Evening:
		return t.Evening
	default:
		return 1
	}
}

// Category is one entry in the fixed taxonomy.
type Category struct {
	ID         string
	HarmWeight float64
	ToD        ToD
}

// Table is the closed, seeded taxonomy. Zero value is not usable; build one
// with Default() or Load().
type Table struct {
	byID map[string]Category
}

// Default returns the calibrated seed taxonomy. Values are meant
// to be overridden at startup via Load when an operator supplies a harm
// weight table path.
func Default() Table {
	flat := ToD{Night: 1, Morning: 1, Day: 1, Evening: 1}
	entries := []Category{
		{ID: "violent-crime", HarmWeight: 3.0, ToD: ToD{Night: 2.5, Morning: 0.8, Day: 0.7, Evening: 1.3}},
		{ID: "burglary", HarmWeight: 2.0, ToD: ToD{Night: 1.6, Morning: 0.9, Day: 1.0, Evening: 1.1}},
		{ID: "robbery", HarmWeight: 2.5, ToD: ToD{Night: 1.8, Morning: 0.8, Day: 0.8, Evening: 1.4}},
		{ID: "theft-from-the-person", HarmWeight: 1.8, ToD: ToD{Night: 1.4, Morning: 0.9, Day: 1.1, Evening: 1.2}},
		{ID: "vehicle-crime", HarmWeight: 1.3, ToD: flat},
		{ID: "criminal-damage-arson", HarmWeight: 1.2, ToD: flat},
		{ID: "drugs", HarmWeight: 1.1, ToD: flat},
		{ID: "public-order", HarmWeight: 1.0, ToD: ToD{Night: 1.3, Morning: 0.8, Day: 0.9, Evening: 1.2}},
		{ID: "anti-social-behaviour", HarmWeight: 0.8, ToD: ToD{Night: 1.2, Morning: 0.8, Day: 0.9, Evening: 1.3}},
		{ID: Other, HarmWeight: 1.0, ToD: flat},
	}
	return newTable(entries)
}

func newTable(entries []Category) Table {
	m := make(map[string]Category, len(entries))
	for _, c := range entries {
		m[c.ID] = c
	}
	if _, ok := m[Other]; !ok {
		m[Other] = Category{ID: Other, HarmWeight: 1.0, ToD: ToD{Night: 1, Morning: 1, Day: 1, Evening: 1}}
	}
	return Table{byID: m}
}

// lowerCaser folds feed category names case-insensitively; the feed mixes
// display names ("Violent crime") with url slugs ("violent-crime").
var lowerCaser = cases.Lower(language.English)

// Normalize maps an arbitrary feed category string to a known table ID,
// falling back to Other for anything not seeded. Matching folds case and
// unicode compatibility forms and treats spaces as dashes.
func (t Table) Normalize(raw string) string {
	id := lowerCaser.String(strings.TrimSpace(norm.NFKC.String(raw)))
	id = strings.ReplaceAll(id, " ", "-")
	if _, ok := t.byID[id]; ok {
		return id
	}
	return Other
}

// HarmWeight returns the harm weight for an already-normalized category id.
func (t Table) HarmWeight(id string) float64 {
	if c, ok := t.byID[id]; ok {
		return c.HarmWeight
	}
	return t.byID[Other].HarmWeight
}

// ToDMultiplier returns the time-of-day multiplier for a category and
// bucket; an empty bucket (no filter) always yields 1.
func (t Table) ToDMultiplier(id string, b scoring.TimeOfDay) float64 {
	if b == "" {
		return 1
	}
	if c, ok := t.byID[id]; ok {
		return c.ToD.At(b)
	}
	return t.byID[Other].ToD.At(b)
}

// IDs returns every seeded category id, sorted is not guaranteed.
func (t Table) IDs() []string {
	out := make([]string, 0, len(t.byID))
	for id := range t.byID {
		out = append(out, id)
	}
	return out
}
