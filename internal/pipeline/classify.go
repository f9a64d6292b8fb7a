package pipeline

import (
	"sort"
	"strings"

	"mepbid/internal"
)

const (
	DivElectrical = "Div 26 - Electrical"
	DivMechanical = "Div 23 - Mechanical"
	DivPlumbing   = "Div 22 - Plumbing"
)

type drawingRule struct {
	category string
	keyword  string
	prefixes []string
	exclude  []string
}

var drawingRules = []drawingRule{
	{category: "Civil", keyword: "civil", prefixes: []string{"C"}, exclude: []string{"C5"}},
	{category: "Architectural", keyword: "architectural", prefixes: []string{"A", "NO. A"}},
	{category: "Mechanical", keyword: "mechanical", prefixes: []string{"M", "NO. M"}},
	{category: "Electrical", keyword: "electrical", prefixes: []string{"E", "NO. E"}},
	{category: "Plumbing", keyword: "plumbing", prefixes: []string{"P", "NO. P"}},
	{category: "Landscape", keyword: "landscape", prefixes: []string{"L"}},
	{category: "General", keyword: "general", prefixes: []string{"G", "S", "NO. S"}},
}

var divisionPrefixes = []struct {
	prefix string
	label  string
}{
	{prefix: "26", label: DivElectrical},
	{prefix: "23", label: DivMechanical},
	{prefix: "22", label: DivPlumbing},
}

// Classifier turns comma-separated reference text into sorted RefGroups.
type Classifier struct {
	DefaultDrawingCategory string
	DefaultSpecDivision    string
}

func NewClassifier(defaultDrawing, defaultDivision string) Classifier {
	return Classifier{DefaultDrawingCategory: defaultDrawing, DefaultSpecDivision: defaultDivision}
}

func (c Classifier) ClassifyDrawings(raw string) []internal.RefGroup {
	return groupRefs(splitRefs(raw), c.DrawingCategory)
}

func (c Classifier) ClassifySpecs(raw string) []internal.RefGroup {
	return groupRefs(splitRefs(raw), c.SpecDivision)
}

// DrawingCategory checks discipline keywords anywhere in the token before
// falling back to sheet-number prefixes.
func (c Classifier) DrawingCategory(ref string) string {
	lower := strings.ToLower(ref)
	for _, rule := range drawingRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.category
		}
	}
	for _, rule := range drawingRules {
		if hasAnyPrefix(ref, rule.exclude) {
			continue
		}
		if hasAnyPrefix(ref, rule.prefixes) {
			return rule.category
		}
	}
	return c.DefaultDrawingCategory
}

// SpecDivision maps "26 05 19 - Wiring" style tokens to their division label.
func (c Classifier) SpecDivision(ref string) string {
	if before, _, found := strings.Cut(ref, " - "); found {
		code := "26"
		if fields := strings.Fields(before); len(fields) > 0 {
			code = fields[0]
		}
		if label, ok := divisionFor(code); ok {
			return label
		}
		return "Div " + code
	}
	if label, ok := divisionFor(ref); ok {
		return label
	}
	return c.DefaultSpecDivision
}

func divisionFor(code string) (string, bool) {
	for _, d := range divisionPrefixes {
		if strings.HasPrefix(code, d.prefix) {
			return d.label, true
		}
	}
	return "", false
}

func splitRefs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func groupRefs(refs []string, categorize func(string) string) []internal.RefGroup {
	byCategory := map[string][]string{}
	for _, ref := range refs {
		cat := categorize(ref)
		byCategory[cat] = append(byCategory[cat], ref)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	out := make([]internal.RefGroup, 0, len(categories))
	for _, cat := range categories {
		items := byCategory[cat]
		out = append(out, internal.RefGroup{Category: cat, Count: len(items), Items: items})
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
