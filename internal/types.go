package internal

import (
	"slices"
	"sort"
)

type Discipline string

const (
	Electrical Discipline = "electrical"
	Mechanical Discipline = "mechanical"
	Plumbing   Discipline = "plumbing"
)

func (d Discipline) Valid() bool {
	switch d {
	case Electrical, Mechanical, Plumbing:
		return true
	default:
		return false
	}
}

// Title is the display name used for sheets and scopes.
func (d Discipline) Title() string {
	switch d {
	case Electrical:
		return "Electrical"
	case Mechanical:
		return "Mechanical"
	case Plumbing:
		return "Plumbing"
	default:
		return string(d)
	}
}

// Disciplines lists every discipline in workbook sheet order.
var Disciplines = []Discipline{Electrical, Mechanical, Plumbing}

type SourceKind string

const (
	SourceCSV  SourceKind = "csv"
	SourceJSON SourceKind = "json"
)

type GroupingMode string

const (
	GroupByCategory GroupingMode = "category"
	GroupByPackage  GroupingMode = "package"
	GroupBySpec     GroupingMode = "spec"
	GroupByField    GroupingMode = "field"
)

// RawRow is one record as read from a CSV export or a JSON bid-item array.
// First holds the first CSV column, which carries the item number.
type RawRow struct {
	Source SourceKind
	LineNo int
	Fields map[string]string
	First  string
}

type RefGroup struct {
	Category string   `json:"category"`
	Count    int      `json:"count"`
	Items    []string `json:"items"`
}

type BidItem struct {
	ItemNumber  string     `json:"itemNumber"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DrawingRefs []RefGroup `json:"drawingRefs"`
	SpecRefs    []RefGroup `json:"specRefs"`
}

// Equal reports full field equality, including every reference group.
func (b BidItem) Equal(other BidItem) bool {
	return b.ItemNumber == other.ItemNumber &&
		b.Description == other.Description &&
		b.Status == other.Status &&
		slices.EqualFunc(b.DrawingRefs, other.DrawingRefs, refGroupEqual) &&
		slices.EqualFunc(b.SpecRefs, other.SpecRefs, refGroupEqual)
}

func refGroupEqual(a, b RefGroup) bool {
	return a.Category == b.Category && a.Count == b.Count && slices.Equal(a.Items, b.Items)
}

type Scope struct {
	Code string `json:"code"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Groups maps a group label to its items in insertion order.
type Groups map[string][]BidItem

func (g Groups) Add(label string, item BidItem) {
	g[label] = append(g[label], item)
}

// AddUnique appends item under label unless a field-equal item is already there.
func (g Groups) AddUnique(label string, item BidItem) bool {
	for _, existing := range g[label] {
		if existing.Equal(item) {
			return false
		}
	}
	g[label] = append(g[label], item)
	return true
}

func (g Groups) Labels() []string {
	labels := make([]string, 0, len(g))
	for label := range g {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Items flattens the groups in label order.
func (g Groups) Items() []BidItem {
	var out []BidItem
	for _, label := range g.Labels() {
		out = append(out, g[label]...)
	}
	return out
}

func (g Groups) Count() int {
	n := 0
	for _, items := range g {
		n += len(items)
	}
	return n
}

type Dataset struct {
	Scopes   []Scope           `json:"scopes"`
	BidItems map[string]Groups `json:"bidItems"`
}

func NewDataset() Dataset {
	return Dataset{Scopes: []Scope{}, BidItems: map[string]Groups{}}
}

// Add registers scope and its groups together. A scope id already present
// is replaced in place.
func (d *Dataset) Add(scope Scope, groups Groups) {
	if d.BidItems == nil {
		d.BidItems = map[string]Groups{}
	}
	if groups == nil {
		groups = Groups{}
	}
	if _, exists := d.BidItems[scope.ID]; exists {
		for i := range d.Scopes {
			if d.Scopes[i].ID == scope.ID {
				d.Scopes[i] = scope
			}
		}
	} else {
		d.Scopes = append(d.Scopes, scope)
	}
	d.BidItems[scope.ID] = groups
}

func (d Dataset) Scope(id string) (Scope, bool) {
	for _, s := range d.Scopes {
		if s.ID == id {
			return s, true
		}
	}
	return Scope{}, false
}
