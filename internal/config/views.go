package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mepbid/internal"
	"mepbid/internal/util"
)

const (
	LayoutCSV  = "csv"
	LayoutJSON = "json"
)

// View is one scope recipe: where its rows come from, how they are grouped
// and how the resulting scope is named.
type View struct {
	ID                  string              `yaml:"id"`
	Name                string              `yaml:"name"`
	Code                string              `yaml:"code"`
	Discipline          internal.Discipline `yaml:"discipline"`
	Source              Source              `yaml:"source"`
	Grouping            Grouping            `yaml:"grouping"`
	Fields              FieldMap            `yaml:"fields"`
	DefaultSpecDivision string              `yaml:"default_spec_division"`
}

type Source struct {
	Kind internal.SourceKind `yaml:"kind"`
	Path string              `yaml:"path"`
}

type Grouping struct {
	Mode       internal.GroupingMode `yaml:"mode"`
	Path       string                `yaml:"path"`
	DeriveFrom string                `yaml:"derive_from"`
}

// FieldMap names the raw keys a source uses for each bid item field. An
// empty ItemNumber on a CSV source means "first column".
type FieldMap struct {
	ItemNumber  string `yaml:"item_number"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	DrawingRef  string `yaml:"drawing_ref"`
	SpecRef     string `yaml:"spec_ref"`
	Group       string `yaml:"group"`
	SheetNumber string `yaml:"sheet_number"`
	SheetName   string `yaml:"sheet_name"`
	SpecCode    string `yaml:"spec_code"`
	SpecName    string `yaml:"spec_name"`
}

func DefaultFieldMap(kind internal.SourceKind) FieldMap {
	if kind == internal.SourceJSON {
		return FieldMap{
			ItemNumber:  "id",
			Description: "bid item",
			Group:       "grouping text",
			SheetNumber: "sheet number",
			SheetName:   "sheet name",
			SpecCode:    "spec code",
			SpecName:    "spec name",
		}
	}
	return FieldMap{
		Description: "Bid Item Description",
		Status:      "Status",
		DrawingRef:  "Drawing Reference",
		SpecRef:     "Specification Reference",
	}
}

// Merge returns base with every non-empty field of override applied.
func (f FieldMap) Merge(override FieldMap) FieldMap {
	pick := func(base, over string) string {
		if strings.TrimSpace(over) != "" {
			return over
		}
		return base
	}
	return FieldMap{
		ItemNumber:  pick(f.ItemNumber, override.ItemNumber),
		Description: pick(f.Description, override.Description),
		Status:      pick(f.Status, override.Status),
		DrawingRef:  pick(f.DrawingRef, override.DrawingRef),
		SpecRef:     pick(f.SpecRef, override.SpecRef),
		Group:       pick(f.Group, override.Group),
		SheetNumber: pick(f.SheetNumber, override.SheetNumber),
		SheetName:   pick(f.SheetName, override.SheetName),
		SpecCode:    pick(f.SpecCode, override.SpecCode),
		SpecName:    pick(f.SpecName, override.SpecName),
	}
}

// ResolvedFields is the view's field map layered over the source defaults.
func (v View) ResolvedFields() FieldMap {
	return DefaultFieldMap(v.Source.Kind).Merge(v.Fields)
}

type viewsFile struct {
	Views []View `yaml:"views"`
}

func LoadViews(path string) ([]View, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read views file: %w", err)
	}
	var file viewsFile
	if err := yaml.Unmarshal(blob, &file); err != nil {
		return nil, fmt.Errorf("parse views file %s: %w", path, err)
	}
	return NormalizeViews(file.Views)
}

// NormalizeViews fills derived ids and validates the list in declaration order.
func NormalizeViews(views []View) ([]View, error) {
	if len(views) == 0 {
		return nil, errors.New("no views configured")
	}
	out := make([]View, 0, len(views))
	seen := map[string]struct{}{}
	for i, v := range views {
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return nil, fmt.Errorf("view %d: missing name", i+1)
		}
		v.ID = util.Slugify(util.FirstNonEmpty(v.ID, v.Name))
		if v.Grouping.DeriveFrom != "" {
			v.Grouping.DeriveFrom = util.Slugify(v.Grouping.DeriveFrom)
		}
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("view %s: duplicate id", v.ID)
		}
		if err := validateView(v, seen); err != nil {
			return nil, err
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func validateView(v View, earlier map[string]struct{}) error {
	switch v.Grouping.Mode {
	case internal.GroupBySpec:
		if v.Grouping.DeriveFrom == "" {
			return fmt.Errorf("view %s: spec grouping needs derive_from", v.ID)
		}
		if _, ok := earlier[v.Grouping.DeriveFrom]; !ok {
			return fmt.Errorf("view %s: derive_from %q must name an earlier view", v.ID, v.Grouping.DeriveFrom)
		}
		return nil
	case internal.GroupByCategory, internal.GroupByPackage:
		if v.Grouping.Path == "" {
			return fmt.Errorf("view %s: %s grouping needs a path", v.ID, v.Grouping.Mode)
		}
	case internal.GroupByField:
	default:
		return fmt.Errorf("view %s: unsupported grouping mode %q", v.ID, v.Grouping.Mode)
	}

	if v.Grouping.Mode == internal.GroupByPackage && !v.Discipline.Valid() {
		return fmt.Errorf("view %s: package grouping needs a discipline (electrical|mechanical|plumbing)", v.ID)
	}
	switch v.Source.Kind {
	case internal.SourceCSV, internal.SourceJSON:
	default:
		return fmt.Errorf("view %s: unsupported source kind %q", v.ID, v.Source.Kind)
	}
	if v.Source.Path == "" {
		return fmt.Errorf("view %s: missing source path", v.ID)
	}
	return nil
}

func PresetViews(layout string) ([]View, error) {
	switch layout {
	case LayoutCSV, "":
		return csvViews(), nil
	case LayoutJSON:
		return jsonViews(), nil
	default:
		return nil, fmt.Errorf("unsupported layout: %s", layout)
	}
}

type disciplineFiles struct {
	discipline internal.Discipline
	name       string
	code       string
	abbrev     string
}

var disciplines = []disciplineFiles{
	{discipline: internal.Electrical, name: "Electrical", code: "26 00 00", abbrev: "E"},
	{discipline: internal.Mechanical, name: "Mechanical", code: "23 00 00", abbrev: "M"},
	{discipline: internal.Plumbing, name: "Plumbing", code: "22 00 00", abbrev: "P"},
}

func csvViews() []View {
	var views []View
	for _, d := range disciplines {
		views = append(views, View{
			ID:         string(d.discipline),
			Name:       d.name,
			Code:       d.code,
			Discipline: d.discipline,
			Source:     Source{Kind: internal.SourceCSV, Path: fmt.Sprintf("%s - %s_BidItems.csv", d.code, d.name)},
			Grouping:   Grouping{Mode: internal.GroupByCategory, Path: string(d.discipline) + ".txt"},
		})
	}
	views = append(views, View{
		ID:       "plumbing-by-spec",
		Name:     "Plumbing by Spec",
		Code:     "22 00 00",
		Grouping: Grouping{Mode: internal.GroupBySpec, DeriveFrom: string(internal.Plumbing)},
	})
	for _, d := range disciplines {
		views = append(views, View{
			ID:         string(d.discipline) + "-packages",
			Name:       d.name + " Packages",
			Code:       d.code,
			Discipline: d.discipline,
			Source:     Source{Kind: internal.SourceCSV, Path: fmt.Sprintf("%s - %s_BidItems.csv", d.code, d.name)},
			Grouping:   Grouping{Mode: internal.GroupByPackage, Path: fmt.Sprintf("Data/%s_packages.json", d.discipline)},
		})
	}
	return views
}

func jsonViews() []View {
	var views []View
	for _, d := range disciplines {
		views = append(views, View{
			ID:                  string(d.discipline),
			Name:                d.name,
			Code:                d.code,
			Discipline:          d.discipline,
			Source:              Source{Kind: internal.SourceJSON, Path: fmt.Sprintf("40th_%s.json", d.abbrev)},
			Grouping:            Grouping{Mode: internal.GroupByField},
			DefaultSpecDivision: divisionLabel(d),
		})
	}
	return views
}

func divisionLabel(d disciplineFiles) string {
	return fmt.Sprintf("Div %s - %s", d.code[:2], d.name)
}
