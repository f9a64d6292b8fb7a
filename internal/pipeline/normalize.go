package pipeline

import (
	"strings"

	"mepbid/internal"
	"mepbid/internal/config"
	"mepbid/internal/util"
)

// Normalizer turns raw rows into bid items using a view's field map.
type Normalizer struct {
	Fields        config.FieldMap
	Classifier    Classifier
	DefaultStatus string
}

func NewNormalizer(fields config.FieldMap, classifier Classifier, defaultStatus string) Normalizer {
	return Normalizer{Fields: fields, Classifier: classifier, DefaultStatus: defaultStatus}
}

func (n Normalizer) Normalize(row internal.RawRow) internal.BidItem {
	status := n.field(row, n.Fields.Status)
	if status == "" {
		status = n.DefaultStatus
	}
	return internal.BidItem{
		ItemNumber:  n.itemNumber(row),
		Description: n.field(row, n.Fields.Description),
		Status:      status,
		DrawingRefs: n.Classifier.ClassifyDrawings(n.drawingText(row)),
		SpecRefs:    n.Classifier.ClassifySpecs(n.specText(row)),
	}
}

func (n Normalizer) NormalizeAll(rows []internal.RawRow) []internal.BidItem {
	out := make([]internal.BidItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, n.Normalize(row))
	}
	return out
}

// GroupField returns the cleaned value of the view's group key.
func (n Normalizer) GroupField(row internal.RawRow) string {
	return n.field(row, n.Fields.Group)
}

func (n Normalizer) itemNumber(row internal.RawRow) string {
	if n.Fields.ItemNumber == "" {
		return util.CleanField(row.First)
	}
	return n.field(row, n.Fields.ItemNumber)
}

func (n Normalizer) drawingText(row internal.RawRow) string {
	if n.Fields.DrawingRef != "" {
		if v := n.field(row, n.Fields.DrawingRef); v != "" {
			return v
		}
	}
	number := n.field(row, n.Fields.SheetNumber)
	name := n.field(row, n.Fields.SheetName)
	if number != "" && name != "" {
		return number + " - " + name
	}
	return ""
}

func (n Normalizer) specText(row internal.RawRow) string {
	if n.Fields.SpecRef != "" {
		if v := n.field(row, n.Fields.SpecRef); v != "" {
			return v
		}
	}
	code := n.field(row, n.Fields.SpecCode)
	name := n.field(row, n.Fields.SpecName)
	if code == "" && name == "" {
		return ""
	}
	return strings.Trim(code+" - "+name, " -")
}

func (n Normalizer) field(row internal.RawRow, key string) string {
	if key == "" {
		return ""
	}
	return util.CleanField(row.Fields[key])
}
