// Package lookup resolves item numbers to category and package labels and
// loads the auxiliary JSON mappings used by the workbook exports.
package lookup

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// Table maps item numbers to labels, answering Fallback for unknown items.
type Table struct {
	entries  map[string]string
	Fallback string
}

func NewTable(entries map[string]string, fallback string) Table {
	if entries == nil {
		entries = map[string]string{}
	}
	return Table{entries: entries, Fallback: fallback}
}

func (t Table) Lookup(itemNumber string) string {
	if label, ok := t.entries[strings.TrimSpace(itemNumber)]; ok {
		return label
	}
	return t.Fallback
}

func (t Table) Len() int {
	return len(t.entries)
}

func decodeJSON(blob []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// ScalarString renders a decoded JSON scalar. Numbers keep their literal text.
func ScalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
