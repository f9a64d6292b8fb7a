package pipeline

import (
	"fmt"
	"os"

	"mepbid/internal"
)

// ReadRows loads every raw record from a CSV export or a JSON bid-item array.
func ReadRows(kind internal.SourceKind, path string) ([]internal.RawRow, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case internal.SourceCSV:
		return parseCSVRows(blob)
	case internal.SourceJSON:
		return parseJSONRows(blob)
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", kind)
	}
}
