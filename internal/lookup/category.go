package lookup

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

// LoadCategories reads a tab-delimited item/unused/category table. The first
// line is a header. A missing file yields an empty table.
func LoadCategories(path, fallback string) (Table, error) {
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(nil, fallback), nil
	}
	if err != nil {
		return NewTable(nil, fallback), err
	}
	return NewTable(ParseCategories(string(blob)), fallback), nil
}

func ParseCategories(content string) map[string]string {
	out := map[string]string{}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return out
	}
	for _, line := range lines[1:] {
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) < 3 {
			continue
		}
		item := strings.TrimSpace(parts[0])
		if item == "" {
			continue
		}
		out[item] = strings.TrimSpace(parts[2])
	}
	return out
}
