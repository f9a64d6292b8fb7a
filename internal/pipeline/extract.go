package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"mepbid/internal"
	"mepbid/internal/lookup"
	"mepbid/internal/util"
)

// csvMetadataLines is the number of lines (project name, blank) that
// precede the header row in a bid-item export.
const csvMetadataLines = 2

func parseCSVRows(content []byte) ([]internal.RawRow, error) {
	text := strings.TrimPrefix(string(content), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	body := skipLines(text, csvMetadataLines)
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(body))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = util.CleanField(h)
	}

	var out []internal.RawRow
	lineNo := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read csv row %d: %w", lineNo+1, err)
		}
		if blankRecord(record) {
			continue
		}
		lineNo++
		row := internal.RawRow{Source: internal.SourceCSV, LineNo: lineNo, Fields: map[string]string{}, First: record[0]}
		for i, value := range record {
			if i < len(columns) && columns[i] != "" {
				row.Fields[columns[i]] = value
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func parseJSONRows(content []byte) ([]internal.RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(util.StripCodeFence(string(content)))))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode bid item array: %w", err)
	}

	out := make([]internal.RawRow, 0, len(records))
	for i, rec := range records {
		row := internal.RawRow{Source: internal.SourceJSON, LineNo: i + 1, Fields: map[string]string{}}
		for key, value := range rec {
			if s, ok := lookup.ScalarString(value); ok {
				row.Fields[key] = s
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func skipLines(text string, n int) string {
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return ""
		}
		text = text[idx+1:]
	}
	return text
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if util.CleanField(v) != "" {
			return false
		}
	}
	return true
}
