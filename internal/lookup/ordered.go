package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one key/value pair of a JSON object, kept in document order.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// DecodeOrderedObject decodes a top-level JSON object without losing key order.
func DecodeOrderedObject(blob []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var out []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode value for %q: %w", key, err)
		}
		out = append(out, Entry{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
