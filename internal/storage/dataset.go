// Package storage persists the assembled dataset as the JSON document the
// viewer loads.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"mepbid/internal"
)

// WriteDataset replaces path atomically with the indented JSON form of ds.
func WriteDataset(path string, ds internal.Dataset) error {
	blob, err := EncodeDataset(ds)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// EncodeDataset renders ds with two-space indentation. HTML characters and
// non-ASCII text are written literally.
func EncodeDataset(ds internal.Dataset) ([]byte, error) {
	if ds.Scopes == nil {
		ds.Scopes = []internal.Scope{}
	}
	if ds.BidItems == nil {
		ds.BidItems = map[string]internal.Groups{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ds); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

func ReadDataset(path string) (internal.Dataset, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.Dataset{}, err
	}
	var ds internal.Dataset
	if err := json.Unmarshal(blob, &ds); err != nil {
		return internal.Dataset{}, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	if err := Validate(ds); err != nil {
		return internal.Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// Validate checks that scopes and bidItems name the same ids.
func Validate(ds internal.Dataset) error {
	seen := map[string]struct{}{}
	for _, s := range ds.Scopes {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate scope id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		if _, ok := ds.BidItems[s.ID]; !ok {
			return fmt.Errorf("scope %q has no bid items entry", s.ID)
		}
	}
	for id := range ds.BidItems {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("bid items entry %q has no scope", id)
		}
	}
	return nil
}
