package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"mepbid/internal"
	"mepbid/internal/util"
)

// ScopeItem is one grouped scope item and the contract item ids it was
// combined from.
type ScopeItem struct {
	Name         string
	ID           string
	CombinedFrom []string
}

// ErrNoData marks an auxiliary file that is missing or empty.
var ErrNoData = errors.New("no data")

func readFenced(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoData)
	}
	if err != nil {
		return nil, err
	}
	content := util.StripCodeFence(string(blob))
	if content == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoData)
	}
	return []byte(content), nil
}

// LoadScopeItems reads {"<scope item>": {"scope_item_id": .., "combined_from": [..]}}
// keeping file order.
func LoadScopeItems(path string) ([]ScopeItem, error) {
	blob, err := readFenced(path)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeOrderedObject(blob)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]ScopeItem, 0, len(entries))
	for _, e := range entries {
		var body struct {
			ScopeItemID  any   `json:"scope_item_id"`
			CombinedFrom []any `json:"combined_from"`
		}
		item := ScopeItem{Name: e.Key}
		if err := decodeJSON(e.Value, &body); err == nil {
			item.ID, _ = ScalarString(body.ScopeItemID)
			for _, id := range body.CombinedFrom {
				if s, ok := ScalarString(id); ok && s != "" {
					item.CombinedFrom = append(item.CombinedFrom, s)
				}
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// LoadContractItems builds contract item id -> description for one
// discipline. The three disciplines ship different shapes:
// electrical {"1": "desc"}, mechanical {"desc": {"id": 1, ...}} and
// plumbing {"short": "full"} addressed by 1-based position.
func LoadContractItems(path string, discipline internal.Discipline) (map[string]string, error) {
	blob, err := readFenced(path)
	if err != nil {
		return map[string]string{}, err
	}
	entries, err := DecodeOrderedObject(blob)
	if err != nil {
		return map[string]string{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return contractItemsMap(entries, discipline), nil
}

func contractItemsMap(entries []Entry, discipline internal.Discipline) map[string]string {
	out := map[string]string{}
	for i, e := range entries {
		var value any
		if err := decodeJSON(e.Value, &value); err != nil {
			continue
		}
		switch discipline {
		case internal.Electrical:
			if desc, ok := ScalarString(value); ok {
				out[strings.TrimSpace(e.Key)] = desc
			}
		case internal.Mechanical:
			obj, ok := value.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := ScalarString(obj["id"]); ok && id != "" {
				out[id] = e.Key
			}
		case internal.Plumbing:
			if desc, ok := ScalarString(value); ok {
				out[strconv.Itoa(i+1)] = desc
			}
		}
	}
	return out
}

// PackageSpecs lists the specifications attached to one package group.
type PackageSpecs struct {
	Package string
	Specs   []string
}

// LoadPackageSpecs reads {"<package>": [spec, ...]} where a spec is either a
// string or {"code": .., "title": ..}.
func LoadPackageSpecs(path string) ([]PackageSpecs, error) {
	blob, err := readFenced(path)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeOrderedObject(blob)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]PackageSpecs, 0, len(entries))
	for _, e := range entries {
		var specs []json.RawMessage
		if err := decodeJSON(e.Value, &specs); err != nil {
			return nil, fmt.Errorf("parse %s: package %q: %w", path, e.Key, err)
		}
		group := PackageSpecs{Package: e.Key}
		for _, raw := range specs {
			if s := specLine(raw); s != "" {
				group.Specs = append(group.Specs, s)
			}
		}
		out = append(out, group)
	}
	return out, nil
}

func specLine(raw json.RawMessage) string {
	var value any
	if err := decodeJSON(raw, &value); err != nil {
		return ""
	}
	if obj, ok := value.(map[string]any); ok {
		code, _ := ScalarString(obj["code"])
		title, _ := ScalarString(obj["title"])
		return fmt.Sprintf("%s - %s", code, title)
	}
	if s, ok := ScalarString(value); ok {
		return s
	}
	return fmt.Sprint(value)
}
