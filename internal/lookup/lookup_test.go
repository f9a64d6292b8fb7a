package lookup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mepbid/internal"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCategories(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "electrical.txt",
		"Item\tDescription\tCategory\n"+
			"12\tInstall fixture\tLighting\n"+
			"13\tshort\n"+
			" 14 \tPanel\t Power \r\n"+
			"12\tInstall fixture again\tControls\n")

	table, err := LoadCategories(path, "Others")
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "Controls", table.Lookup("12"), "later duplicates overwrite")
	assert.Equal(t, "Power", table.Lookup("14"))
	assert.Equal(t, "Others", table.Lookup("13"))
	assert.Equal(t, "Others", table.Lookup("999"))
}

func TestLoadCategoriesMissingFile(t *testing.T) {
	table, err := LoadCategories(filepath.Join(t.TempDir(), "nope.txt"), "Others")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, "Others", table.Lookup("1"))
}

func TestParseCategoriesHeaderOnly(t *testing.T) {
	assert.Empty(t, ParseCategories("Item\tX\tCategory"))
	assert.Empty(t, ParseCategories(""))
}

func TestParsePackagesStrict(t *testing.T) {
	cases := []struct {
		name       string
		discipline internal.Discipline
		content    string
		want       map[string]string
		dropped    int
	}{
		{
			name:       "electrical flat",
			discipline: internal.Electrical,
			content:    `{"1": "Lighting Package", "2": "Power Package", "3": null}`,
			want:       map[string]string{"1": "Lighting Package", "2": "Power Package"},
			dropped:    1,
		},
		{
			name:       "mechanical group",
			discipline: internal.Mechanical,
			content:    `{"bid_items": [{"item_number": 4, "description": "Duct", "group": "Air Side"}, {"item_number": "5", "group": "Wet Side"}]}`,
			want:       map[string]string{"4": "Air Side", "5": "Wet Side"},
		},
		{
			name:       "plumbing category",
			discipline: internal.Plumbing,
			content:    "```json\n" + `{"bid_items": [{"item_number": 7, "description": "Pipe", "category": "Domestic Water"}, {"item_number": 8, "group": "ignored"}]}` + "\n```",
			want:       map[string]string{"7": "Domestic Water"},
			dropped:    1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, report := ParsePackages([]byte(tc.content), tc.discipline)
			assert.True(t, report.Strict)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, len(tc.want), report.Entries)
			assert.Equal(t, tc.dropped, report.Dropped)
		})
	}
}

func TestParsePackagesRecoversTruncatedElectrical(t *testing.T) {
	content := `{"1": "Lighting", "2": "Power \"A\"", "3": "Fire Al`
	got, report := ParsePackages([]byte(content), internal.Electrical)

	assert.False(t, report.Strict)
	assert.Equal(t, map[string]string{"1": "Lighting", "2": `Power "A"`}, got)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, 1, report.Dropped)
}

func TestParsePackagesTrailingDataIsNotStrict(t *testing.T) {
	content := "{\"1\": \"Lighting\"}\n{\"2\": \"Power\""
	got, report := ParsePackages([]byte(content), internal.Electrical)

	assert.False(t, report.Strict)
	assert.Equal(t, map[string]string{"1": "Lighting", "2": "Power"}, got)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, 0, report.Dropped)
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	var v map[string]any
	assert.NoError(t, decodeJSON([]byte(`{"a": 1}`+"\n  "), &v))
	assert.ErrorIs(t, decodeJSON([]byte(`{"a": 1} {"b": 2}`), &v), errTrailingData)
	assert.Error(t, decodeJSON([]byte(`{"a": 1} trailing`), &v))
}

func TestParsePackagesRecoversTruncatedMechanical(t *testing.T) {
	content := `{
  "bid_items": [
    {"item_number": 1, "description": "Duct", "group": "Air Side"},
    {"item_number": "2", "description": "Chiller", "group": "Wet Side"},
    {"item_number": 3, "description": "Pump", "gro`
	got, report := ParsePackages([]byte(content), internal.Mechanical)

	assert.False(t, report.Strict)
	assert.Equal(t, map[string]string{"1": "Air Side", "2": "Wet Side"}, got)
	assert.Equal(t, 1, report.Dropped)
}

func TestParsePackagesRecoversPlumbingCategoryKey(t *testing.T) {
	content := `{"bid_items": [{"item_number": 9, "category": "Storm"}, {"item_number": 10, "group": "Waste"},`
	got, report := ParsePackages([]byte(content), internal.Plumbing)

	assert.False(t, report.Strict)
	assert.Equal(t, map[string]string{"9": "Storm"}, got)
	assert.Equal(t, 1, report.Dropped)
}

func TestParsePackagesGarbage(t *testing.T) {
	got, report := ParsePackages([]byte("not json at all"), internal.Mechanical)
	assert.Empty(t, got)
	assert.False(t, report.Strict)
	assert.Equal(t, 0, report.Entries)
}

func TestLoadPackagesMissingFile(t *testing.T) {
	table, report, found, err := LoadPackages(filepath.Join(t.TempDir(), "x.json"), internal.Electrical, "Others")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, report.Entries)
	assert.Equal(t, "Others", table.Lookup("1"))
}

func TestLoadPackages(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p.json", `{"12": "Lighting Package"}`)
	table, report, found, err := LoadPackages(path, internal.Electrical, "Others")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "strict entries=1 dropped=0", report.String())
	assert.Equal(t, "Lighting Package", table.Lookup("12"))
	assert.Equal(t, "Others", table.Lookup("13"))
}

func TestDecodeOrderedObject(t *testing.T) {
	entries, err := DecodeOrderedObject([]byte(`{"z": 1, "a": {"n": [1,2]}, "m": "x"}`))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "z", entries[0].Key)
	assert.Equal(t, "a", entries[1].Key)
	assert.JSONEq(t, `{"n": [1,2]}`, string(entries[1].Value))
	assert.Equal(t, "m", entries[2].Key)

	_, err = DecodeOrderedObject([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestLoadContractItems(t *testing.T) {
	dir := t.TempDir()

	elec := writeFile(t, dir, "e.json", `{"1": "Feeders", "2": "Lighting"}`)
	got, err := LoadContractItems(elec, internal.Electrical)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "Feeders", "2": "Lighting"}, got)

	mech := writeFile(t, dir, "m.json", `{"Ductwork": {"id": 3, "sheets": []}, "Piping": {"id": "4"}, "Broken": "x"}`)
	got, err = LoadContractItems(mech, internal.Mechanical)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"3": "Ductwork", "4": "Piping"}, got)

	plumb := writeFile(t, dir, "p.json", "```json\n"+`{"Zeta": "Zeta full", "Alpha": "Alpha full"}`+"\n```")
	got, err = LoadContractItems(plumb, internal.Plumbing)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "Zeta full", "2": "Alpha full"}, got, "positions follow file order")

	_, err = LoadContractItems(filepath.Join(dir, "missing.json"), internal.Plumbing)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestLoadScopeItems(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scope.json", `{
  "Site Lighting": {"scope_item_id": 2, "combined_from": [4, "5"]},
  "Branch Power": {"scope_item_id": "SI-1", "combined_from": []},
  "Loose": {}
}`)
	items, err := LoadScopeItems(path)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, ScopeItem{Name: "Site Lighting", ID: "2", CombinedFrom: []string{"4", "5"}}, items[0])
	assert.Equal(t, "SI-1", items[1].ID)
	assert.Empty(t, items[1].CombinedFrom)
	assert.Equal(t, "", items[2].ID)

	empty := writeFile(t, t.TempDir(), "empty.json", "  ")
	_, err = LoadScopeItems(empty)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLoadPackageSpecs(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pkg.txt", `{
  "Lighting": ["26 51 00 - Interior Lighting", "26 56 00 - Exterior Lighting"],
  "Domestic Water": [{"code": "22 11 16", "title": "Domestic Water Piping"}]
}`)
	groups, err := LoadPackageSpecs(path)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Lighting", groups[0].Package)
	assert.Equal(t, []string{"26 51 00 - Interior Lighting", "26 56 00 - Exterior Lighting"}, groups[0].Specs)
	assert.Equal(t, []string{"22 11 16 - Domestic Water Piping"}, groups[1].Specs)
}
