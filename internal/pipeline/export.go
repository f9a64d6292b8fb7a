package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"mepbid/internal"
	"mepbid/internal/lookup"
	"mepbid/internal/util"
)

const (
	headerFill     = "366092"
	headerFont     = "FFFFFF"
	headerHeight   = 30
	maxColumnWidth = 100
)

// ErrNoSheets is returned when an export has nothing to write.
var ErrNoSheets = errors.New("no sheets to write")

type sheetData struct {
	name     string
	headers  []string
	rows     [][]string
	widths   []float64
	bordered bool
	freeze   bool
}

var bidItemColumns = []string{"Item #", "Bid Item Description", "", "Status", "Drawing Reference", "Specification Reference"}

// GroupColumnTitle names the group column for a grouping mode.
func GroupColumnTitle(mode internal.GroupingMode) string {
	switch mode {
	case internal.GroupByCategory:
		return "Category"
	case internal.GroupByPackage:
		return "Package"
	case internal.GroupBySpec:
		return "Specification"
	default:
		return "Group"
	}
}

// ExportDatasetXLSX writes one sheet per scope. groupTitles maps scope id to
// the group column header; unknown scopes get "Group".
func ExportDatasetXLSX(ds internal.Dataset, groupTitles map[string]string, outputPath string) error {
	sheets := make([]sheetData, 0, len(ds.Scopes))
	for _, scope := range ds.Scopes {
		headers := append([]string(nil), bidItemColumns...)
		headers[2] = util.FirstNonEmpty(groupTitles[scope.ID], "Group")
		sheets = append(sheets, sheetData{
			name:    util.FirstNonEmpty(scope.Name, scope.ID),
			headers: headers,
			rows:    bidItemRows(ds.BidItems[scope.ID]),
		})
	}
	return writeWorkbook(sheets, outputPath)
}

func bidItemRows(groups internal.Groups) [][]string {
	type labeled struct {
		label string
		item  internal.BidItem
	}
	var all []labeled
	for _, label := range groups.Labels() {
		for _, item := range groups[label] {
			all = append(all, labeled{label: label, item: item})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].label != all[j].label {
			return all[i].label < all[j].label
		}
		return all[i].item.ItemNumber < all[j].item.ItemNumber
	})

	rows := make([][]string, 0, len(all))
	for _, l := range all {
		rows = append(rows, []string{
			l.item.ItemNumber,
			l.item.Description,
			l.label,
			l.item.Status,
			joinRefs(l.item.DrawingRefs),
			joinRefs(l.item.SpecRefs),
		})
	}
	return rows
}

func joinRefs(groups []internal.RefGroup) string {
	var refs []string
	for _, g := range groups {
		refs = append(refs, g.Items...)
	}
	return strings.Join(refs, ", ")
}

// PackageSheet is one discipline's package group to spec listing.
type PackageSheet struct {
	Discipline internal.Discipline
	Packages   []lookup.PackageSpecs
}

// CollectPackageSheets loads the package/spec files in discipline order,
// skipping disciplines whose file is absent.
func CollectPackageSheets(log zerolog.Logger, files map[internal.Discipline]string) []PackageSheet {
	var out []PackageSheet
	for _, d := range internal.Disciplines {
		path, ok := files[d]
		if !ok {
			continue
		}
		packages, err := lookup.LoadPackageSpecs(path)
		if err != nil {
			log.Warn().Err(err).Str("discipline", string(d)).Msg("skipping package sheet")
			continue
		}
		out = append(out, PackageSheet{Discipline: d, Packages: packages})
	}
	return out
}

func ExportPackageSpecsXLSX(sheets []PackageSheet, outputPath string) error {
	data := make([]sheetData, 0, len(sheets))
	for _, s := range sheets {
		rows := make([][]string, 0, len(s.Packages))
		for _, p := range s.Packages {
			rows = append(rows, []string{p.Package, strings.Join(p.Specs, "\n")})
		}
		data = append(data, sheetData{
			name:    s.Discipline.Title(),
			headers: []string{"Package Group", "Specs"},
			rows:    rows,
		})
	}
	return writeWorkbook(data, outputPath)
}

// ScopeSheet pairs a discipline's grouped scope items with the contract
// items they were derived from.
type ScopeSheet struct {
	Discipline    internal.Discipline
	ScopeItems    []lookup.ScopeItem
	ContractItems map[string]string
}

// CollectScopeSheets reads grps_<discipline>_scope_items.json and the
// matching contract items file from dir. Disciplines without scope items
// are skipped.
func CollectScopeSheets(log zerolog.Logger, dir string) []ScopeSheet {
	var out []ScopeSheet
	for _, d := range internal.Disciplines {
		scopePath := filepath.Join(dir, fmt.Sprintf("grps_%s_scope_items.json", d))
		contractPath := filepath.Join(dir, fmt.Sprintf("grps_%s_contract_items.json", d))

		scopeItems, err := lookup.LoadScopeItems(scopePath)
		if err != nil || len(scopeItems) == 0 {
			log.Warn().Err(err).Str("path", scopePath).Msg("scope items not found, skipping discipline")
			continue
		}
		contract, err := lookup.LoadContractItems(contractPath, d)
		if err != nil {
			log.Warn().Err(err).Str("path", contractPath).Msg("contract items unavailable")
		}
		out = append(out, ScopeSheet{Discipline: d, ScopeItems: scopeItems, ContractItems: contract})
	}
	return out
}

func ExportScopeItemsXLSX(sheets []ScopeSheet, outputPath string) error {
	data := make([]sheetData, 0, len(sheets))
	for _, s := range sheets {
		rows := make([][]string, 0, len(s.ScopeItems))
		for _, item := range s.ScopeItems {
			rows = append(rows, []string{scopeItemDisplay(item), contractLines(item, s.ContractItems)})
		}
		data = append(data, sheetData{
			name:     s.Discipline.Title(),
			headers:  []string{"Scope Item", "Contract Items (Derived From)"},
			rows:     rows,
			widths:   []float64{50, 80},
			bordered: true,
			freeze:   true,
		})
	}
	return writeWorkbook(data, outputPath)
}

func scopeItemDisplay(item lookup.ScopeItem) string {
	if item.ID == "" {
		return item.Name
	}
	return fmt.Sprintf("[%s] %s", item.ID, item.Name)
}

func contractLines(item lookup.ScopeItem, contract map[string]string) string {
	if len(item.CombinedFrom) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(item.CombinedFrom))
	for _, id := range item.CombinedFrom {
		if desc, ok := contract[id]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", id, desc))
		} else {
			lines = append(lines, fmt.Sprintf("%s: (Not found in contract items)", id))
		}
	}
	return strings.Join(lines, "\n")
}

func writeWorkbook(sheets []sheetData, outputPath string) error {
	if len(sheets) == 0 {
		return ErrNoSheets
	}

	f := excelize.NewFile()
	defer f.Close()

	used := map[string]struct{}{}
	for i, sheet := range sheets {
		name := uniqueSheetName(sheet.name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, sheet); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}

	return saveWorkbook(f, outputPath)
}

// saveWorkbook writes to a sibling temp file and renames it over
// outputPath, so readers never see a half-written workbook.
func saveWorkbook(f *excelize.File, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), outputPath)
}

func writeSheet(f *excelize.File, name string, sheet sheetData) error {
	var border []excelize.Border
	if sheet.bordered {
		for _, side := range []string{"left", "right", "top", "bottom"} {
			border = append(border, excelize.Border{Type: side, Color: "000000", Style: 1})
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: headerFont, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return err
	}

	widths := make([]int, len(sheet.headers))
	for col, h := range sheet.headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
		widths[col] = util.LongestLine(h)
	}
	for r, row := range sheet.rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
			if col < len(widths) {
				widths[col] = max(widths[col], util.LongestLine(value))
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(sheet.headers))
	if err := f.SetCellStyle(name, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if len(sheet.rows) > 0 {
		if err := f.SetCellStyle(name, "A2", fmt.Sprintf("%s%d", lastCol, len(sheet.rows)+1), bodyStyle); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(name, 1, headerHeight); err != nil {
		return err
	}

	for col := range sheet.headers {
		width := float64(min(widths[col]+2, maxColumnWidth))
		if col < len(sheet.widths) {
			width = sheet.widths[col]
		}
		colName, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(name, colName, colName, width); err != nil {
			return err
		}
	}

	if sheet.freeze {
		return f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func uniqueSheetName(name string, used map[string]struct{}) string {
	base := util.SheetName(name)
	candidate := base
	for n := 2; ; n++ {
		if _, taken := used[strings.ToLower(candidate)]; !taken {
			break
		}
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len([]rune(suffix)) > 31 {
			r = r[:31-len([]rune(suffix))]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = struct{}{}
	return candidate
}
