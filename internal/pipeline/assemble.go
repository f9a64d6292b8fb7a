package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"mepbid/internal"
	"mepbid/internal/config"
	"mepbid/internal/lookup"
	"mepbid/internal/util"
)

// ScopeSummary reports what happened to one view. Skipped is empty for
// views that made it into the dataset.
type ScopeSummary struct {
	ID      string
	Name    string
	Groups  int
	Items   int
	Skipped string
}

type Assembler struct {
	log     zerolog.Logger
	dataDir string
	policy  config.Policy
}

func NewAssembler(log zerolog.Logger, dataDir string, policy config.Policy) *Assembler {
	return &Assembler{log: log, dataDir: dataDir, policy: policy}
}

// Assemble builds the dataset from views in declaration order. Views whose
// inputs are missing are skipped and reported, never fatal.
func (a *Assembler) Assemble(views []config.View) (internal.Dataset, []ScopeSummary) {
	ds := internal.NewDataset()
	summaries := make([]ScopeSummary, 0, len(views))

	for _, view := range views {
		scope := internal.Scope{Code: view.Code, Name: view.Name, ID: view.ID}
		log := a.log.With().Str("view", view.ID).Logger()

		groups, reason := a.buildView(view, ds, log)
		summary := ScopeSummary{ID: view.ID, Name: view.Name}
		if reason != "" {
			log.Warn().Str("reason", reason).Msg("view skipped")
			summary.Skipped = reason
			summaries = append(summaries, summary)
			continue
		}

		ds.Add(scope, groups)
		summary.Groups = len(groups)
		summary.Items = groups.Count()
		log.Info().Int("groups", summary.Groups).Int("items", summary.Items).Msg("view assembled")
		summaries = append(summaries, summary)
	}
	return ds, summaries
}

func (a *Assembler) buildView(view config.View, ds internal.Dataset, log zerolog.Logger) (internal.Groups, string) {
	if view.Grouping.Mode == internal.GroupBySpec {
		source, ok := ds.BidItems[view.Grouping.DeriveFrom]
		if !ok {
			return nil, fmt.Sprintf("derived view %s not available", view.Grouping.DeriveFrom)
		}
		return GroupBySpec(source, a.policy.NoSpecLabel), ""
	}

	sourcePath := a.resolve(view.Source.Path)
	rows, err := ReadRows(view.Source.Kind, sourcePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Sprintf("source %s not found", sourcePath)
	}
	if err != nil && len(rows) == 0 {
		return nil, fmt.Sprintf("read source %s: %v", sourcePath, err)
	}
	if err != nil {
		log.Warn().Err(err).Int("rows", len(rows)).Msg("source partially read")
	}
	if len(rows) == 0 {
		return nil, fmt.Sprintf("source %s has no rows", sourcePath)
	}

	classifier := NewClassifier(a.policy.DefaultDrawingCategory, util.FirstNonEmpty(view.DefaultSpecDivision, a.policy.DefaultSpecDivision))
	normalizer := NewNormalizer(view.ResolvedFields(), classifier, a.policy.DefaultStatus)
	items := normalizer.NormalizeAll(rows)

	switch view.Grouping.Mode {
	case internal.GroupByCategory:
		table, err := lookup.LoadCategories(a.resolve(view.Grouping.Path), a.policy.DefaultCategory)
		if err != nil {
			log.Warn().Err(err).Msg("category file unreadable, using default category")
		}
		if table.Len() == 0 {
			log.Warn().Str("path", view.Grouping.Path).Msg("no category entries")
		}
		return GroupByTable(items, table), ""
	case internal.GroupByPackage:
		path := a.resolve(view.Grouping.Path)
		table, report, found, err := lookup.LoadPackages(path, view.Discipline, a.policy.DefaultCategory)
		if err != nil {
			return nil, fmt.Sprintf("read package file %s: %v", path, err)
		}
		if !found {
			return nil, fmt.Sprintf("package file %s not found", path)
		}
		if !report.Strict || report.Dropped > 0 {
			log.Warn().Str("path", path).Stringer("report", report).Msg("package file needed recovery")
		}
		return GroupByTable(items, table), ""
	case internal.GroupByField:
		labels := make([]string, len(rows))
		for i, row := range rows {
			labels[i] = normalizer.GroupField(row)
		}
		return GroupByLabels(items, labels, a.policy.UngroupedLabel), ""
	default:
		return nil, fmt.Sprintf("unsupported grouping mode %q", view.Grouping.Mode)
	}
}

func (a *Assembler) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || a.dataDir == "" {
		return path
	}
	return filepath.Join(a.dataDir, path)
}
