package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mepbid/internal/pipeline"
	"mepbid/internal/storage"
	"mepbid/internal/util"
)

func generateCmd(a *app) *cobra.Command {
	var viewsFile, layout, out string
	cmd := &cobra.Command{
		Use:   "data:generate",
		Short: "Assemble every configured view into the viewer dataset",
		RunE: func(_ *cobra.Command, _ []string) error {
			views, err := a.views(viewsFile, layout)
			if err != nil {
				return err
			}

			ds, summaries := pipeline.NewAssembler(a.log, a.cfg.DataDir, a.cfg.Policy).Assemble(views)
			printSummaries(summaries)

			path := a.cfg.Resolve(util.FirstNonEmpty(out, a.cfg.DataJSON))
			if err := storage.WriteDataset(path, ds); err != nil {
				return fmt.Errorf("write dataset: %w", err)
			}
			fmt.Printf("dataset written path=%s scopes=%d\n", path, len(ds.Scopes))
			return nil
		},
	}
	cmd.Flags().StringVar(&viewsFile, "views", "", "YAML view list (default: VIEWS_FILE or built-in preset)")
	cmd.Flags().StringVar(&layout, "layout", "", "built-in preset: csv|json")
	cmd.Flags().StringVar(&out, "out", "", "dataset output path (default: DATA_JSON)")
	return cmd
}

func printSummaries(summaries []pipeline.ScopeSummary) {
	for _, s := range summaries {
		if s.Skipped != "" {
			fmt.Printf("  %-24s skipped: %s\n", s.ID, s.Skipped)
			continue
		}
		fmt.Printf("  %-24s groups=%d items=%d\n", s.ID, s.Groups, s.Items)
	}
}
