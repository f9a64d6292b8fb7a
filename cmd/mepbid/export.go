package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mepbid/internal"
	"mepbid/internal/config"
	"mepbid/internal/pipeline"
	"mepbid/internal/storage"
	"mepbid/internal/util"
)

func exportXLSXCmd(a *app) *cobra.Command {
	var viewsFile, layout, out, fromJSON string
	cmd := &cobra.Command{
		Use:   "export:xlsx",
		Short: "Write the bid items workbook, one sheet per scope",
		RunE: func(_ *cobra.Command, _ []string) error {
			views, err := a.views(viewsFile, layout)
			if err != nil && fromJSON == "" {
				return err
			}

			var ds internal.Dataset
			if fromJSON != "" {
				if ds, err = storage.ReadDataset(a.cfg.Resolve(fromJSON)); err != nil {
					return err
				}
			} else {
				var summaries []pipeline.ScopeSummary
				ds, summaries = pipeline.NewAssembler(a.log, a.cfg.DataDir, a.cfg.Policy).Assemble(views)
				printSummaries(summaries)
			}

			path := a.cfg.Resolve(util.FirstNonEmpty(out, a.cfg.XLSXOut))
			if err := pipeline.ExportDatasetXLSX(ds, groupTitles(views), path); err != nil {
				return fmt.Errorf("export workbook: %w", err)
			}
			fmt.Printf("workbook written path=%s sheets=%s\n", path, sheetList(ds))
			return nil
		},
	}
	cmd.Flags().StringVar(&viewsFile, "views", "", "YAML view list (default: VIEWS_FILE or built-in preset)")
	cmd.Flags().StringVar(&layout, "layout", "", "built-in preset: csv|json")
	cmd.Flags().StringVar(&out, "out", "", "workbook path (default: XLSX_OUT)")
	cmd.Flags().StringVar(&fromJSON, "from-json", "", "export an existing dataset instead of assembling")
	return cmd
}

func exportPackagesCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export:packages",
		Short: "Write the package group to specification workbook",
		RunE: func(_ *cobra.Command, _ []string) error {
			files := map[internal.Discipline]string{}
			for d, path := range a.cfg.PackageSpecFiles {
				files[internal.Discipline(d)] = a.cfg.Resolve(path)
			}
			sheets := pipeline.CollectPackageSheets(a.log, files)

			path := a.cfg.Resolve(util.FirstNonEmpty(out, a.cfg.PackageXLSXOut))
			if err := pipeline.ExportPackageSpecsXLSX(sheets, path); err != nil {
				return fmt.Errorf("export package workbook: %w", err)
			}
			names := make([]string, 0, len(sheets))
			for _, s := range sheets {
				names = append(names, s.Discipline.Title())
			}
			fmt.Printf("workbook written path=%s sheets=%s\n", path, strings.Join(names, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "workbook path (default: PACKAGE_XLSX_OUT)")
	return cmd
}

func exportGRPSCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export:grps",
		Short: "Write the scope item to contract item workbook",
		RunE: func(_ *cobra.Command, _ []string) error {
			sheets := pipeline.CollectScopeSheets(a.log, a.cfg.Resolve(a.cfg.GRPSDir))

			path := a.cfg.Resolve(util.FirstNonEmpty(out, a.cfg.GRPSXLSXOut))
			if err := pipeline.ExportScopeItemsXLSX(sheets, path); err != nil {
				return fmt.Errorf("export grps workbook: %w", err)
			}
			names := make([]string, 0, len(sheets))
			for _, s := range sheets {
				names = append(names, s.Discipline.Title())
			}
			fmt.Printf("workbook written path=%s sheets=%s\n", path, strings.Join(names, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "workbook path (default: GRPS_XLSX_OUT)")
	return cmd
}

func groupTitles(views []config.View) map[string]string {
	titles := make(map[string]string, len(views))
	for _, v := range views {
		titles[v.ID] = pipeline.GroupColumnTitle(v.Grouping.Mode)
	}
	return titles
}

func sheetList(ds internal.Dataset) string {
	names := make([]string, 0, len(ds.Scopes))
	for _, s := range ds.Scopes {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
