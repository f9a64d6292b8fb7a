package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mepbid/internal/config"
	"mepbid/internal/logging"
	"mepbid/internal/util"
)

type app struct {
	cfg config.Config
	log zerolog.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var dir, logLevel, logFormat string

	root := &cobra.Command{
		Use:           "mepbid",
		Short:         "Build the MEP bid item dataset and its workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.DataDir = dir
			}
			cfg.LogLevel = util.FirstNonEmpty(logLevel, cfg.LogLevel)
			cfg.LogFormat = util.FirstNonEmpty(logFormat, cfg.LogFormat)
			a.cfg = cfg
			a.log = logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dir, "dir", "", "project directory holding the bid item sources (default: DATA_DIR or cwd)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(generateCmd(a))
	root.AddCommand(exportXLSXCmd(a))
	root.AddCommand(exportPackagesCmd(a))
	root.AddCommand(exportGRPSCmd(a))
	root.AddCommand(serveCmd(a))
	return root
}

// views returns the YAML view list when one is configured, else the preset
// for layout.
func (a *app) views(viewsFile, layout string) ([]config.View, error) {
	if path := util.FirstNonEmpty(viewsFile, a.cfg.ViewsFile); path != "" {
		return config.LoadViews(a.cfg.Resolve(path))
	}
	return config.PresetViews(util.FirstNonEmpty(layout, a.cfg.Layout))
}
