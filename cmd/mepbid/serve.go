package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mepbid/internal/server"
	"mepbid/internal/util"
)

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the viewer and the on-demand GRPS workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exporter := server.NewSubprocessExporter(
				selfCommand(a.cfg.ExportCommand),
				a.cfg.DataDir,
				a.cfg.Resolve(a.cfg.GRPSXLSXOut),
				time.Duration(a.cfg.ExportTimeoutSec)*time.Second,
			)
			static := util.FirstNonEmpty(a.cfg.StaticDir, a.cfg.DataDir)
			return server.New(a.log, exporter, static).Run(cmd.Context(), util.FirstNonEmpty(addr, a.cfg.ServerAddr))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: SERVER_ADDR)")
	return cmd
}

// selfCommand points a "mepbid ..." export command at the running binary.
func selfCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 || fields[0] != "mepbid" {
		return command
	}
	exe, err := os.Executable()
	if err != nil || strings.ContainsAny(exe, " \t") {
		return command
	}
	fields[0] = exe
	return strings.Join(fields, " ")
}
