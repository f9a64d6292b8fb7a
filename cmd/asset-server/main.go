package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mepbid/internal/config"
	"mepbid/internal/logging"
	"mepbid/internal/server"
	"mepbid/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	exporter := server.NewSubprocessExporter(
		cfg.ExportCommand,
		cfg.DataDir,
		cfg.Resolve(cfg.GRPSXLSXOut),
		time.Duration(cfg.ExportTimeoutSec)*time.Second,
	)
	srv := server.New(log, exporter, util.FirstNonEmpty(cfg.StaticDir, cfg.DataDir))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(srv.Run(ctx, cfg.ServerAddr))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
