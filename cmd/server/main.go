// Package main is the entry point for the block palettes server.
//
// main stays minimal: it parses the command line, loads configuration,
// builds the logger and the catalog, and hands over to internal/server or
// to the service layer for one-off maintenance commands.
//
// Commands:
//
//	server serve          run the HTTP API (default)
//	server migrate-slots  rewrite legacy slot values to catalog slugs
//	server catalog        print the catalog the server would load
//	server version        print the build version
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/block-palettes/internal/catalog"
	"github.com/sakif/block-palettes/internal/config"
	"github.com/sakif/block-palettes/internal/logger"
	"github.com/sakif/block-palettes/internal/server"
	"github.com/sakif/block-palettes/internal/service"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const appName = "block-palettes"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs, built once flags are parsed.
type app struct {
	envFile  string
	logLevel string

	cfg     *config.Config
	log     *logger.Logger
	catalog *catalog.Catalog
}

func (a *app) load() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(log.Logger)

	var cat *catalog.Catalog
	if cfg.Catalog.File != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.File, cfg.Catalog.ImageBaseURL)
	} else {
		cat, err = catalog.Default(cfg.Catalog.ImageBaseURL)
	}
	if err != nil {
		return err
	}

	a.cfg, a.log, a.catalog = cfg, log, cat
	return nil
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Block palettes API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a)
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load (skipped when missing)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), a)
			},
		},
		&cobra.Command{
			Use:   "migrate-slots",
			Short: "Rewrite legacy palette slot values to catalog slugs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrateSlots(cmd.Context(), a)
			},
		},
		catalogCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func catalogCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the block catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := a.catalog.All()
			if category != "" {
				items = a.catalog.ByCategory(category)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only print items of this category")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runServe(ctx context.Context, a *app) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	srv, err := server.New(ctx, a.cfg, a.log, a.catalog)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

func runMigrateSlots(ctx context.Context, a *app) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	db, err := server.OpenDB(ctx, a.cfg.DBPath, a.log)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := service.NewMigrationService(db, a.catalog, a.log.Logger).MigrateAll(ctx)
	if err != nil {
		return err
	}
	a.log.Info("slot migration finished", slog.Int("migrated", res.MigratedCount))
	return nil
}
