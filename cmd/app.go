// Package cmd implements the CLI application to track lots and compute
// capital gains.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/ledgertools/capgains"
	"github.com/ledgertools/capgains/logging"
	"github.com/ledgertools/capgains/store"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "ingestion")
	c.Register(&loadCmd{}, "ingestion")

	c.Register(&calcCmd{}, "computation")

	c.Register(&lotsCmd{}, "reports")
	c.Register(&gainsCmd{}, "reports")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configDir = flag.String("config-dir", defaultConfigDir(), "Path to the configuration directory")
var dbFile = flag.String("db-file", "", "Path to the database file (overrides the configured path)")

// app bundles everything a subcommand needs.
type app struct {
	cfg    *appConfig
	engine capgains.Config
	store  *store.Store
	log    zerolog.Logger
}

// openApp loads the configuration and opens the database.
func openApp() (*app, error) {
	cfg, err := loadConfig(*configDir)
	if err != nil {
		return nil, err
	}
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return nil, err
	}
	if *dbFile != "" {
		cfg.DBPath = *dbFile
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create database directory: %w", err)
		}
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		engine: engineCfg,
		store:  st,
		log:    logging.NewLoggerWithConfig(cfg.loggingConfig()),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// printMarkdown renders a markdown report for the terminal, falling back to
// the raw markdown when rendering fails (e.g. output is not a terminal).
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
