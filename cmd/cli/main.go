// Command cli imports bank CSV exports, categorizes and analyzes the
// transactions, and exports the results.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/smart-budget/internal/config"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/dvloznov/smart-budget/internal/tools"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errFailed signals that an error envelope was already printed.
var errFailed = errors.New("command failed")

// app carries the state shared by all subcommands.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	rulesFile   string
	aliasesFile string
	outputDir   string
	currency    string
	logLevel    string
	summary     bool

	closers []func() error
}

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Smart Budget - CSV transaction import, categorization and analytics",
		Long: `Smart Budget reads bank CSV exports in any column layout, normalizes
them into canonical transactions, assigns categories from keyword rules,
and reports spending totals and unusual transactions.

Sources may be local paths or gs://bucket/object URIs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.rulesFile, "rules", "", "YAML file with keyword → category rules (overrides "+config.EnvRulesFile+")")
	flags.StringVar(&a.aliasesFile, "aliases", "", "YAML file with header aliases and expense markers (overrides "+config.EnvProfileFile+")")
	flags.StringVar(&a.outputDir, "out", "", "output directory or gs:// prefix for exports (overrides "+config.EnvOutputDir+")")
	flags.StringVar(&a.currency, "currency", "", "currency for rows without one (overrides "+config.EnvDefaultCurrency+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides "+config.EnvLogLevel+")")
	flags.BoolVar(&a.summary, "summary", false, "print a human-readable summary instead of JSON")

	rootCmd.AddCommand(importCmd(a))
	rootCmd.AddCommand(categorizeCmd(a))
	rootCmd.AddCommand(analyzeCmd(a))
	rootCmd.AddCommand(anomaliesCmd(a))
	rootCmd.AddCommand(runCmd(a))
	rootCmd.AddCommand(rulesCmd(a))

	return rootCmd
}

// init loads configuration and applies flag overrides.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.rulesFile != "" {
		cfg.RulesFile = a.rulesFile
	}
	if a.aliasesFile != "" {
		cfg.ProfileFile = a.aliasesFile
	}
	if a.outputDir != "" {
		cfg.OutputDir = a.outputDir
	}
	if a.currency != "" {
		cfg.DefaultCurrency = a.currency
	}
	if a.logLevel != "" {
		level, err := logger.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	a.cfg = cfg
	a.log = logger.NewWithLevel(cfg.LogLevel)
	cmd.SetContext(logger.WithContext(cmd.Context(), a.log))
	return nil
}

// toolkit builds the toolkit, creating a storage client when any of the
// given locations is a gs:// URI or GCS is configured.
func (a *app) toolkit(ctx context.Context, locations ...string) (*tools.Toolkit, error) {
	needsGCS := a.cfg.Bucket != "" || a.cfg.EmulatorHost != "" || gcs.IsURI(a.cfg.OutputDir)
	for _, loc := range locations {
		if gcs.IsURI(loc) {
			needsGCS = true
		}
	}

	var storage gcs.StorageService
	if needsGCS {
		client, err := gcs.NewClient(ctx, a.cfg.EmulatorHost)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		storage = client
	}

	opts, err := a.cfg.ToolkitOptions(storage)
	if err != nil {
		return nil, err
	}
	return tools.New(opts), nil
}

func (a *app) close() error {
	var errs []string
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close: %s", strings.Join(errs, "; "))
	}
	return nil
}
