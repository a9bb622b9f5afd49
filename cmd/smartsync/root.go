package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/smartsync/internal/application"
	"github.com/JonMunkholm/smartsync/internal/config"
	"github.com/JonMunkholm/smartsync/internal/logging"
)

// cli holds state shared by every subcommand. The pipeline is built in
// PersistentPreRunE and closed by execute.
type cli struct {
	envFile  string
	logLevel string
	jsonOut  bool
	out      io.Writer

	cfg *config.Config
	app *application.App
}

func newCLI() *cli {
	return &cli{}
}

func (c *cli) execute(ctx context.Context, args []string) error {
	root := c.rootCommand()
	root.SetArgs(args)
	if c.out != nil {
		root.SetOut(c.out)
	}
	err := root.ExecuteContext(ctx)
	if c.app != nil {
		if cerr := c.app.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "smartsync",
		Short: "Product catalog import pipeline",
		Long: `smartsync maps spreadsheet headers onto the product schema, validates
rows, classifies image references and reconciles products with their
resolved images.

Configuration comes from the environment (and an optional .env file), the
same variables the HTTP server reads.`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load if present")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		c.ingestCommand(),
		c.resolveCommand(),
		c.reconcileCommand(),
		c.listingsCommand(),
		c.schemaCommand(),
		c.resetCommand(),
	)
	return root
}

// setup loads configuration and wires the pipeline. Logs go to stderr so
// stdout carries only results.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(c.envFile); err == nil {
		if err := godotenv.Load(c.envFile); err != nil {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	c.cfg = cfg

	app, err := application.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
