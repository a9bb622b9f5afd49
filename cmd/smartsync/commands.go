package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/smartsync/internal/core"
	"github.com/JonMunkholm/smartsync/internal/schema"
)

func (c *cli) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE.json",
		Short: "Record images an external uploader finished",
		Long: `Reads a JSON array of resolved images ({"rowId", "id", "productName",
"image", "originalUrl"}) and stores them as image records. Matching
pending entries are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var resolved []core.ResolvedImage
			if err := json.Unmarshal(data, &resolved); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			n, err := c.app.Service.ResolveImages(cmd.Context(), resolved)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]int{"inserted": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d image records stored\n", n)
			return nil
		},
	}
}

func (c *cli) reconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Join stored products with their images",
		Long: `Matches every stored product to an image record by business ID or row
ID. When everything matches the merged listings are saved; otherwise the
unmatched records are listed and the command fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Service.Reconcile(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if c.jsonOut {
				if err := printJSON(w, report); err != nil {
					return err
				}
				return report.Err()
			}

			st := report.Result.Stats
			fmt.Fprintf(w, "match rate %s: %d of %d products, %d images\n",
				st.MatchRateDisplay, st.Matched, st.TotalProducts, st.TotalImages)
			strategies := make([]string, 0, len(st.ByStrategy))
			for s := range st.ByStrategy {
				strategies = append(strategies, string(s))
			}
			sort.Strings(strategies)
			for _, s := range strategies {
				fmt.Fprintf(w, "  by %s: %d\n", s, st.ByStrategy[core.MatchStrategy(s)])
			}
			for _, u := range report.Result.Unmatched {
				fmt.Fprintf(w, "  unmatched %s %q: %s\n    %s\n", u.Side, u.ProductName, u.Cause, u.Action)
			}
			if report.Persisted {
				fmt.Fprintln(w, "listings saved")
			}
			return report.Err()
		},
	}
}

func (c *cli) listingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "listings",
		Short: "Print the reconciled listings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := c.app.Service.Listings(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), recs)
		},
	}
}

func (c *cli) schemaCommand() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the active field schema",
		Long: `Prints the schema headers are mapped against. The YAML form can be
edited and loaded back with SCHEMA_FILE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := c.app.Service.Schema(cmd.Context())
			if err != nil {
				return err
			}
			if asYAML {
				out, err := schema.Marshal(fields)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return printJSON(cmd.OutOrStdout(), fields)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of JSON")
	return cmd
}

func (c *cli) resetCommand() *cobra.Command {
	var (
		yes         bool
		collections []string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty pipeline collections",
		Long: `Removes every record from the pipeline collections, or only from those
named with --collection. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}

			var (
				removed map[string]int
				err     error
			)
			if len(collections) > 0 {
				removed, err = c.app.Resetter.Reset(cmd.Context(), collections...)
			} else {
				removed, err = c.app.Resetter.ResetAll(cmd.Context())
			}
			if err != nil {
				return err
			}

			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), removed)
			}
			names := make([]string, 0, len(removed))
			for name := range removed {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d removed\n", name, removed[name])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	cmd.Flags().StringSliceVar(&collections, "collection", nil, "collection to reset (repeatable)")
	return cmd
}
