package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/smartsync/internal/core"
	"github.com/JonMunkholm/smartsync/internal/tabular"
)

// fileReport is the per-file JSON output of ingest.
type fileReport struct {
	File      string              `json:"file"`
	Ingest    *core.IngestResult  `json:"ingest"`
	Persisted *core.PersistResult `json:"persisted,omitempty"`
}

func (c *cli) ingestCommand() *cobra.Command {
	var (
		persist    bool
		invalidOut string
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE|DIR...",
		Short: "Map, validate and classify product files",
		Long: `Runs each CSV or XLSX file through header mapping, row validation,
image classification and batch routing. Directories are scanned (not
recursively) for .csv, .xlsx and .xlsm files.

Without --persist nothing is written. --persist replaces the stored
products, pending images, image records and invalid rows with the
result, so it takes exactly one file. So does --invalid-out.`,
		Args: cobra.MinimumNArgs(1),
		Example: `  smartsync ingest products.csv
  smartsync ingest --persist --invalid-out invalid.xlsx products.xlsx
  smartsync ingest --json exports/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if persist && len(files) != 1 {
				return fmt.Errorf("--persist takes exactly one file, got %d", len(files))
			}
			if invalidOut != "" && len(files) != 1 {
				return fmt.Errorf("--invalid-out takes exactly one file, got %d", len(files))
			}

			var reports []fileReport
			var errs []error
			for _, path := range files {
				rep, err := c.ingestFile(cmd, path, persist)
				if err != nil {
					return err
				}
				reports = append(reports, rep)
				if err := rep.Ingest.Err(); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
				}
				if invalidOut != "" && rep.Ingest.Rows != nil {
					if err := c.writeInvalidRows(cmd, invalidOut, rep.Ingest.Rows.Invalid); err != nil {
						return err
					}
				}
			}

			if c.jsonOut {
				if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
			} else {
				for _, rep := range reports {
					printIngest(cmd.OutOrStdout(), rep)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&persist, "persist", false, "write the result to the store")
	cmd.Flags().StringVar(&invalidOut, "invalid-out", "", "write invalid rows to this XLSX file")

	return cmd
}

func (c *cli) ingestFile(cmd *cobra.Command, path string, persist bool) (fileReport, error) {
	ctx := cmd.Context()
	rep := fileReport{File: path}

	f, err := os.Open(path)
	if err != nil {
		return rep, err
	}
	defer f.Close()

	table, err := tabular.ParseSheet(filepath.Base(path), f, c.cfg.Upload.MaxFileSize, c.cfg.Upload.Sheet)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", path, err)
	}

	res, err := c.app.Service.Ingest(ctx, table)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", path, err)
	}
	rep.Ingest = res

	if persist && res.Outcome != core.OutcomeHeadersMissing && res.Outcome != core.OutcomeNoValidRows {
		if rep.Persisted, err = c.app.Service.Persist(ctx, res); err != nil {
			return rep, fmt.Errorf("%s: %w", path, err)
		}
	}
	return rep, nil
}

func (c *cli) writeInvalidRows(cmd *cobra.Command, path string, rows []core.InvalidRow) error {
	fields, err := c.app.Service.Schema(cmd.Context())
	if err != nil {
		return err
	}
	headers, cells := core.InvalidRowsSheet(fields, core.InvalidRowRecords(rows))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tabular.WriteXLSX(f, "Invalid Rows", headers, cells); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// collectFiles expands directories into their .csv, .xlsx and .xlsm entries.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".csv", ".xlsx", ".xlsm":
				found = append(found, filepath.Join(arg, entry.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, errors.New("no .csv, .xlsx or .xlsm files found")
	}
	return files, nil
}

func printIngest(w io.Writer, rep fileReport) {
	res := rep.Ingest
	fmt.Fprintf(w, "%s: %s\n", rep.File, res.Outcome)

	for _, m := range res.MissingHeaders {
		fmt.Fprintf(w, "  missing %s: %s\n    %s\n", m.Header, m.Description, m.Solution)
	}
	if res.Mapping != nil {
		for _, b := range res.Mapping.Recovered() {
			fmt.Fprintf(w, "  recovered %q -> %s\n", b.Header, b.Field)
		}
	}
	if res.Rows != nil {
		fmt.Fprintf(w, "  rows: %d valid, %d invalid, %d warnings\n",
			len(res.Rows.Valid), len(res.Rows.Invalid), len(res.Rows.Warnings))
	}
	if res.Batch != nil {
		fmt.Fprintf(w, "  images: %s (%d total)\n", res.Batch.Case, res.Batch.Total)
	}
	if res.Remediation != nil {
		fmt.Fprintf(w, "  next: %s\n    %s\n", res.Remediation.NextAction, res.Remediation.Instructions)
	}
	if p := rep.Persisted; p != nil {
		fmt.Fprintf(w, "  saved: %d products, %d pending images, %d image records, %d invalid rows\n",
			p.Products, p.PendingImages, p.ImageRecords, p.InvalidRows)
	}
}
