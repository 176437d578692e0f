package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/report"
)

var (
	exportFormat string
	exportOut    string
	exportTeam   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the canonical (deduplicated, normalized) records",
	Long: `Write the canonical snapshot: one record per team and match after merging duplicate
submissions. Missing numeric cells stay empty (csv/xlsx) or null (json).

Formats: json, csv, xlsx, table. Without --format the extension of --out decides,
falling back to table on stdout.

Examples:
  scoutmetrics export --out canonical.csv
  scoutmetrics export --team 254 --format json
  scoutmetrics export --out picklist.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: json, csv, xlsx or table")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&exportTeam, "team", 0, "only export this team")
}

func runExport(_ *cobra.Command, _ []string) error {
	format, err := resolveExportFormat(exportFormat, exportOut)
	if err != nil {
		return err
	}
	if format == "xlsx" && exportOut == "" {
		return fmt.Errorf("xlsx export needs --out")
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	ds, err := loadDataset(log)
	if err != nil {
		return err
	}

	recs := ds.Records()
	if exportTeam > 0 {
		recs = ds.Team(exportTeam)
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeRecords(w, format, recs); err != nil {
		return err
	}
	if exportOut != "" {
		fmt.Printf("Wrote %d records to %s\n", len(recs), exportOut)
	}
	return nil
}

func writeRecords(w io.Writer, format string, recs []model.Record) error {
	switch format {
	case "json":
		return printJSON(w, recs)
	case "csv":
		return report.WriteRecordsCSV(w, recs)
	case "xlsx":
		return report.WriteRecordsXLSX(w, recs)
	default:
		report.PrintRecordsTable(w, recs)
		return nil
	}
}

// resolveExportFormat picks the explicit format, then the --out extension, then table.
func resolveExportFormat(format, out string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	switch format {
	case "":
		return "table", nil
	case "json", "csv", "xlsx", "table":
		return format, nil
	}
	return "", fmt.Errorf("unknown export format %q (want json, csv, xlsx or table)", format)
}
