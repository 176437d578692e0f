package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/ingest"
	"github.com/pable/go-scout-metrics/internal/parser"
)

// ingest command flags.
var (
	// ingestFormat forces the payload format instead of guessing from the file name.
	ingestFormat string
	// ingestNoLedger skips the SQLite upload ledger, so duplicate files are appended again.
	ingestNoLedger bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file> [file...]",
	Short: "Append CSV, XLSX or JSON scouting files to the store",
	Long: `Parse each file and append its rows to the scouting store, the same way an HTTP
upload does. Files may be gzip (.gz), zstd (.zst) or bzip2 (.bz2) compressed.

A file whose exact contents were ingested before is skipped (see 'scoutmetrics uploads').

Examples:
  scoutmetrics ingest day1.csv day2.xlsx
  scoutmetrics ingest --format qr qr_dump.json.gz`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "", "payload format: csv, xlsx, json or qr (default: from file name)")
	ingestCmd.Flags().BoolVar(&ingestNoLedger, "no-ledger", false, "do not record or check uploads in the SQLite ledger")
}

func runIngest(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := ingest.Options{Log: log}
	if !ingestNoLedger {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Ledger = db
	}
	in := ingest.New(openStore(), opts)

	var stored, skipped int
	for _, path := range args {
		res, err := ingestFile(in, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [error] %s: %v\n", path, err)
			continue
		}
		if res.Duplicate {
			fmt.Printf("  %s: already ingested as %s\n", path, res.UploadID)
			skipped++
			continue
		}
		fmt.Printf("  %s: %d rows (%s)\n", path, res.Rows, res.Format)
		stored++
	}
	fmt.Printf("\nDone: %d stored, %d skipped, %d failed\n", stored, skipped, len(args)-stored-skipped)
	if stored+skipped < len(args) {
		return fmt.Errorf("%d file(s) failed", len(args)-stored-skipped)
	}
	return nil
}

func ingestFile(in *ingest.Ingester, path string) (*ingest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := ingest.ReadAll(f, ingest.EncodingFor("", path), 0)
	if err != nil {
		return nil, err
	}
	return in.Ingest(ingest.Request{
		Data:   data,
		Hint:   parser.Hint{Format: ingestFormat, Filename: trimCompressionSuffix(path)},
		Source: "ingest",
	})
}

// trimCompressionSuffix strips .gz/.zst/.bz2 so the inner extension picks the parser.
func trimCompressionSuffix(path string) string {
	for _, ext := range []string{".gz", ".zst", ".bz2"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}
