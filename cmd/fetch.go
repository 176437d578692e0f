package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/ingest"
	"github.com/pable/go-scout-metrics/internal/parser"
)

// fetch command flags.
var (
	// fetchReplace overwrites the local store with the downloaded file instead of appending.
	fetchReplace bool
	// fetchFormat forces the payload format.
	fetchFormat string
	// fetchTimeout bounds the whole download.
	fetchTimeout time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a scouting CSV from a bridge server into the local store",
	Long: `Pull the raw scouting store from another instance (GET /api/csv) or any URL serving
CSV, XLSX or JSON, and merge it into the local store. gzip and zstd responses are decoded
transparently, by Content-Encoding or by a .gz/.zst/.bz2 suffix.

Examples:
  # Mirror the pit laptop's store, replacing ours
  scoutmetrics fetch --replace http://pit-laptop.local:8000/api/csv

  # Append a teammate's export
  scoutmetrics fetch https://example.org/exports/day2.csv.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchReplace, "replace", false, "replace the local store instead of appending")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "", "payload format: csv, xlsx, json or qr (default: from response)")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 30*time.Second, "download timeout")
}

func runFetch(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	data, hint, err := download(contextOrBackground(cmd), args[0])
	if err != nil {
		return err
	}
	hint.Format = fetchFormat

	in := ingest.New(openStore(), ingest.Options{Ledger: db, Log: log})
	res, err := in.Ingest(ingest.Request{
		Data:       data,
		Hint:       hint,
		Source:     "fetch",
		RemoteAddr: args[0],
		Replace:    fetchReplace,
	})
	if err != nil {
		return err
	}

	switch {
	case res.Duplicate:
		fmt.Printf("already fetched (upload %s), store unchanged\n", res.UploadID)
	case fetchReplace:
		fmt.Printf("store replaced: %d rows (%s)\n", res.Rows, res.Format)
	default:
		fmt.Printf("appended %d rows (%s)\n", res.Rows, res.Format)
	}
	return nil
}

// download fetches rawURL and returns the decoded body plus what the response says about it.
func download(ctx context.Context, rawURL string) ([]byte, parser.Hint, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, parser.Hint{}, fmt.Errorf("invalid url %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, parser.Hint{}, err
	}
	// Ask for compressed bodies explicitly so net/http leaves decoding to us.
	req.Header.Set("Accept-Encoding", "zstd, gzip")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, parser.Hint{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, parser.Hint{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	name := path.Base(u.Path)
	data, err := ingest.ReadAll(resp.Body, ingest.EncodingFor(resp.Header.Get("Content-Encoding"), name), settings.HTTP.MaxUploadBytes)
	if err != nil {
		return nil, parser.Hint{}, err
	}

	hint := parser.Hint{ContentType: resp.Header.Get("Content-Type")}
	if inner := trimCompressionSuffix(name); path.Ext(inner) != "" {
		hint.Filename = inner
	}
	return data, hint, nil
}
