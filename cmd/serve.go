package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/ingest"
	"github.com/pable/go-scout-metrics/internal/logger"
	"github.com/pable/go-scout-metrics/internal/metrics"
	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/normalize"
	"github.com/pable/go-scout-metrics/internal/server"
	"github.com/pable/go-scout-metrics/internal/snapshot"
	"github.com/pable/go-scout-metrics/internal/storage"
)

// serve command flags.
var (
	// serveAddr overrides the configured listen address.
	serveAddr string
	// serveNoMirror disables the SQLite ledger and record mirror.
	serveNoMirror bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scouting HTTP API",
	Long: `Serve team overviews, trends and event metrics over HTTP, and accept uploads from
the scouting app at POST /api/scout/upload.

Unless --no-mirror is set, uploads are recorded in the SQLite ledger (duplicate payloads are
skipped) and every snapshot rebuild is mirrored into the records table for ad-hoc SQL.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config, e.g. :8000)")
	serveCmd.Flags().BoolVar(&serveNoMirror, "no-mirror", false, "do not open the SQLite ledger/mirror")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	httpCfg := settings.HTTP
	if serveAddr != "" {
		httpCfg.Addr = serveAddr
	}

	m := metrics.New()
	observers := []snapshot.Observer{m}
	opts := ingest.Options{Log: log}

	if !serveNoMirror {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		observers = append(observers, &mirror{db: db, log: log})
		opts.Ledger = db
		log.Info("sqlite mirror enabled", "path", settings.DBPath)
	}

	store := openStore()
	cache := snapshot.New(store, snapshot.Config{Log: log, Observers: observers})
	opts.Cache = cache

	if ds, err := cache.Get(false); err != nil {
		log.Warn("initial snapshot failed", "error", err)
	} else {
		log.Info("scouting store loaded", "path", settings.DataPath, "records", ds.Len(), "teams", len(ds.Teams()))
	}

	srv := server.New(server.Deps{
		Config:   httpCfg,
		Cache:    cache,
		Store:    store,
		Ingester: ingest.New(store, opts),
		Metrics:  m,
		Log:      log,
	})

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// mirror copies every rebuilt snapshot into the SQLite records table.
type mirror struct {
	db  *storage.DB
	log *logger.Logger
}

func (m *mirror) CacheHit()           {}
func (m *mirror) RebuildFailed(error) {}

func (m *mirror) Rebuilt(ds *model.Dataset, _ normalize.Stats, _ time.Duration) {
	if err := m.db.ReplaceRecords(ds.Records(), ds.SourceModTime()); err != nil {
		m.log.Error("mirror snapshot failed", "error", err)
		return
	}
	m.log.Debug("snapshot mirrored", "records", ds.Len())
}

var _ snapshot.Observer = (*mirror)(nil)

// contextOrBackground returns the command context, which is nil when a command is invoked
// directly rather than through Execute.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
