package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/config"
	"github.com/pable/go-scout-metrics/internal/logger"
	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/snapshot"
	"github.com/pable/go-scout-metrics/internal/storage"
)

var (
	configPath string
	dataPath   string
	dbPath     string
	jsonOutput bool
)

// settings is the resolved configuration, set before any subcommand runs.
var settings *config.Config

var rootCmd = &cobra.Command{
	Use:   "scoutmetrics",
	Short: "Robotics scouting metrics tool",
	Long: `Collect match-scouting submissions into a CSV store and compute team overviews,
per-match anomaly trends and event-wide metric rankings, from the terminal or over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultConfig := filepath.Join(mustUserHome(), ".scoutmetrics", "config.yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to YAML config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "scouting CSV file or directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite mirror database (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(teamsCmd)
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(metricCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(shellCmd)
}

// loadSettings reads .env, the config file and SCOUT_* variables, then applies flag overrides.
func loadSettings(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv(config.DefaultEnvPaths...)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dataPath != "" {
		cfg.DataPath = config.ExpandHome(dataPath)
	}
	if dbPath != "" {
		cfg.DBPath = config.ExpandHome(dbPath)
	}
	settings = cfg
	return nil
}

func newLogger() (*logger.Logger, error) {
	return logger.New(settings.Log.Mode, settings.Log.Level)
}

func openStore() *storage.CSVStore {
	return storage.NewCSVStore(settings.DataPath)
}

// openDB opens the SQLite mirror, creating its directory first.
func openDB() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(settings.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(settings.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// loadDataset builds the canonical dataset from the store once.
func loadDataset(log *logger.Logger) (*model.Dataset, error) {
	return snapshot.New(openStore(), snapshot.Config{Log: log}).Get(false)
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
