package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/report"
)

var (
	syncStatus  bool
	uploadLimit int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the canonical snapshot into the SQLite records table",
	Long: `Rebuild the canonical snapshot from the scouting store and replace the records table of
the SQLite mirror with it, so it can be queried with 'scoutmetrics sql'.

With --status, only report when the mirror was last synced.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List accepted uploads from the ledger, newest first",
	Args:  cobra.NoArgs,
	RunE:  runUploads,
}

func init() {
	syncCmd.Flags().BoolVar(&syncStatus, "status", false, "show the last sync instead of syncing")
	uploadsCmd.Flags().IntVar(&uploadLimit, "limit", 20, "maximum uploads to list (0 = all)")
}

func runSync(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if syncStatus {
		st, err := db.LastSync()
		if err != nil {
			return err
		}
		if st == nil {
			fmt.Println("Mirror has never been synced.")
			return nil
		}
		if jsonOutput {
			return printJSON(os.Stdout, st)
		}
		fmt.Printf("Last sync:   %s\n", st.SyncedAt.Local().Format(time.DateTime))
		if !st.SourceModTime.IsZero() {
			fmt.Printf("Store mtime: %s\n", st.SourceModTime.Local().Format(time.DateTime))
		}
		fmt.Printf("Records:     %d\n", st.Records)
		return nil
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
	if err := db.ReplaceRecords(ds.Records(), ds.SourceModTime()); err != nil {
		return fmt.Errorf("sync records: %w", err)
	}
	fmt.Printf("Synced %d records (%d teams) to %s\n", ds.Len(), len(ds.Teams()), settings.DBPath)
	return nil
}

func runUploads(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ups, err := db.ListUploads(uploadLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(os.Stdout, ups)
	}
	if len(ups) == 0 {
		fmt.Println("No uploads recorded.")
		return nil
	}
	report.PrintUploadsTable(os.Stdout, ups)
	return nil
}
