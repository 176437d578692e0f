package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes the SQLite mirror. The scouting CSV store is never touched.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the SQLite mirror database",
	Long:  "Permanently delete the SQLite mirror: the upload ledger and mirrored records. The scouting CSV store is kept. Run 'scoutmetrics sync' afterwards to rebuild the records table.",
	Args:  cobra.NoArgs,
	RunE:  runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	path := settings.DBPath
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", path)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", path)
	return nil
}
