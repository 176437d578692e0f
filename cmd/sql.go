package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the SQLite mirror",
	Long: `Run an arbitrary SQL query against the SQLite mirror and print results as a table.
The records table is refreshed by 'scoutmetrics sync' or by a running server.

Schema overview:
  uploads(id, received_at, source, format, remote_addr, sha256, row_count, columns)
  records(team_num, match_num, match_type, type_rank, alliance, scouter, start_zone,
    auto_active, auto_hang, auto_pts, tele_pts, tele_hang,
    auto_total_pts, tele_total_pts, match_total_pts,
    adv_broke, adv_fixed, adv_climber, adv_role, adv_chasis, adv_intake,
    adv_hoppercapacity, adv_trench, adv_shooter,
    auto_comm, tele_comm, adv_comments, timestamp, submissions)
  sync_state(id, source_mod_time, synced_at, record_count)

Note: missing numeric cells are NULL, so AVG() skips them.
Example: SELECT team_num, AVG(tele_total_pts) FROM records GROUP BY team_num ORDER BY 2 DESC`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
