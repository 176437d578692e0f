package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/aggregator"
	"github.com/pable/go-scout-metrics/internal/chart"
	"github.com/pable/go-scout-metrics/internal/report"
)

// trendPNG is the output path of `trend --png`.
var trendPNG string

var trendCmd = &cobra.Command{
	Use:   "trend <team_num>",
	Short: "Per-match total points with z-scores; |z| > 1.5 is flagged",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().StringVar(&trendPNG, "png", "", "also write the trend chart to this PNG file")
}

func runTrend(cmd *cobra.Command, args []string) error {
	team, err := parseTeamNum(args[0])
	if err != nil {
		return err
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

	points := aggregator.ComputeTrend(ds, team)
	if trendPNG != "" {
		img, err := chart.TrendPNG(team, points, chart.DefaultPalette)
		if err != nil {
			return err
		}
		if err := os.WriteFile(trendPNG, img, 0644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(os.Stderr, "chart written to %s\n", trendPNG)
	}
	if jsonOutput {
		return printJSON(os.Stdout, points)
	}
	report.PrintTrendTable(os.Stdout, team, points)
	return nil
}
