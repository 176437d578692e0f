package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/aggregator"
	"github.com/pable/go-scout-metrics/internal/report"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List scouted teams with match counts and average points",
	Args:  cobra.NoArgs,
	RunE:  runTeams,
}

var teamCmd = &cobra.Command{
	Use:   "team <team_num>",
	Short: "Show a team's overview: averages, equipment, reliability and notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeam,
}

var metricCmd = &cobra.Command{
	Use:   "metric [key]",
	Short: "Rank teams by an event-wide metric (no key lists the metrics)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMetric,
}

func runTeams(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	ds, err := loadDataset(log)
	if err != nil {
		return err
	}

	teams := aggregator.ListTeams(ds)
	if jsonOutput {
		return printJSON(os.Stdout, teams)
	}
	if len(teams) == 0 {
		fmt.Println("No teams scouted yet.")
		return nil
	}
	report.PrintTeamsTable(os.Stdout, teams)
	return nil
}

func runTeam(cmd *cobra.Command, args []string) error {
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

	ov, err := aggregator.BuildOverview(ds, team)
	if errors.Is(err, aggregator.ErrTeamNotFound) {
		fmt.Printf("Team %d not found.\n", team)
		return nil
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(os.Stdout, ov)
	}
	report.PrintOverview(os.Stdout, ov)
	return nil
}

func runMetric(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if jsonOutput {
			return printJSON(os.Stdout, aggregator.Metrics())
		}
		report.PrintMetricList(os.Stdout, aggregator.Metrics())
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
	res, err := aggregator.ComputeMetric(ds, args[0])
	if err != nil {
		return fmt.Errorf("%w (run `scoutmetrics metric` to list keys)", err)
	}
	if jsonOutput {
		return printJSON(os.Stdout, res)
	}
	report.PrintMetricTable(os.Stdout, res)
	return nil
}

func parseTeamNum(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid team number %q", s)
	}
	return n, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
