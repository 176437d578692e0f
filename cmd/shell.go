package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/aggregator"
	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/report"
	"github.com/pable/go-scout-metrics/internal/snapshot"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long: `Open a persistent session against the scouting store. The snapshot is rebuilt only when
the store changes on disk, so repeated queries are instant. Type 'help' for available commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	cache := snapshot.New(openStore(), snapshot.Config{Log: log})

	cGreeting.Println("scoutmetrics shell")
	cMuted.Printf("store: %s\n", settings.DataPath)
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("scout")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "teams":
			if ds := shellDataset(cache, false); ds != nil {
				shellTeams(ds)
			}
		case "team", "trend":
			if len(args) != 1 {
				cError.Fprintf(os.Stderr, "usage: %s <team_num>\n", cmd)
				continue
			}
			team, err := parseTeamNum(args[0])
			if err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			ds := shellDataset(cache, false)
			if ds == nil {
				continue
			}
			if cmd == "team" {
				shellTeam(ds, team)
			} else {
				report.PrintTrendTable(os.Stdout, team, aggregator.ComputeTrend(ds, team))
			}
		case "metric":
			if len(args) == 0 {
				report.PrintMetricList(os.Stdout, aggregator.Metrics())
				continue
			}
			if ds := shellDataset(cache, false); ds != nil {
				shellMetric(ds, args[0])
			}
		case "refresh":
			if ds := shellDataset(cache, true); ds != nil {
				cMuted.Printf("rebuilt: %d records, %d teams (%s)\n",
					ds.Len(), len(ds.Teams()), ds.BuiltAt().Local().Format(time.TimeOnly))
			}
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"teams", "list scouted teams"},
		{"team <team_num>", "team overview: averages, equipment, reliability, notes"},
		{"trend <team_num>", "match-by-match totals with anomaly flags"},
		{"metric", "list event metrics"},
		{"metric <key>", "rank teams by an event metric"},
		{"refresh", "force a snapshot rebuild"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

// shellDataset returns the current snapshot, or nil after printing the error.
func shellDataset(cache *snapshot.Cache, force bool) *model.Dataset {
	ds, err := cache.Get(force)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return nil
	}
	return ds
}

func shellTeams(ds *model.Dataset) {
	teams := aggregator.ListTeams(ds)
	if len(teams) == 0 {
		cMuted.Println("No teams scouted yet.")
		return
	}
	cHeader.Printf("%d teams, %d records\n", len(teams), ds.Len())
	report.PrintTeamsTable(os.Stdout, teams)
}

func shellTeam(ds *model.Dataset, team int) {
	ov, err := aggregator.BuildOverview(ds, team)
	if errors.Is(err, aggregator.ErrTeamNotFound) {
		cWarn.Printf("team %d not found\n", team)
		return
	}
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintOverview(os.Stdout, ov)
}

func shellMetric(ds *model.Dataset, key string) {
	res, err := aggregator.ComputeMetric(ds, key)
	if errors.Is(err, aggregator.ErrUnknownMetric) {
		cWarn.Printf("unknown metric %q, type 'metric' for the list\n", key)
		return
	}
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintMetricTable(os.Stdout, res)
}
