package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-scout-metrics/internal/aggregator"
	"github.com/pable/go-scout-metrics/internal/model"
)

const analyzeSystemPrompt = `You are a strategy analyst for a robotics competition team. You are given
structured match-scouting data compiled by student scouters and a question from the drive team
or the alliance-selection lead.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers (averages, match numbers, z-scores) when making a claim.
- Sample sizes are small: say so when a team has fewer than 4 scouted matches.
- "N/A" means the scouters did not record that field. Do not guess it.
- Be concise and actionable: focus on picks, match strategy and what to watch for.

Data glossary:
- auto / teleop / match averages: points per match, missing cells excluded.
- auto_hang_rate, tele_hang_rate, auto_success_rate: fraction of scouted matches (0-1).
- reliability.break_rate: fraction of matches where the robot broke; broke_in/fixed_in list match numbers.
- trend z: (match total - team mean) / team std dev. anomaly = |z| > 1.5.
- event metrics: per-team min/avg/median/max of a per-match value, or the most frequent category.`

var (
	analyzeModel  string
	analyzeAPIKey string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI-powered grounded scouting analysis (requires ANTHROPIC_API_KEY)",
}

var analyzeTeamCmd = &cobra.Command{
	Use:   "team <team_num> <question>",
	Short: "Ask about one team, grounded on its overview and match trend",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyzeTeam,
}

var analyzeEventCmd = &cobra.Command{
	Use:   "event <question>",
	Short: "Ask about the whole event, grounded on every team's summary and metric",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeEvent,
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (default from config)")
	analyzeCmd.PersistentFlags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")

	analyzeCmd.AddCommand(analyzeTeamCmd)
	analyzeCmd.AddCommand(analyzeEventCmd)
}

func runAnalyzeTeam(cmd *cobra.Command, args []string) error {
	team, err := parseTeamNum(args[0])
	if err != nil {
		return err
	}
	ds, err := analyzeDataset()
	if err != nil {
		return err
	}
	contextJSON, err := buildTeamContext(ds, team)
	if err != nil {
		return err
	}
	return callAnthropic(contextOrBackground(cmd), contextJSON, args[1])
}

func runAnalyzeEvent(cmd *cobra.Command, args []string) error {
	ds, err := analyzeDataset()
	if err != nil {
		return err
	}
	if ds.Len() == 0 {
		return fmt.Errorf("no scouting data in %s", settings.DataPath)
	}
	contextJSON, err := buildEventContext(ds)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(contextOrBackground(cmd), contextJSON, args[0])
}

func analyzeDataset() (*model.Dataset, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer log.Sync()
	return loadDataset(log)
}

// buildTeamContext serialises a team's overview and per-match trend into compact JSON.
func buildTeamContext(ds *model.Dataset, team int) (string, error) {
	ov, err := aggregator.BuildOverview(ds, team)
	if errors.Is(err, aggregator.ErrTeamNotFound) {
		return "", fmt.Errorf("no scouting data for team %d", team)
	}
	if err != nil {
		return "", err
	}
	doc := map[string]any{
		"subject":  "team",
		"team":     team,
		"overview": ov,
		"trend":    aggregator.ComputeTrend(ds, team),
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// buildEventContext serialises the team list plus every event metric into compact JSON.
func buildEventContext(ds *model.Dataset) (string, error) {
	metrics := make(map[string]*aggregator.MetricResult)
	for _, def := range aggregator.Metrics() {
		res, err := aggregator.ComputeMetric(ds, def.Key)
		if err != nil {
			return "", err
		}
		metrics[def.Key] = res
	}
	doc := map[string]any{
		"subject": "event",
		"teams":   aggregator.ListTeams(ds),
		"metrics": metrics,
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, dataJSON, question string) error {
	apiKey := analyzeAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}
	modelID := analyzeModel
	if modelID == "" {
		modelID = settings.Analyze.Model
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: settings.Analyze.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed, check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
