// Package chart renders team charts as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pable/go-scout-metrics/internal/aggregator"
)

// Palette holds the colours of a rendered chart.
type Palette struct {
	Background drawing.Color
	Line       drawing.Color
	Anomaly    drawing.Color
	Mean       drawing.Color
	Text       drawing.Color
}

// DefaultPalette is a light theme.
var DefaultPalette = Palette{
	Background: drawing.ColorFromHex("ffffff"),
	Line:       drawing.ColorFromHex("1f6feb"),
	Anomaly:    drawing.ColorFromHex("d1242f"),
	Mean:       drawing.ColorFromHex("8c959f"),
	Text:       drawing.ColorFromHex("24292f"),
}

// TrendPNG draws a team's match totals in match order, with the team mean as a dashed line and
// anomalous matches as red dots. Matches are spaced evenly; ticks carry the match numbers.
func TrendPNG(team int, points []aggregator.TrendPoint, palette Palette) ([]byte, error) {
	if len(points) == 0 {
		return renderNoDataPlaceholder(fmt.Sprintf("No matches scouted for team %d", team), palette)
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	ticks := make([]chart.Tick, len(points))
	var anomX, anomY []float64
	var sum float64
	for i, p := range points {
		xs[i] = float64(i + 1)
		ys[i] = p.MatchTotalPts
		sum += p.MatchTotalPts
		ticks[i] = chart.Tick{Value: xs[i], Label: fmt.Sprintf("%d", p.MatchNum)}
		if p.Anomaly {
			anomX = append(anomX, xs[i])
			anomY = append(anomY, ys[i])
		}
	}
	mean := sum / float64(len(points))

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Total Points",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: palette.Line,
				StrokeWidth: 2,
				DotWidth:    3,
				DotColor:    palette.Line,
			},
		},
		chart.ContinuousSeries{
			Name:    "Mean",
			XValues: []float64{xs[0], xs[len(xs)-1]},
			YValues: []float64{mean, mean},
			Style: chart.Style{
				StrokeColor:     palette.Mean,
				StrokeWidth:     1,
				StrokeDashArray: []float64{5, 5},
			},
		},
	}
	if len(anomX) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "Anomaly",
			XValues: anomX,
			YValues: anomY,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    6,
				DotColor:    palette.Anomaly,
			},
		})
	}

	// go-chart rejects a zero-width range, so pad both axes.
	lo, hi := slices.Min(ys), slices.Max(ys)
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 5
	}

	graph := chart.Chart{
		Title:      fmt.Sprintf("Team %d", team),
		TitleStyle: chart.Style{FontColor: palette.Text},
		Width:      800,
		Height:     400,
		Background: chart.Style{FillColor: palette.Background},
		Canvas:     chart.Style{FillColor: palette.Background},
		XAxis: chart.XAxis{
			Name:  "Match",
			Style: chart.Style{FontColor: palette.Text},
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(points)) + 0.5},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "Total Points",
			Style: chart.Style{FontColor: palette.Text},
			Range: &chart.ContinuousRange{Min: max(0, lo-pad), Max: hi + pad},
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderNoDataPlaceholder(msg string, palette Palette) ([]byte, error) {
	hidden := chart.Style{Hidden: true}
	graph := chart.Chart{
		Width:      400,
		Height:     200,
		Background: chart.Style{FillColor: palette.Background},
		Canvas:     chart.Style{FillColor: palette.Background},
		XAxis:      chart.XAxis{Style: hidden},
		YAxis:      chart.YAxis{Style: hidden},
		// Render needs at least one series.
		Series: []chart.Series{chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
			Style:   hidden,
		}},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, defaults chart.Style) {
				r.SetFont(defaults.GetFont())
				r.SetFontColor(palette.Text)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
