// Package render produces the chart artifacts consumed by the final report.
package render

import (
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/nz-insights/popgrid/internal/pipeline"
)

const topN = 5

// chunkLabel names a record the way charts and report pages refer to it.
func chunkLabel(rec pipeline.Record) string {
	return fmt.Sprintf("%s (Chunk %d)", rec.Place, rec.Index)
}

// PopulationChart renders the top-5 chunks by total population.
func PopulationChart(records []pipeline.Record, dest string) error {
	top := topRecords(records, func(r pipeline.Record) float64 { return r.Summary.Sum })
	if len(top) == 0 {
		return eris.New("render: no records to chart")
	}

	bars := make([]chart.Value, 0, len(top))
	for _, rec := range top {
		bars = append(bars, chart.Value{Label: chunkLabel(rec), Value: rec.Summary.Sum})
	}

	graph := chart.BarChart{
		Title:    "Top 5 Chunks by Total Population",
		Width:    1000,
		Height:   600,
		BarWidth: 110,
		Bars:     bars,
		YAxis: chart.YAxis{
			Name:           "Total Population",
			ValueFormatter: thousandsFormatter,
		},
		XAxis: chart.Style{TextRotationDegrees: 30},
	}
	return writeChart(graph, dest)
}

// LivabilityChart renders the top-5 chunks by livability score.
func LivabilityChart(records []pipeline.Record, dest string) error {
	top := topRecords(records, func(r pipeline.Record) float64 { return float64(r.Livability) })
	if len(top) == 0 {
		return eris.New("render: no records to chart")
	}

	bars := make([]chart.Value, 0, len(top))
	for _, rec := range top {
		bars = append(bars, chart.Value{Label: chunkLabel(rec), Value: float64(rec.Livability)})
	}

	graph := chart.BarChart{
		Title:    "Top 5 Most 'Livable' Chunks (AI-Generated Score)",
		Width:    1000,
		Height:   600,
		BarWidth: 110,
		Bars:     bars,
		YAxis: chart.YAxis{
			Name:  "Livability Score (out of 100)",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		XAxis: chart.Style{TextRotationDegrees: 30},
	}
	return writeChart(graph, dest)
}

// topRecords returns up to topN records by the key, descending, ties broken
// by chunk order.
func topRecords(records []pipeline.Record, key func(pipeline.Record) float64) []pipeline.Record {
	sorted := append([]pipeline.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

func thousandsFormatter(v any) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	if f >= 1000 {
		return fmt.Sprintf("%.0fk", f/1000)
	}
	return fmt.Sprintf("%.0f", f)
}

func writeChart(graph chart.BarChart, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", dest)
	}
	defer f.Close() //nolint:errcheck

	if err := graph.Render(chart.PNG, f); err != nil {
		return eris.Wrapf(err, "render: chart %s", dest)
	}
	return nil
}
