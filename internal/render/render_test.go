package render

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/nz-insights/popgrid/internal/dataset"
	"github.com/nz-insights/popgrid/internal/pipeline"
)

func sampleRecords() []pipeline.Record {
	return []pipeline.Record{
		{Index: 1, Place: "Auckland", Summary: pipeline.Summary{Sum: 50000}, Livability: 61},
		{Index: 2, Place: "Wellington", Summary: pipeline.Summary{Sum: 30000}, Livability: 74},
		{Index: 3, Place: "Christchurch", Summary: pipeline.Summary{Sum: 41000}, Livability: 70},
		{Index: 4, Place: "Dunedin", Summary: pipeline.Summary{Sum: 9000}, Livability: 80},
		{Index: 5, Place: "Hamilton", Summary: pipeline.Summary{Sum: 17000}, Livability: 55},
		{Index: 6, Place: "Napier", Summary: pipeline.Summary{Sum: 6000}, Livability: 68},
	}
}

func sampleGrid() *dataset.Grid {
	cells := []dataset.Cell{
		{PopEst: 120, CentroidX: 1757000, CentroidY: 5920000},
		{PopEst: 10, CentroidX: 1748800, CentroidY: 5427600},
		{PopEst: 45, CentroidX: 1570600, CentroidY: 5180200},
	}
	return &dataset.Grid{Cells: cells, EPSG: dataset.EPSGNZTM}
}

func TestTopRecordsOrderAndCap(t *testing.T) {
	top := topRecords(sampleRecords(), func(r pipeline.Record) float64 { return r.Summary.Sum })
	require.Len(t, top, 5)
	assert.Equal(t, "Auckland", top[0].Place)
	assert.Equal(t, "Christchurch", top[1].Place)
	assert.Equal(t, "Wellington", top[2].Place)
	assert.Equal(t, "Hamilton", top[3].Place)
	assert.Equal(t, "Dunedin", top[4].Place)
}

func TestTopRecordsFewerThanN(t *testing.T) {
	top := topRecords(sampleRecords()[:2], func(r pipeline.Record) float64 { return r.Summary.Sum })
	assert.Len(t, top, 2)
}

func TestChunkLabel(t *testing.T) {
	assert.Equal(t, "Auckland (Chunk 1)", chunkLabel(sampleRecords()[0]))
}

func TestThousandsFormatter(t *testing.T) {
	assert.Equal(t, "50k", thousandsFormatter(50000.0))
	assert.Equal(t, "999", thousandsFormatter(999.0))
}

func TestPopulationChartWritesPNG(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "pop.png")
	require.NoError(t, PopulationChart(sampleRecords(), dest))
	assertValidPNG(t, dest)
}

func TestLivabilityChartWritesPNG(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "liv.png")
	require.NoError(t, LivabilityChart(sampleRecords(), dest))
	assertValidPNG(t, dest)
}

func TestChartsRejectEmptyRecords(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "none.png")
	require.Error(t, PopulationChart(nil, dest))
	require.Error(t, LivabilityChart(nil, dest))
}

func TestHeatmapWritesPNG(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "heat.png")
	require.NoError(t, Heatmap(sampleGrid(), dest))
	assertValidPNG(t, dest)
}

func TestHeatmapSkipsCentroidOutsideExtent(t *testing.T) {
	square := func(x, y float64) *geom.Polygon {
		return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
			{x, y}, {x + 250, y}, {x + 250, y + 250}, {x, y + 250}, {x, y},
		}})
	}
	// Geometry drives the raster extent; the second cell's centroid columns
	// point roughly 280km north of it and must be dropped, not binned.
	grid := &dataset.Grid{
		Cells: []dataset.Cell{
			{PopEst: 120, Geometry: square(1757000, 5920000), CentroidX: 1757125, CentroidY: 5920125},
			{PopEst: 45, Geometry: square(1758000, 5921000), CentroidX: 1758125, CentroidY: 6200000},
		},
		EPSG: dataset.EPSGNZTM,
	}

	dest := filepath.Join(t.TempDir(), "heat.png")
	require.NoError(t, Heatmap(grid, dest))
	assertValidPNG(t, dest)
}

func TestHeatmapRejectsEmptyGrid(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "heat.png")
	require.Error(t, Heatmap(&dataset.Grid{}, dest))
}

func TestArtifactsRendersAll(t *testing.T) {
	dir := t.TempDir()
	paths := Artifacts(context.Background(), sampleGrid(), sampleRecords(), dir)

	assert.NotEmpty(t, paths.Heatmap)
	assert.NotEmpty(t, paths.PopulationChart)
	assert.NotEmpty(t, paths.LivabilityChart)
	assertValidPNG(t, paths.Heatmap)
}

func TestArtifactsPartialFailureKeepsOthers(t *testing.T) {
	dir := t.TempDir()
	// Empty grid fails the heatmap; the charts must still render.
	paths := Artifacts(context.Background(), &dataset.Grid{}, sampleRecords(), dir)

	assert.Empty(t, paths.Heatmap)
	assert.NotEmpty(t, paths.PopulationChart)
	assert.NotEmpty(t, paths.LivabilityChart)
}

func TestRampColorEndpoints(t *testing.T) {
	low := rampColor(0)
	high := rampColor(1)
	assert.Greater(t, low.G, high.G, "low end is lighter")
	assert.EqualValues(t, 255, low.A)
}

func assertValidPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	require.NoError(t, err)
}
