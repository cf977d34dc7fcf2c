package dataset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func writeTempGeoJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.geojson")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func nztmFeature(id string, pop, cx, cy float64) string {
	// A 250m square around the centroid, already in NZTM coordinates.
	h := 125.0
	return fmt.Sprintf(`{
		"type": "Feature",
		"properties": {"GridID": %q, "PopEst2023": %g, "CENTROID_X": %g, "CENTROID_Y": %g},
		"geometry": {"type": "Polygon", "coordinates": [[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}
	}`, id, pop, cx, cy,
		cx-h, cy-h, cx+h, cy-h, cx+h, cy+h, cx-h, cy+h, cx-h, cy-h)
}

func TestLoadGeoJSONNZTM(t *testing.T) {
	body := fmt.Sprintf(`{
		"type": "FeatureCollection",
		"crs": {"type": "name", "properties": {"name": "EPSG:2193"}},
		"features": [%s, %s]
	}`, nztmFeature("A1", 12, 1757000, 5920000), nztmFeature("A2", 30, 1757250, 5920000))

	grid, err := LoadGeoJSON(writeTempGeoJSON(t, body))
	require.NoError(t, err)
	require.Len(t, grid.Cells, 2)
	assert.Equal(t, EPSGNZTM, grid.EPSG)

	assert.Equal(t, "A1", grid.Cells[0].GridID)
	assert.Equal(t, 12.0, grid.Cells[0].PopEst)
	assert.Equal(t, 1757000.0, grid.Cells[0].CentroidX)
	assert.Equal(t, 5920000.0, grid.Cells[0].CentroidY)
	require.NotNil(t, grid.Cells[1].Geometry)
}

func TestLoadGeoJSONWGS84Reprojects(t *testing.T) {
	// No crs member: GeoJSON default is WGS84. No centroid columns either,
	// so centroids must be derived from the reprojected polygon.
	body := `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"properties": {"GridID": 101, "PopEst2023": 9},
			"geometry": {"type": "Polygon", "coordinates": [[
				[174.762,-36.849],[174.765,-36.849],[174.765,-36.847],[174.762,-36.847],[174.762,-36.849]
			]]}
		}]
	}`

	grid, err := LoadGeoJSON(writeTempGeoJSON(t, body))
	require.NoError(t, err)
	require.Len(t, grid.Cells, 1)

	c := grid.Cells[0]
	assert.Equal(t, "101", c.GridID)
	assert.False(t, math.IsNaN(c.CentroidX))
	// The derived centroid must land near Auckland in NZTM terms.
	assert.InDelta(t, 1757000, c.CentroidX, 3000)
	assert.InDelta(t, 5920000, c.CentroidY, 3000)
}

func TestLoadGeoJSONMissingRequiredAttribute(t *testing.T) {
	body := `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"properties": {"GridID": "A1"},
			"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
		}]
	}`
	_, err := LoadGeoJSON(writeTempGeoJSON(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PopEst2023")
}

func TestLoadGeoJSONEmptyCollection(t *testing.T) {
	_, err := LoadGeoJSON(writeTempGeoJSON(t, `{"type":"FeatureCollection","features":[]}`))
	require.Error(t, err)
}

func TestLoadGeoJSONUnsupportedCRS(t *testing.T) {
	body := `{
		"type": "FeatureCollection",
		"crs": {"type": "name", "properties": {"name": "EPSG:27200"}},
		"features": [{"type": "Feature", "properties": {"GridID": "A", "PopEst2023": 1},
			"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]
	}`
	_, err := LoadGeoJSON(writeTempGeoJSON(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "27200")
}

func TestLoadGeoJSONUnreadableFile(t *testing.T) {
	_, err := LoadGeoJSON(filepath.Join(t.TempDir(), "missing.geojson"))
	require.Error(t, err)
}

func TestPopulationStats(t *testing.T) {
	grid := &Grid{Cells: []Cell{
		{PopEst: 10}, {PopEst: 20}, {PopEst: math.NaN()}, {PopEst: 6},
	}}
	s := grid.PopulationStats()
	assert.Equal(t, 36.0, s.Total)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 12.0, s.Mean)
	assert.Equal(t, 20.0, s.Max)
	assert.Equal(t, 6.0, s.Min)
}

func TestPopulationStatsEmpty(t *testing.T) {
	s := (&Grid{}).PopulationStats()
	assert.Equal(t, 0, s.Count)
	assert.True(t, math.IsNaN(s.Max))
	assert.True(t, math.IsNaN(s.Min))
}

func TestRingCentroid(t *testing.T) {
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2, 0, 2, 2, 0, 2, 0, 0}, []int{10})
	x, y := ringCentroid(poly)
	assert.InDelta(t, 1.0, x, 1e-9)
	assert.InDelta(t, 1.0, y, 1e-9)
}

func TestRingCentroidDegenerate(t *testing.T) {
	x, y := ringCentroid(nil)
	assert.True(t, math.IsNaN(x))
	assert.True(t, math.IsNaN(y))
}

func TestBounds(t *testing.T) {
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 4, 0, 4, 2, 0, 2, 0, 0}, []int{10})
	grid := &Grid{Cells: []Cell{
		{Geometry: poly, CentroidX: 2, CentroidY: 1},
		{CentroidX: 10, CentroidY: -5},
	}}
	minX, minY, maxX, maxY, ok := grid.Bounds()
	require.True(t, ok)
	assert.Equal(t, 0.0, minX)
	assert.Equal(t, -5.0, minY)
	assert.Equal(t, 10.0, maxX)
	assert.Equal(t, 2.0, maxY)
}
