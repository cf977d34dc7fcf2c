// Package dataset loads the 250m population grid and normalizes it to NZTM2000.
package dataset

import (
	"math"

	"github.com/twpayne/go-geom"
)

// EPSG codes used by the pipeline.
const (
	EPSGNZTM  = 2193
	EPSGWGS84 = 4326
)

// Cell is a single 250m grid cell. PopEst and the centroid coordinates are
// NaN when the source has no value for them.
type Cell struct {
	GridID    string
	PopEst    float64
	Geometry  *geom.Polygon
	CentroidX float64
	CentroidY float64
}

// Grid is the ordered cell collection. Cells are always in source order and,
// after loading, every geometry and centroid is expressed in NZTM2000.
type Grid struct {
	Cells []Cell
	EPSG  int
}

// Stats holds whole-grid population statistics.
type Stats struct {
	Total float64
	Mean  float64
	Max   float64
	Min   float64
	Count int
}

// PopulationStats aggregates PopEst over all cells, ignoring NaN values.
func (g *Grid) PopulationStats() Stats {
	s := Stats{Max: math.Inf(-1), Min: math.Inf(1)}
	for _, c := range g.Cells {
		if math.IsNaN(c.PopEst) {
			continue
		}
		s.Total += c.PopEst
		s.Count++
		if c.PopEst > s.Max {
			s.Max = c.PopEst
		}
		if c.PopEst < s.Min {
			s.Min = c.PopEst
		}
	}
	if s.Count > 0 {
		s.Mean = s.Total / float64(s.Count)
	} else {
		s.Max, s.Min = math.NaN(), math.NaN()
	}
	return s
}

// Bounds returns the planar bounding box over all cell geometries and
// centroids. ok is false when the grid has no finite coordinates.
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, c := range g.Cells {
		if c.Geometry != nil {
			b := c.Geometry.Bounds()
			minX = math.Min(minX, b.Min(0))
			minY = math.Min(minY, b.Min(1))
			maxX = math.Max(maxX, b.Max(0))
			maxY = math.Max(maxY, b.Max(1))
			ok = true
			continue
		}
		if !math.IsNaN(c.CentroidX) && !math.IsNaN(c.CentroidY) {
			minX = math.Min(minX, c.CentroidX)
			minY = math.Min(minY, c.CentroidY)
			maxX = math.Max(maxX, c.CentroidX)
			maxY = math.Max(maxY, c.CentroidY)
			ok = true
		}
	}
	return minX, minY, maxX, maxY, ok
}

// ringCentroid computes the area centroid of the polygon's outer ring.
// Returns NaN coordinates for degenerate rings.
func ringCentroid(p *geom.Polygon) (x, y float64) {
	if p == nil || p.NumLinearRings() == 0 {
		return math.NaN(), math.NaN()
	}
	ring := p.LinearRing(0)
	coords := ring.FlatCoords()
	stride := ring.Stride()
	n := len(coords) / stride
	if n < 3 {
		return math.NaN(), math.NaN()
	}

	var area, cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x0, y0 := coords[i*stride], coords[i*stride+1]
		x1, y1 := coords[j*stride], coords[j*stride+1]
		cross := x0*y1 - x1*y0
		area += cross
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
	}
	if area == 0 {
		return math.NaN(), math.NaN()
	}
	area /= 2
	return cx / (6 * area), cy / (6 * area)
}
