package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadShapefile reads the grid from an ESRI shapefile. Stats NZ distributes
// the grid in NZTM2000, so shapefile input is taken as planar already.
func LoadShapefile(path string) (*Grid, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, PropGridID)
	popIdx := fieldIndex(reader, PropPopEst)
	cxIdx := fieldIndex(reader, PropCentroidX)
	cyIdx := fieldIndex(reader, PropCentroidY)
	if idIdx < 0 {
		return nil, eris.Errorf("dataset: required attribute %s missing from shapefile", PropGridID)
	}
	if popIdx < 0 {
		return nil, eris.Errorf("dataset: required attribute %s missing from shapefile", PropPopEst)
	}

	grid := &Grid{EPSG: EPSGNZTM}
	for reader.Next() {
		_, shape := reader.Shape()

		cell := Cell{
			GridID:    strings.TrimSpace(reader.Attribute(idIdx)),
			PopEst:    attrFloat(reader, popIdx),
			CentroidX: attrFloat(reader, cxIdx),
			CentroidY: attrFloat(reader, cyIdx),
		}

		if poly, ok := shape.(*shp.Polygon); ok {
			cell.Geometry = shpPolygon(poly)
		}
		if math.IsNaN(cell.CentroidX) || math.IsNaN(cell.CentroidY) {
			cell.CentroidX, cell.CentroidY = ringCentroid(cell.Geometry)
		}

		grid.Cells = append(grid.Cells, cell)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "dataset: read shapefile %s", path)
	}
	if len(grid.Cells) == 0 {
		return nil, eris.New("dataset: shapefile contains no records")
	}

	zap.L().Info("grid loaded",
		zap.String("path", path),
		zap.Int("cells", len(grid.Cells)),
	)
	return grid, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func attrFloat(reader *shp.Reader, idx int) float64 {
	if idx < 0 {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reader.Attribute(idx)), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// shpPolygon converts a shapefile polygon to a geom.Polygon, ring by ring.
func shpPolygon(p *shp.Polygon) *geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var flat []float64
	var ends []int
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends).SetSRID(EPSGNZTM)
}
