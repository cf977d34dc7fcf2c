package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Property names expected on each grid feature.
const (
	PropGridID    = "GridID"
	PropPopEst    = "PopEst2023"
	PropCentroidX = "CENTROID_X"
	PropCentroidY = "CENTROID_Y"
)

// LoadGeoJSON reads a grid FeatureCollection and normalizes it to NZTM2000.
// Unreadable files, unparsable collections, unsupported coordinate systems and
// a schema missing GridID or PopEst2023 are all fatal.
func LoadGeoJSON(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}

	epsg, err := collectionEPSG(data)
	if err != nil {
		return nil, err
	}
	if epsg != EPSGWGS84 && epsg != EPSGNZTM {
		return nil, eris.Errorf("dataset: unsupported coordinate system EPSG:%d", epsg)
	}

	if err := validateSchema(&fc); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "dataset.loader"))
	if epsg == EPSGWGS84 {
		log.Debug("reprojecting grid to NZTM2000", zap.Int("features", len(fc.Features)))
	}

	grid := &Grid{Cells: make([]Cell, 0, len(fc.Features)), EPSG: EPSGNZTM}
	for _, f := range fc.Features {
		cell := Cell{
			GridID:    propString(f.Properties, PropGridID),
			PopEst:    propFloat(f.Properties, PropPopEst),
			CentroidX: propFloat(f.Properties, PropCentroidX),
			CentroidY: propFloat(f.Properties, PropCentroidY),
		}

		poly := featurePolygon(f.Geometry)
		if poly != nil && epsg == EPSGWGS84 {
			poly = projectPolygon(poly)
		}
		cell.Geometry = poly

		// Centroid columns are authoritative when present; otherwise derive
		// planar centroids from the cell polygon.
		if math.IsNaN(cell.CentroidX) || math.IsNaN(cell.CentroidY) {
			cell.CentroidX, cell.CentroidY = ringCentroid(poly)
		}

		grid.Cells = append(grid.Cells, cell)
	}

	log.Info("grid loaded",
		zap.String("path", path),
		zap.Int("cells", len(grid.Cells)),
	)
	return grid, nil
}

// collectionEPSG reads the legacy top-level crs member; absent means WGS84
// per the GeoJSON default.
func collectionEPSG(data []byte) (int, error) {
	var envelope struct {
		CRS *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return 0, eris.Wrap(err, "dataset: parse crs")
	}
	if envelope.CRS == nil || envelope.CRS.Properties.Name == "" {
		return EPSGWGS84, nil
	}

	name := envelope.CRS.Properties.Name
	idx := strings.LastIndexAny(name, ":")
	if idx < 0 || idx == len(name)-1 {
		return 0, eris.Errorf("dataset: malformed crs name %q", name)
	}
	code, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0, eris.Errorf("dataset: malformed crs name %q", name)
	}
	return code, nil
}

// validateSchema requires the collection to expose GridID and PopEst2023 on
// at least one feature. Absent centroid columns are tolerated; they are
// derived from the geometry.
func validateSchema(fc *geojson.FeatureCollection) error {
	if len(fc.Features) == 0 {
		return eris.New("dataset: feature collection is empty")
	}
	var hasID, hasPop bool
	for _, f := range fc.Features {
		if _, ok := f.Properties[PropGridID]; ok {
			hasID = true
		}
		if _, ok := f.Properties[PropPopEst]; ok {
			hasPop = true
		}
		if hasID && hasPop {
			return nil
		}
	}
	if !hasID {
		return eris.Errorf("dataset: required attribute %s missing from source", PropGridID)
	}
	return eris.Errorf("dataset: required attribute %s missing from source", PropPopEst)
}

// featurePolygon extracts a polygon from the feature geometry. MultiPolygon
// cells collapse to their first member; anything else is treated as missing.
func featurePolygon(g geom.T) *geom.Polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		return t
	case *geom.MultiPolygon:
		if t.NumPolygons() > 0 {
			return t.Polygon(0)
		}
	}
	return nil
}

// projectPolygon rewrites every vertex from WGS84 lon/lat to NZTM2000.
func projectPolygon(p *geom.Polygon) *geom.Polygon {
	coords := append([]float64(nil), p.FlatCoords()...)
	stride := p.Stride()
	for i := 0; i+1 < len(coords); i += stride {
		coords[i], coords[i+1] = NZTMForward(coords[i], coords[i+1])
	}
	return geom.NewPolygonFlat(geom.XY, coords, p.Ends()).SetSRID(EPSGNZTM)
}

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func propFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
