package render

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/rotisserie/eris"

	"github.com/nz-insights/popgrid/internal/dataset"
)

const heatmapWidth = 1000

// Heatmap rasterizes the grid's population density into a PNG. Each cell's
// centroid is binned to a pixel and bins keep their maximum population, so
// dense urban cells stay visible at national scale. No charting library in
// use here: this is a straight cell-to-pixel projection.
func Heatmap(grid *dataset.Grid, dest string) error {
	minX, minY, maxX, maxY, ok := grid.Bounds()
	if !ok || maxX <= minX || maxY <= minY {
		return eris.New("render: grid has no drawable extent")
	}

	width := heatmapWidth
	height := int(float64(width) * (maxY - minY) / (maxX - minX))
	if height < 1 {
		height = 1
	}

	bins := make([]float64, width*height)
	var maxPop float64
	for _, c := range grid.Cells {
		if math.IsNaN(c.CentroidX) || math.IsNaN(c.CentroidY) || math.IsNaN(c.PopEst) {
			continue
		}
		px := int((c.CentroidX - minX) / (maxX - minX) * float64(width-1))
		// Image rows grow downward; northing grows upward.
		py := int((maxY - c.CentroidY) / (maxY - minY) * float64(height-1))
		// The extent is driven by geometry where present, so a cell's
		// authoritative centroid columns can land outside the raster.
		if px < 0 || px >= width || py < 0 || py >= height {
			continue
		}
		idx := py*width + px
		if c.PopEst > bins[idx] {
			bins[idx] = c.PopEst
		}
		if c.PopEst > maxPop {
			maxPop = c.PopEst
		}
	}
	if maxPop == 0 {
		maxPop = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range bins {
		x, y := i%width, i/width
		if bins[i] == 0 {
			img.Set(x, y, color.White)
			continue
		}
		// Square-root scaling keeps sparse rural cells from vanishing
		// next to dense city maxima.
		img.Set(x, y, rampColor(math.Sqrt(bins[i]/maxPop)))
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", dest)
	}
	defer f.Close() //nolint:errcheck

	if err := png.Encode(f, img); err != nil {
		return eris.Wrapf(err, "render: encode %s", dest)
	}
	return nil
}

// rampColor maps t in [0,1] onto a light-yellow to dark-red ramp.
func rampColor(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	// #FFF7BC at t=0 toward #99000A at t=1.
	r := 255 - t*(255-153)
	g := 247 - t*247
	b := 188 - t*(188-10)
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}
