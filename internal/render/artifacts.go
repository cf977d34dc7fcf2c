package render

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nz-insights/popgrid/internal/dataset"
	"github.com/nz-insights/popgrid/internal/pipeline"
)

// Paths locates the rendered artifacts. A failed artifact leaves its path
// empty; the report embeds whatever did render.
type Paths struct {
	Heatmap         string
	PopulationChart string
	LivabilityChart string
}

// Artifacts renders the heatmap and both bar charts into dir, concurrently.
// Failures are reported per artifact and never abort the remaining ones.
func Artifacts(ctx context.Context, grid *dataset.Grid, records []pipeline.Record, dir string) Paths {
	log := zap.L().With(zap.String("component", "render"))

	var mu sync.Mutex
	var paths Paths
	set := func(field *string, path string) {
		mu.Lock()
		defer mu.Unlock()
		*field = path
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		dest := filepath.Join(dir, "population_density_map.png")
		if err := Heatmap(grid, dest); err != nil {
			log.Error("heatmap failed", zap.Error(err))
			return nil
		}
		set(&paths.Heatmap, dest)
		log.Info("heatmap saved", zap.String("path", dest))
		return nil
	})
	g.Go(func() error {
		dest := filepath.Join(dir, "top_population_chunks.png")
		if err := PopulationChart(records, dest); err != nil {
			log.Error("population chart failed", zap.Error(err))
			return nil
		}
		set(&paths.PopulationChart, dest)
		log.Info("population chart saved", zap.String("path", dest))
		return nil
	})
	g.Go(func() error {
		dest := filepath.Join(dir, "top_livability_chunks.png")
		if err := LivabilityChart(records, dest); err != nil {
			log.Error("livability chart failed", zap.Error(err))
			return nil
		}
		set(&paths.LivabilityChart, dest)
		log.Info("livability chart saved", zap.String("path", dest))
		return nil
	})
	_ = g.Wait()

	return paths
}
