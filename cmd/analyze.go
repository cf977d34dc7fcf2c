package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nz-insights/popgrid/internal/dataset"
	"github.com/nz-insights/popgrid/internal/pipeline"
	"github.com/nz-insights/popgrid/internal/render"
	"github.com/nz-insights/popgrid/internal/report"
	anthropicpkg "github.com/nz-insights/popgrid/pkg/anthropic"
	"github.com/nz-insights/popgrid/pkg/nominatim"
)

var (
	analyzeInput     string
	analyzeFormat    string
	analyzeStatsOnly bool
	analyzeOut       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the enrichment pipeline over a population grid file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		input := analyzeInput
		if input == "" {
			input = cfg.Grid.Path
		}
		if input == "" {
			return eris.New("analyze: no input file, set --input or grid.path")
		}

		grid, err := loadGrid(input, analyzeFormat)
		if err != nil {
			return err
		}
		zap.L().Info("grid loaded",
			zap.String("path", input),
			zap.Int("cells", len(grid.Cells)),
			zap.Int("epsg", grid.EPSG),
		)

		printer := message.NewPrinter(language.English)
		stats := grid.PopulationStats()
		printer.Printf("Cells: %d\n", stats.Count)
		printer.Printf("Total population: %.0f\n", stats.Total)
		printer.Printf("Mean per cell: %.2f\n", stats.Mean)
		printer.Printf("Max per cell: %.0f\n", stats.Max)
		printer.Printf("Min per cell: %.0f\n", stats.Min)

		if analyzeStatsOnly {
			return nil
		}

		outDir := analyzeOut
		if outDir == "" {
			outDir = cfg.Output.Dir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "analyze: create output dir %s", outDir)
		}

		p := buildPipeline()
		records := p.Run(ctx, grid)
		zap.L().Info("pipeline finished", zap.Int("records", len(records)))

		paths := render.Artifacts(ctx, grid, records, outDir)

		meta := report.Meta{
			RunID:       uuid.NewString(),
			Model:       generationModel(),
			GeneratedAt: time.Now(),
			Artifacts:   paths,
		}
		reportPath := filepath.Join(outDir, "population_report.pdf")
		if err := report.Write(records, meta, reportPath); err != nil {
			// The charts are already on disk; report failure should not
			// erase a run's worth of paced API calls.
			zap.L().Error("report assembly failed", zap.Error(err))
			return nil
		}

		printer.Printf("Report: %s\n", reportPath)
		return nil
	},
}

// loadGrid picks the loader by --format, falling back to the file extension.
func loadGrid(path, format string) (*dataset.Grid, error) {
	if format == "" {
		if strings.EqualFold(filepath.Ext(path), ".shp") {
			format = "shapefile"
		} else {
			format = "geojson"
		}
	}
	switch format {
	case "geojson":
		return dataset.LoadGeoJSON(path)
	case "shapefile":
		return dataset.LoadShapefile(path)
	default:
		return nil, eris.Errorf("analyze: unknown format %q", format)
	}
}

func buildPipeline() *pipeline.Pipeline {
	nomOpts := []nominatim.Option{
		nominatim.WithContact(cfg.Nominatim.Contact),
	}
	if cfg.Nominatim.BaseURL != "" {
		nomOpts = append(nomOpts, nominatim.WithBaseURL(cfg.Nominatim.BaseURL))
	}
	if cfg.Nominatim.TimeoutSecs > 0 {
		nomOpts = append(nomOpts, nominatim.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Nominatim.TimeoutSecs) * time.Second,
		}))
	}
	resolver := pipeline.NewPlaceResolver(
		nominatim.NewClient(nomOpts...),
		pipeline.NewPacer(cfg.Nominatim.GeocodePace()),
	)

	var backend anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		backend = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Warn("anthropic key not set, generation disabled")
	}
	generator := pipeline.NewGenerator(backend, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)

	return pipeline.New(
		resolver,
		generator,
		pipeline.NewPacer(cfg.Pipeline.GenerationPace()),
		cfg.Pipeline.ChunkSize,
	)
}

func generationModel() string {
	if cfg.Anthropic.Key == "" {
		return ""
	}
	return cfg.Anthropic.Model
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "grid file (default from config grid.path)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "input format: geojson or shapefile (default by extension)")
	analyzeCmd.Flags().BoolVar(&analyzeStatsOnly, "stats-only", false, "print population statistics and exit")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "artifact directory (default from config output.dir)")
	rootCmd.AddCommand(analyzeCmd)
}
