package pipeline

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/nz-insights/popgrid/internal/dataset"
)

// Record is the accumulated output for one chunk. Analysis and Policy hold
// the raw generated text; cleaning is deferred to the consumers so nothing is
// lost before rendering. A record is never mutated after its chunk finishes.
type Record struct {
	Index      int // 1-based chunk number
	Place      string
	Summary    Summary
	Analysis   string
	Policy     string
	Livability int
}

// Pipeline drives the per-chunk enrichment: centroid, place name, summary,
// three generations, sanitized score. External failures degrade to fallback
// values and bad chunks are skipped; a run never aborts on a single chunk.
type Pipeline struct {
	resolver  *PlaceResolver
	generator *Generator
	pacer     *Pacer
	chunkSize int
	log       *zap.Logger
}

// New assembles a Pipeline. pacer spaces the generation calls; chunkSize must
// be positive (validated by config before construction).
func New(resolver *PlaceResolver, generator *Generator, pacer *Pacer, chunkSize int) *Pipeline {
	return &Pipeline{
		resolver:  resolver,
		generator: generator,
		pacer:     pacer,
		chunkSize: chunkSize,
		log:       zap.L().With(zap.String("component", "pipeline")),
	}
}

// Run processes the grid chunk by chunk and returns one Record per surviving
// chunk, in chunk order. Cancelling the context stops between chunks; the
// records accumulated so far are still returned.
func (p *Pipeline) Run(ctx context.Context, grid *dataset.Grid) []Record {
	chunks := SplitCells(grid.Cells, p.chunkSize)
	records := make([]Record, 0, len(chunks))

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			p.log.Warn("run cancelled", zap.Int("completed_chunks", len(records)))
			break
		}

		log := p.log.With(zap.Int("chunk", i+1), zap.Int("chunks", len(chunks)))
		log.Info("processing chunk", zap.Int("size", len(chunk)))

		rec, ok := p.processChunk(ctx, i+1, chunk, log)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	p.log.Info("run complete",
		zap.Int("chunks", len(chunks)),
		zap.Int("records", len(records)),
		zap.Int("geocode_cache_entries", p.resolver.CacheSize()),
	)
	return records
}

// processChunk walks one chunk through the enrichment states. ok is false
// when the chunk is skipped; skips are local and never fail the run.
func (p *Pipeline) processChunk(ctx context.Context, index int, chunk []dataset.Cell, log *zap.Logger) (Record, bool) {
	if len(chunk) == 0 {
		log.Warn("skipping empty chunk")
		return Record{}, false
	}

	cx, cy, ok := meanCentroid(chunk)
	if !ok {
		log.Warn("skipping chunk with undefined centroid")
		return Record{}, false
	}

	lon, lat := dataset.NZTMInverse(cx, cy)
	if !finite(lon) || !finite(lat) {
		log.Warn("skipping chunk: coordinate transform produced no result",
			zap.Float64("easting", cx),
			zap.Float64("northing", cy),
		)
		return Record{}, false
	}

	place := p.resolver.Resolve(ctx, lon, lat)
	log.Info("chunk place resolved", zap.String("place", place))

	summary, ok := Summarize(chunk)
	if !ok {
		log.Warn("skipping chunk without population figures")
		return Record{}, false
	}

	analysis := p.generate(ctx, analysisPrompt(place, summary))
	policy := p.generate(ctx, policyPrompt(place, summary))
	rawScore := p.generate(ctx, livabilityPrompt(summary))

	score := ExtractScore(Clean(rawScore))
	log.Info("livability score generated", zap.Int("score", score))

	return Record{
		Index:      index,
		Place:      place,
		Summary:    summary,
		Analysis:   analysis,
		Policy:     policy,
		Livability: score,
	}, true
}

// generate invokes the generator and then pays the inter-call pause. The
// pause is deferred so it is unconditional, success or not.
func (p *Pipeline) generate(ctx context.Context, prompt string) string {
	defer p.pacer.Pace(ctx)
	return p.generator.Generate(ctx, prompt)
}

// meanCentroid averages the finite planar centroids of the chunk. ok is
// false when every centroid is undefined.
func meanCentroid(chunk []dataset.Cell) (x, y float64, ok bool) {
	var sx, sy float64
	var n int
	for _, c := range chunk {
		if math.IsNaN(c.CentroidX) || math.IsNaN(c.CentroidY) {
			continue
		}
		sx += c.CentroidX
		sy += c.CentroidY
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return sx / float64(n), sy / float64(n), true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
