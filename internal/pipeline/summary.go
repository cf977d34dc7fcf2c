package pipeline

import (
	"fmt"
	"math"

	"github.com/nz-insights/popgrid/internal/dataset"
)

// Summary holds the per-chunk population statistics. Immutable once computed.
type Summary struct {
	Mean float64
	Sum  float64
	Max  float64
	Min  float64
}

// Summarize aggregates PopEst over the chunk, ignoring NaN values. ok is
// false when the chunk carries no population figures at all, in which case
// the chunk is skipped by the orchestrator.
func Summarize(cells []dataset.Cell) (Summary, bool) {
	s := Summary{Max: math.Inf(-1), Min: math.Inf(1)}
	var count int
	for _, c := range cells {
		if math.IsNaN(c.PopEst) {
			continue
		}
		s.Sum += c.PopEst
		count++
		if c.PopEst > s.Max {
			s.Max = c.PopEst
		}
		if c.PopEst < s.Min {
			s.Min = c.PopEst
		}
	}
	if count == 0 {
		return Summary{}, false
	}
	s.Mean = s.Sum / float64(count)
	return s, true
}

// CSV renders the summary as a compact two-line table, the form the prompts
// embed.
func (s Summary) CSV() string {
	return fmt.Sprintf("mean,sum,max,min\n%.2f,%.2f,%.2f,%.2f\n", s.Mean, s.Sum, s.Max, s.Min)
}
