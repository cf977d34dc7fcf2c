// Package pipeline implements the batch enrichment pipeline: chunking,
// place resolution, text generation and per-chunk record accumulation.
package pipeline

import "github.com/nz-insights/popgrid/internal/dataset"

// SplitCells partitions cells into contiguous, order-preserving chunks of at
// most size elements. The windows share the input's backing array. size must
// be positive; config validation enforces that before the pipeline starts.
func SplitCells(cells []dataset.Cell, size int) [][]dataset.Cell {
	if len(cells) == 0 {
		return nil
	}
	chunks := make([][]dataset.Cell, 0, (len(cells)+size-1)/size)
	for start := 0; start < len(cells); start += size {
		end := min(start+size, len(cells))
		chunks = append(chunks, cells[start:end])
	}
	return chunks
}
