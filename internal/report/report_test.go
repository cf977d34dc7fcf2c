package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nz-insights/popgrid/internal/pipeline"
	"github.com/nz-insights/popgrid/internal/render"
)

func testRecords() []pipeline.Record {
	return []pipeline.Record{
		{
			Index:      1,
			Place:      "Auckland",
			Summary:    pipeline.Summary{Mean: 14.2, Sum: 52000, Max: 310, Min: 0},
			Analysis:   `content="Dense urban core.\nGrowth concentrated near transit.", thinking=None`,
			Policy:     `content="1. Upzone near stations.", thinking=None`,
			Livability: 61,
		},
		{
			Index:      3,
			Place:      "Dunedin",
			Summary:    pipeline.Summary{Mean: 4.1, Sum: 9000, Max: 120, Min: 0},
			Analysis:   "[generation disabled] Based ONLY on the statistics...",
			Policy:     "[generation disabled] You are an urban planner...",
			Livability: 50,
		},
	}
}

func testMeta(artifacts render.Paths) Meta {
	return Meta{
		RunID:       "2f1c8a6e-0000-4000-8000-000000000000",
		Model:       "claude-haiku-4-5-20251001",
		GeneratedAt: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		Artifacts:   artifacts,
	}
}

func TestWriteProducesPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, Write(testRecords(), testMeta(render.Paths{}), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 1000)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestWriteSkipsMissingImages(t *testing.T) {
	// Paths that point nowhere must degrade to a note, not an error.
	path := filepath.Join(t.TempDir(), "report.pdf")
	meta := testMeta(render.Paths{Heatmap: filepath.Join(t.TempDir(), "gone.png")})
	require.NoError(t, Write(testRecords(), meta, path))
}

func TestWriteEmptyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, Write(nil, testMeta(render.Paths{}), path))
}

func TestWriteFailsOnBadPath(t *testing.T) {
	err := Write(testRecords(), testMeta(render.Paths{}), filepath.Join(t.TempDir(), "missing", "report.pdf"))
	require.Error(t, err)
}

func TestModelLabel(t *testing.T) {
	assert.Equal(t, "disabled", modelLabel(""))
	assert.Equal(t, "m", modelLabel("m"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "ascii\nline", sanitizeText("ascii\nline"))
	assert.Equal(t, "caf?", sanitizeText("caf–"))
	assert.Equal(t, "café", sanitizeText("café"))
}
