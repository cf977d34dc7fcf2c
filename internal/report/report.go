// Package report assembles the final PDF from pipeline records and rendered
// chart artifacts.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nz-insights/popgrid/internal/pipeline"
	"github.com/nz-insights/popgrid/internal/render"
)

// Meta carries the run-level facts stamped into the report footer.
type Meta struct {
	RunID       string
	Model       string
	GeneratedAt time.Time
	Artifacts   render.Paths
}

const (
	pageWidth  = 190.0 // usable A4 width at default margins, mm
	imageWidth = 180.0
)

// Write assembles the report at path. Missing chart images are skipped with a
// note; a record's pages always render even when its generations degraded to
// stubs, so the document is complete for whatever the run produced.
func Write(records []pipeline.Record, meta Meta, path string) error {
	log := zap.L().With(zap.String("component", "report"))
	printer := message.NewPrinter(language.English)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	titlePage(pdf, meta)
	imagePages(pdf, log, meta.Artifacts)
	methodologyPage(pdf)
	for _, rec := range records {
		recordPages(pdf, printer, rec)
	}
	footerPage(pdf, printer, records, meta)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return eris.Wrapf(err, "report: stat %s", path)
	}
	log.Info("report written",
		zap.String("path", path),
		zap.Int64("bytes", info.Size()),
		zap.Int("records", len(records)))
	return nil
}

func titlePage(pdf *fpdf.Fpdf, meta Meta) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	pdf.Ln(60)
	pdf.CellFormat(pageWidth, 12, "New Zealand Population Grid Analysis", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.Ln(8)
	pdf.CellFormat(pageWidth, 8, "250m Grid (Estimated Resident Population 2023)", "", 1, "C", false, 0, "")
	pdf.Ln(20)
	pdf.SetFont("Helvetica", "I", 11)
	pdf.CellFormat(pageWidth, 6, meta.GeneratedAt.Format("2 January 2006"), "", 1, "C", false, 0, "")
}

// imagePages embeds whichever chart artifacts rendered. An empty path means
// that artifact failed upstream; the page notes the gap instead of aborting.
func imagePages(pdf *fpdf.Fpdf, log *zap.Logger, paths render.Paths) {
	images := []struct {
		title string
		path  string
	}{
		{"Population Density Map", paths.Heatmap},
		{"Top 5 Chunks by Total Population", paths.PopulationChart},
		{"Top 5 Most Livable Chunks", paths.LivabilityChart},
	}
	for _, img := range images {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(pageWidth, 10, img.title, "", 1, "L", false, 0, "")
		pdf.Ln(4)
		if img.path == "" {
			pdf.SetFont("Helvetica", "I", 11)
			pdf.CellFormat(pageWidth, 8, "(chart unavailable for this run)", "", 1, "L", false, 0, "")
			log.Warn("report missing chart", zap.String("title", img.title))
			continue
		}
		if _, err := os.Stat(img.path); err != nil {
			pdf.SetFont("Helvetica", "I", 11)
			pdf.CellFormat(pageWidth, 8, "(chart unavailable for this run)", "", 1, "L", false, 0, "")
			log.Warn("report chart unreadable", zap.String("path", img.path), zap.Error(err))
			continue
		}
		pdf.ImageOptions(img.path, 15, pdf.GetY(), imageWidth, 0, false,
			fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
}

func methodologyPage(pdf *fpdf.Fpdf) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pageWidth, 10, "Livability Scoring", "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(pageWidth, 6,
		"Each chunk of grid cells is scored from 1 to 100 by a language model "+
			"given only that chunk's population statistics (mean, total, maximum and "+
			"minimum estimated residents per 250m cell) and the place name resolved "+
			"for its centroid. The score reflects density alone, not amenities, "+
			"climate or cost of living. Responses that contain no usable integer "+
			"fall back to a neutral 50.",
		"", "L", false)
}

// recordPages emits the analysis page then the policy page for one record.
// Generation output is stored raw by the pipeline and cleaned here, at the
// last point before display.
func recordPages(pdf *fpdf.Fpdf, printer *message.Printer, rec pipeline.Record) {
	header := func(kind string) {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(pageWidth, 9, fmt.Sprintf("Chunk %d: %s", rec.Index, rec.Place), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(pageWidth, 6, printer.Sprintf(
			"Population: %.0f total, %.1f mean per cell. Livability: %d/100.",
			rec.Summary.Sum, rec.Summary.Mean, rec.Livability), "", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(pageWidth, 8, kind, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}

	header("Demographic Analysis")
	pdf.MultiCell(pageWidth, 5, sanitizeText(pipeline.Clean(rec.Analysis)), "", "L", false)

	header("Policy Recommendations")
	pdf.MultiCell(pageWidth, 5, sanitizeText(pipeline.Clean(rec.Policy)), "", "L", false)
}

func footerPage(pdf *fpdf.Fpdf, printer *message.Printer, records []pipeline.Record, meta Meta) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(pageWidth, 9, "Run Details", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 10)

	var total float64
	for _, rec := range records {
		total += rec.Summary.Sum
	}

	lines := []string{
		"Generated: " + meta.GeneratedAt.Format(time.RFC1123),
		"Run ID: " + meta.RunID,
		"Model: " + modelLabel(meta.Model),
		printer.Sprintf("Chunks analyzed: %d", len(records)),
		printer.Sprintf("Population covered: %.0f", total),
		"Source: Stats NZ 250m population grid (ERP 2023)",
	}
	for _, line := range lines {
		pdf.CellFormat(pageWidth, 6, line, "", 1, "L", false, 0, "")
	}
}

func modelLabel(model string) string {
	if model == "" {
		return "disabled"
	}
	return model
}

// sanitizeText strips characters the core fonts cannot encode so a stray
// codepoint in model output never corrupts the page.
func sanitizeText(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7F) {
			out = append(out, r)
			continue
		}
		// Latin-1 range survives the cp1252 core fonts.
		if r >= 0xA0 && r <= 0xFF {
			out = append(out, r)
			continue
		}
		out = append(out, '?')
	}
	return string(out)
}
