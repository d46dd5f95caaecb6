package report

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const qrSizeMM = 32

// SavePDF renders a printable channel list.
func SavePDF(rep ChannelReport, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Channel List", true)
	pdf.SetAuthor("sstcs", false)
	pdf.SetCreator("sstcs", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Channel List")
	addSummarySection(pdf, tr, rep)
	addChannelTable(pdf, tr, rep)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, tr func(string) string, rep ChannelReport) {
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "", 11)
	generated := rep.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	items := []struct {
		label string
		value string
	}{
		{label: "Source", value: emptyFallback(rep.Source, "-")},
		{label: "Category", value: emptyFallback(rep.Category, "-")},
		{label: "Channels", value: strconv.Itoa(len(rep.Channels))},
		{label: "Generated", value: generated.Format(time.RFC3339)},
		{label: "SHA-256", value: emptyFallback(shortDigest(rep.Digest), "-")},
	}
	for _, item := range items {
		pdf.CellFormat(30, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(110, 6, tr(item.value), "", 1, "L", false, 0, "")
	}

	if png, err := DigestQR(rep.Digest, 256); err == nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("digest", opts, bytes.NewReader(png))
		pageW, _ := pdf.GetPageSize()
		_, _, right, _ := pdf.GetMargins()
		pdf.ImageOptions("digest", pageW-right-qrSizeMM, top, qrSizeMM, qrSizeMM, false, opts, 0, "")
		if y := top + qrSizeMM + 2; pdf.GetY() < y {
			pdf.SetY(y)
		}
	}
	pdf.Ln(4)
}

func addChannelTable(pdf *gofpdf.Fpdf, tr func(string) string, rep ChannelReport) {
	headers := []string{"Type", "No.", "Title", "Major", "Minor", "PTC", "Prog"}
	widths := []float64{16, 16, 82, 16, 16, 16, 18}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	if len(rep.Channels) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No channels.", "", "L", false)
		return
	}

	pdf.SetFont("Helvetica", "", 9)
	lineHeight := 5.0
	for _, d := range rep.Channels {
		values := []string{
			d.Type.String(),
			tr(d.DisplayNumber),
			tr(d.Title),
			strconv.Itoa(int(d.Major)),
			strconv.Itoa(int(d.Minor)),
			strconv.Itoa(int(d.PTC)),
			strconv.Itoa(int(d.ProgramNumber)),
		}
		renderTableRow(pdf, widths, values, lineHeight)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		// values are already in the font's single byte encoding, so split
		// on bytes; SplitText would read them as UTF-8.
		var lines []string
		for _, line := range pdf.SplitLines([]byte(text), widths[i]-2) {
			lines = append(lines, string(line))
		}
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	if _, pageH := pdf.GetPageSize(); yStart+rowHeight > pageH-20 {
		pdf.AddPage()
		xStart, yStart = pdf.GetX(), pdf.GetY()
	}
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		// Pad short columns so every cell border spans the full row.
		for len(lines) < maxLines {
			lines = append(lines, "")
		}
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func shortDigest(d string) string {
	if len(d) > 32 {
		return d[:32] + "..."
	}
	return d
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
