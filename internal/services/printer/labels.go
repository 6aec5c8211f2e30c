// Package printer renders printable pallet labels for Ucps: a QR code of
// the Ucp code with a human-readable caption, laid out on an A4 grid.
package printer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Label is one Ucp label to print.
type Label struct {
	Code      string
	Summary   string // short content description, e.g. "3 products, 420 units"
	CreatedAt time.Time
}

// SheetConfig controls the label grid layout.
type SheetConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultSheet is a 2x4 grid on A4 with sensible margins.
var DefaultSheet = SheetConfig{
	Cols:       2,
	Rows:       4,
	MarginTop:  10,
	MarginLeft: 10,
	GapX:       5,
	GapY:       5,
}

// GenerateLabelSheet creates a PDF with one QR label per Ucp.
func GenerateLabelSheet(labels []Label, cfg SheetConfig) ([]byte, error) {
	if cfg.Cols < 1 || cfg.Rows < 1 {
		return nil, fmt.Errorf("label grid must have at least one column and one row")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	pageWidth, pageHeight := 210.0, 297.0
	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY
	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)
	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		qrPng, err := qrcode.Encode(label.Code, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr for %s: %w", label.Code, err)
		}

		imgName := fmt.Sprintf("qr_%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(qrPng))

		qrSize := labelH * 0.6
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}
		qrX := x + (labelW-qrSize)/2
		pdf.ImageOptions(imgName, qrX, y+2, qrSize, qrSize, false, opts, 0, "")

		// Caption under the QR: code, summary, creation date
		textY := y + 2 + qrSize + 2
		pdf.SetXY(x, textY)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(labelW, 5, label.Code, "", 0, "C", false, 0, "")

		pdf.SetXY(x, textY+5)
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(labelW, 4, label.Summary, "", 0, "C", false, 0, "")

		pdf.SetXY(x, textY+9)
		pdf.CellFormat(labelW, 4, label.CreatedAt.Format("2006-01-02"), "", 0, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render label sheet: %w", err)
	}
	return buf.Bytes(), nil
}
