// Package export builds a searchable PDF for a proofed page: the page image
// with an invisible text layer whose words sit at the positions the OCR word
// boxes report, so the exported page can be selected and searched.
package export

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/marici/proofbench/pkg/ocr"

	// Register decoders for the page image formats served by the library.
	_ "image/jpeg"
	_ "image/png"
)

// SearchablePDF assembles a single-page PDF from the page image and its OCR
// word boxes. width and height are the image's pixel dimensions, which
// become the PDF page size in points.
func SearchablePDF(imageData []byte, boxes []ocr.WordBox, width, height float64, cfg Config) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid page dimensions %gx%g", width, height)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})

	imageType, err := detectImageType(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to detect image type: %w", err)
	}
	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: imageType}
	pdf.RegisterImageOptionsReader("page", opts, bytes.NewReader(imageData))
	pdf.ImageOptions("page", 0, 0, width, height, false, opts, 0, "")

	if err := drawTextLayer(pdf, boxes, cfg); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// drawTextLayer draws every word box onto a named PDF layer. The layer is
// invisible unless debug rendering is on.
func drawTextLayer(pdf *fpdf.Fpdf, boxes []ocr.WordBox, cfg Config) error {
	layer := pdf.AddLayer(cfg.LayerName, true)
	pdf.BeginLayer(layer)
	pdf.SetFont(cfg.Font.Name, cfg.Font.Style, cfg.Font.Size)

	if cfg.Debug {
		pdf.SetTextColor(255, 0, 0)
	} else {
		pdf.SetAlpha(0.0, "Normal")
	}

	encodingErrors := 0
	for _, box := range boxes {
		drawWord(pdf, box, cfg, &encodingErrors)
	}
	pdf.EndLayer()

	// A handful of unencodable words is tolerable; a large fraction means
	// the page script cannot be carried by the layer font.
	if len(boxes) > 0 && encodingErrors > len(boxes)/10 {
		return fmt.Errorf("character encoding issues in %d of %d words",
			encodingErrors, len(boxes))
	}
	return nil
}

// drawWord renders one word, scaling the font so the string spans the box
// width and placing the baseline by the font's ascent ratio.
func drawWord(pdf *fpdf.Fpdf, box ocr.WordBox, cfg Config, encodingErrors *int) {
	x, y := box.X1, box.Y1
	wordWidth := box.X2 - box.X1

	// PDF text objects carry Latin-1; words outside it are tracked but
	// still drawn so positions stay aligned.
	latin1, err := charmap.ISO8859_1.NewEncoder().String(box.Text)
	if err != nil {
		*encodingErrors++
		latin1 = box.Text
	}

	strWidth := pdf.GetStringWidth(latin1)
	if strWidth > 0 {
		scale := wordWidth / strWidth
		pdf.SetFontSize(cfg.Font.Size * scale)
	}

	fontSize, _ := pdf.GetFontSize()
	y += fontSize * cfg.Font.AscentRatio

	pdf.Text(x, y, latin1)
	pdf.SetFontSize(cfg.Font.Size)

	if cfg.Debug {
		height := box.Y2 - box.Y1
		pdf.Rect(x, y-(fontSize*cfg.Font.AscentRatio), wordWidth, height, "D")
	}
}

// detectImageType sniffs whether the data is PNG, JPEG, etc.
func detectImageType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image config: %w", err)
	}
	return strings.ToUpper(format), nil
}
