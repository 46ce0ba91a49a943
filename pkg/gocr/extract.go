package gocr

import (
	"fmt"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/marici/proofbench/pkg/ocr"
)

// PageResult is one OCR'd page: its plain text and one pixel-coordinate box
// per recognized word.
type PageResult struct {
	Text   string
	Boxes  []ocr.WordBox
	Width  float64
	Height float64
}

// BoxesTSV renders the word boxes in the page transport format.
func (p *PageResult) BoxesTSV() string {
	return ocr.FormatTSV(p.Boxes)
}

// ExtractPage converts the first page of a Document AI response into a
// PageResult. Tokens without a bounding poly are kept in the text but get no
// box.
func ExtractPage(doc *documentaipb.Document) (*PageResult, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, fmt.Errorf("no pages in Document AI response")
	}
	page := doc.Pages[0]

	result := &PageResult{
		Text: textFromLayout(page.Layout, doc.Text),
	}
	if page.Dimension != nil {
		result.Width = float64(page.Dimension.Width)
		result.Height = float64(page.Dimension.Height)
	}

	for _, token := range page.Tokens {
		text := strings.TrimSpace(tokenText(token, doc.Text))
		if text == "" {
			continue
		}
		box, ok := pixelBox(token.Layout, page.Dimension)
		if !ok {
			continue
		}
		box.Text = text
		result.Boxes = append(result.Boxes, box)
	}
	return result, nil
}

// tokenText extracts a token's text, trimming the trailing whitespace that
// Document AI includes when the token carries a detected break.
func tokenText(token *documentaipb.Document_Page_Token, fullText string) string {
	text := textFromLayout(token.Layout, fullText)
	if token.DetectedBreak != nil &&
		token.DetectedBreak.Type != documentaipb.Document_Page_Token_DetectedBreak_TYPE_UNSPECIFIED {
		runes := []rune(text)
		if len(runes) > 0 {
			last := runes[len(runes)-1]
			if last == ' ' || last == '\n' || last == '\r' || last == '\t' {
				text = string(runes[:len(runes)-1])
			}
		}
	}
	return text
}

// textFromLayout extracts text from a layout's text anchor segments.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	total := len(runes)
	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > total {
			end = total
		}
		if start > end {
			start = end
		}
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}

// pixelBox scales a layout's normalized vertices (0-1) to pixel coordinates
// using the page dimension.
func pixelBox(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) (ocr.WordBox, bool) {
	if layout == nil || layout.BoundingPoly == nil || dim == nil ||
		len(layout.BoundingPoly.NormalizedVertices) < 4 {
		return ocr.WordBox{}, false
	}
	v := layout.BoundingPoly.NormalizedVertices
	return ocr.WordBox{
		X1: float64(v[0].X) * float64(dim.Width),
		Y1: float64(v[0].Y) * float64(dim.Height),
		X2: float64(v[2].X) * float64(dim.Width),
		Y2: float64(v[2].Y) * float64(dim.Height),
	}, true
}
