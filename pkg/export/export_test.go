package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/marici/proofbench/pkg/ocr"
)

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSearchablePDF(t *testing.T) {
	boxes := []ocr.WordBox{
		{X1: 10, Y1: 100, X2: 100, Y2: 130, Text: "dharma"},
		{X1: 110, Y1: 100, X2: 200, Y2: 130, Text: "kshetre"},
	}
	data, err := SearchablePDF(testImage(t), boxes, 600, 800, DefaultConfig())
	if err != nil {
		t.Fatalf("SearchablePDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(8, len(data))])
	}
}

func TestSearchablePDFValidation(t *testing.T) {
	if _, err := SearchablePDF(nil, nil, 600, 800, DefaultConfig()); err == nil {
		t.Error("missing image should fail")
	}
	if _, err := SearchablePDF(testImage(t), nil, 0, 800, DefaultConfig()); err == nil {
		t.Error("zero width should fail")
	}
	if _, err := SearchablePDF([]byte("not an image"), nil, 600, 800, DefaultConfig()); err == nil {
		t.Error("undecodable image should fail")
	}
}
