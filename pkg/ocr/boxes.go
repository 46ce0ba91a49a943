// Package ocr holds the OCR word-box model used by the proofing editor: the
// tab-separated transport format stored alongside each page, y-proximity
// grouping of boxes into lines, and ingestion of hOCR output from OCR
// engines that produce it.
package ocr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// WordBox is one recognized word with its rectangle in image pixel
// coordinates. X1, Y1 is the top-left corner; X2, Y2 the bottom-right.
type WordBox struct {
	X1   float64
	Y1   float64
	X2   float64
	Y2   float64
	Text string
}

// Line is a group of boxes sharing a y-band, ordered left to right.
type Line struct {
	Boxes []WordBox
}

// Text returns the line's space-joined word texts.
func (l Line) Text() string {
	parts := make([]string, len(l.Boxes))
	for i, b := range l.Boxes {
		parts[i] = b.Text
	}
	return strings.Join(parts, " ")
}

// DefaultLineTolerance is the vertical distance, in pixels, within which two
// boxes are considered part of the same line.
const DefaultLineTolerance = 10.0

// ParseTSV decodes the page transport format: one box per line, five
// tab-separated fields (x1, y1, x2, y2, text). Lines that do not parse are
// dropped; empty input yields no boxes.
func ParseTSV(data string) []WordBox {
	var boxes []WordBox
	for _, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 5)
		if len(fields) != 5 {
			continue
		}
		x1, err1 := strconv.ParseFloat(fields[0], 64)
		y1, err2 := strconv.ParseFloat(fields[1], 64)
		x2, err3 := strconv.ParseFloat(fields[2], 64)
		y2, err4 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		boxes = append(boxes, WordBox{X1: x1, Y1: y1, X2: x2, Y2: y2, Text: fields[4]})
	}
	return boxes
}

// FormatTSV is the inverse of ParseTSV.
func FormatTSV(boxes []WordBox) string {
	var sb strings.Builder
	for _, b := range boxes {
		fmt.Fprintf(&sb, "%g\t%g\t%g\t%g\t%s\n", b.X1, b.Y1, b.X2, b.Y2, b.Text)
	}
	return sb.String()
}

// GroupIntoLines clusters boxes into lines: a box joins the current line
// when its y1 is within tolerance of the line's first box, and boxes within
// a line are ordered left to right by x1. Lines come out top to bottom.
func GroupIntoLines(boxes []WordBox, tolerance float64) []Line {
	if len(boxes) == 0 {
		return nil
	}
	sorted := append([]WordBox(nil), boxes...)
	sortBoxes(sorted, func(a, b WordBox) bool { return a.Y1 < b.Y1 })

	var lines []Line
	current := Line{Boxes: []WordBox{sorted[0]}}
	anchor := sorted[0].Y1
	for _, b := range sorted[1:] {
		if b.Y1-anchor <= tolerance {
			current.Boxes = append(current.Boxes, b)
			continue
		}
		lines = append(lines, current)
		current = Line{Boxes: []WordBox{b}}
		anchor = b.Y1
	}
	lines = append(lines, current)

	for i := range lines {
		sortBoxes(lines[i].Boxes, func(a, b WordBox) bool { return a.X1 < b.X1 })
	}
	return lines
}

// PlainText returns the page text implied by the line grouping, one text
// line per OCR line.
func PlainText(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text()
	}
	return strings.Join(parts, "\n")
}

func sortBoxes(boxes []WordBox, less func(a, b WordBox) bool) {
	sort.SliceStable(boxes, func(i, j int) bool { return less(boxes[i], boxes[j]) })
}
