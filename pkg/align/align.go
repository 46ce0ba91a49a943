// Package align projects the editor's text cursor onto OCR word boxes.
//
// OCR boxes rarely match corrected text one to one, so matching runs in two
// stages: the cursor's containing line first anchors the search to one OCR
// line by fuzzy text similarity, then the word is matched fuzzily within
// that line. Anchoring on the line avoids false positives from short common
// words that recur all over a page. When no line clears the similarity
// threshold, the search falls back to every box on the page.
package align

import (
	"strings"

	"github.com/marici/proofbench/pkg/ocr"
)

// Config carries the aligner's tuning constants. The defaults mirror the
// values the proofing environment has always used; they are fields rather
// than literals so a caller can adjust them for unusual scan DPIs.
type Config struct {
	// LineTolerance is the vertical clustering distance in pixels.
	LineTolerance float64
	// Threshold is the minimum similarity ratio for a fuzzy line or word
	// match.
	Threshold float64
}

// DefaultConfig returns the standard tuning: 10px line tolerance, 0.7
// similarity threshold.
func DefaultConfig() Config {
	return Config{LineTolerance: ocr.DefaultLineTolerance, Threshold: 0.7}
}

// Aligner matches cursor contexts against one page's OCR boxes.
type Aligner struct {
	cfg   Config
	lines []ocr.Line
	boxes []ocr.WordBox
}

// New builds an aligner over a page's word boxes.
func New(boxes []ocr.WordBox, cfg Config) *Aligner {
	return &Aligner{
		cfg:   cfg,
		lines: ocr.GroupIntoLines(boxes, cfg.LineTolerance),
		boxes: boxes,
	}
}

// Lines exposes the grouped OCR lines.
func (a *Aligner) Lines() []ocr.Line { return a.lines }

// Match finds the box best matching the cursor context. The second return
// is false when nothing clears the threshold, meaning any highlight should
// be cleared.
func (a *Aligner) Match(word, line string, wordIndex int) (ocr.WordBox, bool) {
	word = strings.TrimSpace(word)
	line = strings.TrimSpace(line)
	if word == "" || line == "" {
		return ocr.WordBox{}, false
	}

	if best, ok := a.matchLine(line); ok {
		return a.matchWordInLine(best, word, wordIndex)
	}
	return a.matchWordAnywhere(word)
}

// matchLine picks the OCR line for the cursor's text line: an exact trimmed
// match wins immediately, otherwise the highest similarity above the
// threshold.
func (a *Aligner) matchLine(line string) (ocr.Line, bool) {
	var best ocr.Line
	bestScore := a.cfg.Threshold
	found := false
	for _, candidate := range a.lines {
		text := strings.TrimSpace(candidate.Text())
		if text == line {
			return candidate, true
		}
		if score := Similarity(text, line); score > bestScore {
			best, bestScore, found = candidate, score, true
		}
	}
	return best, found
}

// matchWordInLine finds the cursor's word inside the chosen line. Exact
// case-insensitive matches win, the one nearest the cursor's word index
// first; otherwise the most similar box above the threshold.
func (a *Aligner) matchWordInLine(line ocr.Line, word string, wordIndex int) (ocr.WordBox, bool) {
	exact := -1
	for i, box := range line.Boxes {
		if !strings.EqualFold(strings.TrimSpace(box.Text), word) {
			continue
		}
		if exact < 0 || absInt(i-wordIndex) < absInt(exact-wordIndex) {
			exact = i
		}
	}
	if exact >= 0 {
		return line.Boxes[exact], true
	}

	return bestFuzzyBox(line.Boxes, word, a.cfg.Threshold)
}

// matchWordAnywhere ignores line grouping and scans the whole page.
func (a *Aligner) matchWordAnywhere(word string) (ocr.WordBox, bool) {
	for _, box := range a.boxes {
		if strings.EqualFold(strings.TrimSpace(box.Text), word) {
			return box, true
		}
	}
	return bestFuzzyBox(a.boxes, word, a.cfg.Threshold)
}

func bestFuzzyBox(boxes []ocr.WordBox, word string, threshold float64) (ocr.WordBox, bool) {
	var best ocr.WordBox
	bestScore := threshold
	found := false
	for _, box := range boxes {
		if score := Similarity(strings.TrimSpace(box.Text), word); score > bestScore {
			best, bestScore, found = box, score, true
		}
	}
	return best, found
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
