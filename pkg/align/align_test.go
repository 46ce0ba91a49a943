package align

import (
	"math"
	"testing"

	"github.com/marici/proofbench/pkg/ocr"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"rama", "", 4},
		{"kitten", "sitting", 3},
		{"rama", "rama", 0},
		{"राम", "रम", 1},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("rama", "rama"); got != 1.0 {
		t.Errorf("Similarity(rama, rama) = %v, want 1.0", got)
	}
	if got := Similarity("rama", ""); got != 0.0 {
		t.Errorf("Similarity(rama, \"\") = %v, want 0.0", got)
	}
	want := 1.0 - 3.0/7.0
	if got := Similarity("kitten", "sitting"); math.Abs(got-want) > 1e-9 {
		t.Errorf("Similarity(kitten, sitting) = %v, want %v", got, want)
	}
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Similarity(\"\", \"\") = %v, want 1.0", got)
	}
}

func pageBoxes() []ocr.WordBox {
	return []ocr.WordBox{
		{X1: 10, Y1: 100, X2: 100, Y2: 130, Text: "dharma"},
		{X1: 110, Y1: 102, X2: 200, Y2: 130, Text: "kshetre"},
		{X1: 10, Y1: 200, X2: 100, Y2: 230, Text: "kuru"},
		{X1: 110, Y1: 203, X2: 200, Y2: 230, Text: "kshetre"},
		{X1: 10, Y1: 300, X2: 100, Y2: 330, Text: "samaveta"},
	}
}

func TestMatchExactLineExactWord(t *testing.T) {
	a := New(pageBoxes(), DefaultConfig())
	box, ok := a.Match("kshetre", "kuru kshetre", 1)
	if !ok {
		t.Fatal("expected a match")
	}
	if box.Y1 != 203 {
		t.Errorf("matched the wrong line's box: %+v", box)
	}
}

func TestMatchFuzzyLine(t *testing.T) {
	a := New(pageBoxes(), DefaultConfig())
	// Close to "dharma kshetre" but not exact.
	box, ok := a.Match("dharma", "dharma kshetra", 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if box.Text != "dharma" || box.Y1 != 100 {
		t.Errorf("box = %+v", box)
	}
}

func TestMatchFuzzyWord(t *testing.T) {
	a := New(pageBoxes(), DefaultConfig())
	box, ok := a.Match("samaveta", "samavetā yuyutsavah", 0)
	if !ok {
		t.Fatal("expected a match via page-wide fallback")
	}
	if box.Text != "samaveta" {
		t.Errorf("box = %+v", box)
	}
}

func TestMatchCaseInsensitive(t *testing.T) {
	a := New([]ocr.WordBox{{X1: 1, Y1: 1, X2: 2, Y2: 2, Text: "Rama"}}, DefaultConfig())
	if _, ok := a.Match("rama", "rama", 0); !ok {
		t.Error("word matching should be case-insensitive")
	}
}

func TestMatchEmptyContext(t *testing.T) {
	a := New(pageBoxes(), DefaultConfig())
	if _, ok := a.Match("", "some line", 0); ok {
		t.Error("empty word should clear the highlight")
	}
	if _, ok := a.Match("word", "   ", 0); ok {
		t.Error("empty line should clear the highlight")
	}
}

func TestMatchNothingAboveThreshold(t *testing.T) {
	a := New(pageBoxes(), DefaultConfig())
	if box, ok := a.Match("zzzzzz", "qqqq wwww eeee", 0); ok {
		t.Errorf("expected no match, got %+v", box)
	}
}

func TestMatchPrefersNearestExactDuplicate(t *testing.T) {
	boxes := []ocr.WordBox{
		{X1: 10, Y1: 10, X2: 50, Y2: 30, Text: "na"},
		{X1: 60, Y1: 10, X2: 100, Y2: 30, Text: "ca"},
		{X1: 110, Y1: 10, X2: 150, Y2: 30, Text: "na"},
	}
	a := New(boxes, DefaultConfig())
	box, ok := a.Match("na", "na ca na", 2)
	if !ok {
		t.Fatal("expected a match")
	}
	if box.X1 != 110 {
		t.Errorf("expected the duplicate nearest the cursor's word index, got %+v", box)
	}
}

func TestNormalizeRect(t *testing.T) {
	r := NormalizeRect(ocr.WordBox{X1: 100, Y1: 200, X2: 300, Y2: 400}, 1000)
	want := Rect{X1: 0.1, Y1: 0.2, X2: 0.3, Y2: 0.4}
	if r != want {
		t.Errorf("NormalizeRect = %+v, want %+v", r, want)
	}
}

func TestViewportPan(t *testing.T) {
	v := Viewport{X: 0, Y: 0, W: 0.5, H: 0.5}

	// Fully visible: no movement.
	if got := v.Pan(Rect{X1: 0.1, Y1: 0.1, X2: 0.2, Y2: 0.2}); got != v {
		t.Errorf("in-view rect should not pan, got %+v", got)
	}

	// Below the viewport: pan vertically only, minimum distance.
	got := v.Pan(Rect{X1: 0.1, Y1: 0.8, X2: 0.2, Y2: 0.9})
	if got.X != 0 || math.Abs(got.Y-0.4) > 1e-9 {
		t.Errorf("pan down = %+v", got)
	}

	// Left of the viewport.
	v2 := Viewport{X: 0.4, Y: 0, W: 0.5, H: 0.5}
	got = v2.Pan(Rect{X1: 0.1, Y1: 0.1, X2: 0.2, Y2: 0.2})
	if math.Abs(got.X-0.1) > 1e-9 || got.Y != 0 {
		t.Errorf("pan left = %+v", got)
	}
}

func TestOverlaySetClear(t *testing.T) {
	var o Overlay
	o.Set(Rect{X1: 1})
	if o.Box == nil || o.Box.X1 != 1 {
		t.Fatalf("overlay not set: %+v", o)
	}
	o.Clear()
	if o.Box != nil {
		t.Error("overlay not cleared")
	}
}
