package align

import "github.com/marici/proofbench/pkg/ocr"

// Rect is a rectangle in the viewer's normalized coordinate space: every
// coordinate, including the vertical ones, is divided by the image pixel
// width so that aspect ratio is preserved under the viewer's convention.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// NormalizeRect converts a word box from image pixels to viewer
// coordinates.
func NormalizeRect(b ocr.WordBox, imageWidth float64) Rect {
	if imageWidth <= 0 {
		return Rect{}
	}
	return Rect{
		X1: b.X1 / imageWidth,
		Y1: b.Y1 / imageWidth,
		X2: b.X2 / imageWidth,
		Y2: b.Y2 / imageWidth,
	}
}

// Viewport is the visible window of the image in normalized coordinates.
type Viewport struct {
	X, Y, W, H float64
}

// Contains reports whether the rect is fully inside the viewport.
func (v Viewport) Contains(r Rect) bool {
	return r.X1 >= v.X && r.X2 <= v.X+v.W &&
		r.Y1 >= v.Y && r.Y2 <= v.Y+v.H
}

// Pan returns the viewport panned just far enough to bring r into view. An
// axis that is already in view is left as-is; an out-of-view axis moves the
// minimum necessary distance.
func (v Viewport) Pan(r Rect) Viewport {
	out := v
	if r.X1 < v.X {
		out.X = r.X1
	} else if r.X2 > v.X+v.W {
		out.X = r.X2 - v.W
	}
	if r.Y1 < v.Y {
		out.Y = r.Y1
	} else if r.Y2 > v.Y+v.H {
		out.Y = r.Y2 - v.H
	}
	return out
}

// Overlay is the highlight drawn over the page image. A nil Box means no
// highlight.
type Overlay struct {
	Box *Rect
}

// Set replaces the highlight rectangle.
func (o *Overlay) Set(r Rect) { o.Box = &r }

// Clear removes any highlight.
func (o *Overlay) Clear() { o.Box = nil }
