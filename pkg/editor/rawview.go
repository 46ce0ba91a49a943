package editor

import "regexp"

// SpanKind classifies a highlighted region of raw markup.
type SpanKind int

const (
	SpanTag SpanKind = iota
	SpanAttrName
	SpanAttrValue
)

// HighlightSpan is a byte range of the raw text with a syntax class.
type HighlightSpan struct {
	Start int
	End   int
	Kind  SpanKind
}

var (
	tagRe  = regexp.MustCompile(`</?[A-Za-z][\w-]*(\s+[\w-]+="[^"]*")*\s*/?>`)
	attrRe = regexp.MustCompile(`([\w-]+)=("[^"]*")`)
)

// RawView is the degenerate editor mode: a single text buffer holding the
// markup source, with regex-driven syntax highlighting and a snapshot
// undo/redo stack. It does not understand the document schema; structure is
// validated only when the user switches back to the visual view.
type RawView struct {
	text     string
	selFrom  int
	selTo    int
	spans    []HighlightSpan
	undo     []string
	redo     []string
	onChange func()
}

// NewRawView builds a raw view over the given markup text.
func NewRawView(text string) *RawView {
	v := &RawView{text: text}
	v.rehighlight()
	return v
}

// OnChange registers the observer invoked after every text change.
func (v *RawView) OnChange(fn func()) { v.onChange = fn }

// Text returns the buffer contents.
func (v *RawView) Text() string { return v.text }

// SetText replaces the buffer contents, recording the previous text for
// undo.
func (v *RawView) SetText(text string) {
	if text == v.text {
		return
	}
	v.undo = append(v.undo, v.text)
	v.redo = nil
	v.text = text
	v.clampSelection()
	v.changed()
}

// Select sets the selection range, clamped to the buffer.
func (v *RawView) Select(from, to int) {
	if from > to {
		from, to = to, from
	}
	v.selFrom, v.selTo = from, to
	v.clampSelection()
}

// Selection returns the current selection range.
func (v *RawView) Selection() (from, to int) { return v.selFrom, v.selTo }

// ReplaceSelection substitutes the selected range with the given text and
// places the cursor after it.
func (v *RawView) ReplaceSelection(text string) {
	v.undo = append(v.undo, v.text)
	v.redo = nil
	v.text = v.text[:v.selFrom] + text + v.text[v.selTo:]
	v.selFrom += len(text)
	v.selTo = v.selFrom
	v.changed()
}

// Undo restores the previous buffer state, if any.
func (v *RawView) Undo() bool {
	if len(v.undo) == 0 {
		return false
	}
	v.redo = append(v.redo, v.text)
	v.text = v.undo[len(v.undo)-1]
	v.undo = v.undo[:len(v.undo)-1]
	v.clampSelection()
	v.changed()
	return true
}

// Redo reapplies the most recently undone change, if any.
func (v *RawView) Redo() bool {
	if len(v.redo) == 0 {
		return false
	}
	v.undo = append(v.undo, v.text)
	v.text = v.redo[len(v.redo)-1]
	v.redo = v.redo[:len(v.redo)-1]
	v.clampSelection()
	v.changed()
	return true
}

// Highlights returns the current syntax spans, recomputed on every change.
func (v *RawView) Highlights() []HighlightSpan { return v.spans }

func (v *RawView) clampSelection() {
	if v.selFrom < 0 {
		v.selFrom = 0
	}
	if v.selTo > len(v.text) {
		v.selTo = len(v.text)
	}
	if v.selFrom > v.selTo {
		v.selFrom = v.selTo
	}
}

func (v *RawView) changed() {
	v.rehighlight()
	if v.onChange != nil {
		v.onChange()
	}
}

func (v *RawView) rehighlight() {
	v.spans = v.spans[:0]
	for _, tag := range tagRe.FindAllStringIndex(v.text, -1) {
		v.spans = append(v.spans, HighlightSpan{Start: tag[0], End: tag[1], Kind: SpanTag})
		inner := v.text[tag[0]:tag[1]]
		for _, attr := range attrRe.FindAllStringSubmatchIndex(inner, -1) {
			v.spans = append(v.spans, HighlightSpan{
				Start: tag[0] + attr[2],
				End:   tag[0] + attr[3],
				Kind:  SpanAttrName,
			})
			v.spans = append(v.spans, HighlightSpan{
				Start: tag[0] + attr[4],
				End:   tag[0] + attr[5],
				Kind:  SpanAttrValue,
			})
		}
	}
}
