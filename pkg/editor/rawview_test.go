package editor

import "testing"

func TestRawViewReplaceSelection(t *testing.T) {
	v := NewRawView("<page><p>old</p></page>")
	v.Select(9, 12)
	v.ReplaceSelection("new")
	if v.Text() != "<page><p>new</p></page>" {
		t.Errorf("text = %q", v.Text())
	}
	from, to := v.Selection()
	if from != 12 || to != 12 {
		t.Errorf("selection after replace = %d..%d, want cursor at 12", from, to)
	}
}

func TestRawViewUndoRedo(t *testing.T) {
	v := NewRawView("a")
	v.SetText("ab")
	v.SetText("abc")

	if !v.Undo() || v.Text() != "ab" {
		t.Fatalf("undo: %q", v.Text())
	}
	if !v.Undo() || v.Text() != "a" {
		t.Fatalf("undo: %q", v.Text())
	}
	if v.Undo() {
		t.Error("undo past the beginning should fail")
	}
	if !v.Redo() || v.Text() != "ab" {
		t.Fatalf("redo: %q", v.Text())
	}
	// A fresh edit clears the redo stack.
	v.SetText("aX")
	if v.Redo() {
		t.Error("redo should be cleared by a new edit")
	}
}

func TestRawViewHighlights(t *testing.T) {
	text := `<page><p lang="sa">x</p></page>`
	v := NewRawView(text)

	var tags, names, values int
	for _, span := range v.Highlights() {
		if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
			t.Fatalf("bad span: %+v", span)
		}
		switch span.Kind {
		case SpanTag:
			tags++
		case SpanAttrName:
			names++
			if got := text[span.Start:span.End]; got != "lang" {
				t.Errorf("attr name span = %q", got)
			}
		case SpanAttrValue:
			values++
			if got := text[span.Start:span.End]; got != `"sa"` {
				t.Errorf("attr value span = %q", got)
			}
		}
	}
	if tags != 4 || names != 1 || values != 1 {
		t.Errorf("span counts: tags=%d names=%d values=%d", tags, names, values)
	}
}

func TestRawViewHighlightsRecomputed(t *testing.T) {
	v := NewRawView("plain")
	if len(v.Highlights()) != 0 {
		t.Fatalf("unexpected spans: %+v", v.Highlights())
	}
	v.SetText("<p>x</p>")
	if len(v.Highlights()) != 2 {
		t.Errorf("spans after edit: %+v", v.Highlights())
	}
}
