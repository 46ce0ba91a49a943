// Package editor implements the structural editing engine for proofed pages:
// index-addressed block operations (split, merge, move, insert, delete),
// selection-based mark toggling, and per-block attribute edits over a
// markup.Document. It also provides RawView, the degenerate mode that edits
// the markup source directly.
//
// The engine is a pure data transform: it owns the document, keeps a
// serialized markup mirror in sync after every mutation, and notifies an
// observer callback so the session layer can track unsaved changes. It has
// no rendering or network concerns.
package editor

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/marici/proofbench/pkg/markup"
)

// Cursor addresses a text position: a block index and a rune offset into the
// block's plain text. Indices shift on structural edits and must never be
// cached across mutations.
type Cursor struct {
	Block  int
	Offset int
}

// Selection is a text range within a single block. From <= To.
type Selection struct {
	Block int
	From  int
	To    int
}

// CursorContext is the ephemeral context pushed to the bounding-box aligner
// on every selection change: the word under the cursor, the line containing
// it, and the word's index within that line.
type CursorContext struct {
	Word      string
	Line      string
	WordIndex int
}

// Editor is the block editing engine. All mutating operations re-serialize
// the document and invoke the change callback; operations addressed at an
// out-of-range index have no effect.
type Editor struct {
	schema *markup.Schema
	doc    *markup.Document
	cursor Cursor
	sel    *Selection
	mirror string

	onChange func()
	onWarn   func(string)

	// NormalizeNFC folds inserted text to NFC form (editor settings toggle).
	NormalizeNFC bool
}

// New builds an editor from page markup. Malformed markup returns the
// underlying *markup.ParseError so the caller can fall back to the raw view
// without losing the text.
func New(schema *markup.Schema, content string) (*Editor, error) {
	doc, err := markup.Parse(schema, content)
	if err != nil {
		return nil, err
	}
	e := &Editor{schema: schema, doc: doc}
	e.mirror = markup.Serialize(schema, doc)
	return e, nil
}

// OnChange registers the observer invoked after every mutation.
func (e *Editor) OnChange(fn func()) { e.onChange = fn }

// OnWarn registers the sink for user-facing warnings (e.g. refusing to
// delete the last block).
func (e *Editor) OnWarn(fn func(string)) { e.onWarn = fn }

// Document exposes the underlying document.
func (e *Editor) Document() *markup.Document { return e.doc }

// Markup returns the serialized mirror of the current document.
func (e *Editor) Markup() string { return e.mirror }

// Cursor returns the current cursor position.
func (e *Editor) Cursor() Cursor { return e.cursor }

// SetCursor moves the cursor, clamping to the document.
func (e *Editor) SetCursor(c Cursor) {
	if c.Block < 0 {
		c.Block = 0
	}
	if c.Block >= len(e.doc.Blocks) {
		c.Block = len(e.doc.Blocks) - 1
	}
	n := blockLen(e.doc.Blocks[c.Block])
	if c.Offset < 0 {
		c.Offset = 0
	}
	if c.Offset > n {
		c.Offset = n
	}
	e.cursor = c
}

// SetSelection sets the active selection, clamped to its block.
func (e *Editor) SetSelection(sel Selection) {
	if sel.Block < 0 || sel.Block >= len(e.doc.Blocks) {
		return
	}
	n := blockLen(e.doc.Blocks[sel.Block])
	if sel.From < 0 {
		sel.From = 0
	}
	if sel.To > n {
		sel.To = n
	}
	if sel.From > sel.To {
		sel.From, sel.To = sel.To, sel.From
	}
	e.sel = &sel
	e.cursor = Cursor{Block: sel.Block, Offset: sel.To}
}

// ClearSelection drops the active selection.
func (e *Editor) ClearSelection() { e.sel = nil }

func (e *Editor) warn(msg string) {
	if e.onWarn != nil {
		e.onWarn(msg)
	}
}

// changed re-serializes the document and notifies the observer. Every
// mutating operation ends here.
func (e *Editor) changed() {
	e.mirror = markup.Serialize(e.schema, e.doc)
	if e.onChange != nil {
		e.onChange()
	}
}

func blockLen(b *markup.Block) int {
	n := 0
	for _, run := range b.Content {
		n += len([]rune(run.Text))
	}
	return n
}

// InsertText inserts text at the cursor, inheriting the marks of the run the
// cursor sits in.
func (e *Editor) InsertText(text string) {
	if text == "" || e.cursor.Block >= len(e.doc.Blocks) {
		return
	}
	if e.NormalizeNFC {
		text = norm.NFC.String(text)
	}
	block := e.doc.Blocks[e.cursor.Block]
	left, right := markup.SplitRuns(block.Content, e.cursor.Offset)
	var marks []markup.Mark
	if len(left) > 0 {
		marks = append([]markup.Mark(nil), left[len(left)-1].Marks...)
	}
	left = append(left, markup.Run{Text: text, Marks: marks})
	block.Content = markup.NormalizeRuns(append(left, right...))
	e.cursor.Offset += len([]rune(text))
	e.changed()
}

// SplitAtCursor divides the cursor's block in two at the cursor offset. The
// left block keeps the original attributes; the right becomes a fresh
// default-type block holding the remainder. The cursor lands at the start of
// the new block.
func (e *Editor) SplitAtCursor() {
	i := e.cursor.Block
	if i < 0 || i >= len(e.doc.Blocks) {
		return
	}
	block := e.doc.Blocks[i]
	left, right := markup.SplitRuns(block.Content, e.cursor.Offset)
	block.Content = left

	fresh := e.schema.NewBlock()
	fresh.Content = right
	e.doc.Blocks = append(e.doc.Blocks[:i+1], append([]*markup.Block{fresh}, e.doc.Blocks[i+1:]...)...)
	e.cursor = Cursor{Block: i + 1, Offset: 0}
	e.sel = nil
	e.changed()
}

// InsertBlockBelow inserts a new empty default-type block after index and
// moves the cursor into it.
func (e *Editor) InsertBlockBelow(index int) {
	if index < 0 || index >= len(e.doc.Blocks) {
		return
	}
	fresh := e.schema.NewBlock()
	e.doc.Blocks = append(e.doc.Blocks[:index+1], append([]*markup.Block{fresh}, e.doc.Blocks[index+1:]...)...)
	e.cursor = Cursor{Block: index + 1, Offset: 0}
	e.sel = nil
	e.changed()
}

// DeleteBlock removes the block at index. Deleting the document's only block
// is refused with a warning: a document is never empty.
func (e *Editor) DeleteBlock(index int) {
	if index < 0 || index >= len(e.doc.Blocks) {
		return
	}
	if len(e.doc.Blocks) == 1 {
		e.warn("Cannot delete the only remaining block.")
		return
	}
	e.doc.Blocks = append(e.doc.Blocks[:index], e.doc.Blocks[index+1:]...)
	if e.cursor.Block >= len(e.doc.Blocks) {
		e.cursor = Cursor{Block: len(e.doc.Blocks) - 1, Offset: 0}
	} else if e.cursor.Block >= index {
		e.cursor = Cursor{Block: e.cursor.Block, Offset: 0}
	}
	e.sel = nil
	e.changed()
}

// MoveBlockUp swaps the block with its previous sibling. No-op on the first
// block; the cursor follows the moved block.
func (e *Editor) MoveBlockUp(index int) {
	if index <= 0 || index >= len(e.doc.Blocks) {
		return
	}
	e.doc.Blocks[index-1], e.doc.Blocks[index] = e.doc.Blocks[index], e.doc.Blocks[index-1]
	e.cursor = Cursor{Block: index - 1, Offset: e.cursor.Offset}
	e.changed()
}

// MoveBlockDown swaps the block with its next sibling. No-op on the last
// block; the cursor follows the moved block.
func (e *Editor) MoveBlockDown(index int) {
	if index < 0 || index >= len(e.doc.Blocks)-1 {
		return
	}
	e.doc.Blocks[index], e.doc.Blocks[index+1] = e.doc.Blocks[index+1], e.doc.Blocks[index]
	e.cursor = Cursor{Block: index + 1, Offset: e.cursor.Offset}
	e.changed()
}

// MergeBlockUp concatenates the block at index into its previous sibling,
// separated by a newline run. The earlier block's attributes win. No-op on
// the first block.
func (e *Editor) MergeBlockUp(index int) {
	if index <= 0 || index >= len(e.doc.Blocks) {
		return
	}
	e.mergeInto(index-1, index)
}

// MergeBlockDown concatenates the next sibling into the block at index,
// separated by a newline run. The earlier block's attributes win. No-op on
// the last block.
func (e *Editor) MergeBlockDown(index int) {
	if index < 0 || index >= len(e.doc.Blocks)-1 {
		return
	}
	e.mergeInto(index, index+1)
}

// mergeInto folds the content of block `late` into block `early` and removes
// `late`. The cursor is placed at the junction.
func (e *Editor) mergeInto(early, late int) {
	a, b := e.doc.Blocks[early], e.doc.Blocks[late]
	junction := blockLen(a)
	content := append([]markup.Run(nil), a.Content...)
	content = append(content, markup.Run{Text: "\n"})
	content = append(content, b.Content...)
	a.Content = markup.NormalizeRuns(content)
	e.doc.Blocks = append(e.doc.Blocks[:late], e.doc.Blocks[late+1:]...)
	e.cursor = Cursor{Block: early, Offset: junction}
	e.sel = nil
	e.changed()
}

// ToggleMark applies or removes a mark over the current selection: if the
// whole range already carries the mark it is removed, otherwise it is added
// (displacing marks it excludes). No-op on an empty selection or a mark the
// schema does not know.
func (e *Editor) ToggleMark(m markup.Mark) {
	if e.sel == nil || e.sel.From == e.sel.To || !e.schema.Marks.Has(m) {
		return
	}
	sel := *e.sel
	if sel.Block < 0 || sel.Block >= len(e.doc.Blocks) {
		return
	}
	block := e.doc.Blocks[sel.Block]
	left, rest := markup.SplitRuns(block.Content, sel.From)
	mid, right := markup.SplitRuns(rest, sel.To-sel.From)

	all := true
	for _, run := range mid {
		if !run.HasMark(m) {
			all = false
			break
		}
	}
	for i := range mid {
		if all {
			mid[i].Marks = e.schema.RemoveMark(mid[i].Marks, m)
		} else {
			mid[i].Marks = e.schema.ApplyMark(mid[i].Marks, m)
		}
	}

	content := append(left, append(mid, right...)...)
	block.Content = markup.NormalizeRuns(content)
	e.changed()
}

// SetBlockType changes the structural kind of the block at index. Unknown
// types are allowed; they keep their name and render with the default
// treatment.
func (e *Editor) SetBlockType(index int, t string) {
	if index < 0 || index >= len(e.doc.Blocks) || t == "" {
		return
	}
	e.doc.Blocks[index].Type = t
	e.changed()
}

// SetBlockLabel sets the block's `text` attribute.
func (e *Editor) SetBlockLabel(index int, label string) {
	if index < 0 || index >= len(e.doc.Blocks) {
		return
	}
	e.doc.Blocks[index].Label = label
	e.changed()
}

// SetBlockOrdinal sets the block's `n` attribute.
func (e *Editor) SetBlockOrdinal(index int, n string) {
	if index < 0 || index >= len(e.doc.Blocks) {
		return
	}
	e.doc.Blocks[index].Ordinal = n
	e.changed()
}

// SetFootnoteMark sets the block's `mark` attribute. Only meaningful for
// footnote blocks but stored regardless; visibility is a rendering concern.
func (e *Editor) SetFootnoteMark(index int, mark string) {
	if index < 0 || index >= len(e.doc.Blocks) {
		return
	}
	e.doc.Blocks[index].FootnoteMark = mark
	e.changed()
}

// SetBlockLanguage sets the block's `lang` attribute.
func (e *Editor) SetBlockLanguage(index int, lang string) {
	if index < 0 || index >= len(e.doc.Blocks) {
		return
	}
	e.doc.Blocks[index].Language = lang
	e.changed()
}

// SetMergeWithNext flags the block for merging with its successor at publish
// time.
func (e *Editor) SetMergeWithNext(index int, merge bool) {
	if index < 0 || index >= len(e.doc.Blocks) {
		return
	}
	e.doc.Blocks[index].MergeWithNext = merge
	e.changed()
}

// CursorContext derives the aligner context from the current cursor
// position: the word under the cursor, its containing line, and the word's
// index within the line. Returns nil when the cursor is not on a word.
func (e *Editor) CursorContext() *CursorContext {
	if e.cursor.Block < 0 || e.cursor.Block >= len(e.doc.Blocks) {
		return nil
	}
	text := []rune(e.doc.Blocks[e.cursor.Block].Text())
	off := e.cursor.Offset
	if off > len(text) {
		off = len(text)
	}

	lineStart := off
	for lineStart > 0 && text[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := off
	for lineEnd < len(text) && text[lineEnd] != '\n' {
		lineEnd++
	}
	line := string(text[lineStart:lineEnd])
	if strings.TrimSpace(line) == "" {
		return nil
	}

	wordStart := off
	for wordStart > lineStart && !isSpace(text[wordStart-1]) {
		wordStart--
	}
	wordEnd := off
	for wordEnd < lineEnd && !isSpace(text[wordEnd]) {
		wordEnd++
	}
	word := string(text[wordStart:wordEnd])
	if strings.TrimSpace(word) == "" {
		return nil
	}

	index := len(strings.Fields(string(text[lineStart:wordStart])))
	return &CursorContext{Word: word, Line: line, WordIndex: index}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
