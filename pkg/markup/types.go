// Package markup implements the structured document model used by the
// proofing editor, along with its XML wire format.
//
// A page of proofed content is a Document: an ordered list of Blocks, each a
// structural unit (paragraph, verse, heading, footnote, ...) holding a
// sequence of inline Runs. A Run is a contiguous span of text sharing the
// same set of active Marks.
//
// The wire format is a single `<page>` element whose children are named by
// block type, with inline marks as same-named nested elements:
//
//	<page>
//	<p lang="sa" n="1.1">some <error>txet</error></p>
//	<footnote mark="1">a note</footnote>
//	</page>
//
// Parse and Serialize round-trip losslessly for the supported tag and
// attribute vocabulary.
package markup

import "strings"

// The block types recognized by the proofing environment. The set is open:
// unrecognized tag names are preserved as opaque block types so that newer
// markup survives a round-trip through an older editor.
const (
	BlockParagraph = "p"
	BlockVerse     = "verse"
	BlockHeading   = "heading"
	BlockTitle     = "title"
	BlockSubtitle  = "subtitle"
	BlockFootnote  = "footnote"
	BlockTrailer   = "trailer"
	BlockIgnore    = "ignore"
	BlockMetadata  = "metadata"
)

// Run is a contiguous span of text with a set of active marks. Marks are kept
// sorted by registry order so that equal runs compare equal.
type Run struct {
	Text  string
	Marks []Mark
}

// HasMark reports whether the run carries the given mark.
func (r Run) HasMark(m Mark) bool {
	for _, have := range r.Marks {
		if have == m {
			return true
		}
	}
	return false
}

// Block is a structural unit of a page.
type Block struct {
	// Type is the block's structural kind ("p", "verse", ...). Unknown
	// values are preserved verbatim.
	Type string
	// Label is the internal text this block belongs to ("mula",
	// "commentary", ...). Serialized as the `text` attribute.
	Label string
	// Ordinal is the block's ordering ID ("43", "1.1", ...). Serialized as
	// the `n` attribute. Not meaningful for footnotes.
	Ordinal string
	// FootnoteMark is the symbol that represents a footnote ("1", "*", ...).
	// Serialized as the `mark` attribute; only meaningful when Type is
	// "footnote".
	FootnoteMark string
	// Language is the block's language tag ("sa", "hi", ...). Serialized as
	// the `lang` attribute.
	Language string
	// MergeWithNext signals that at publish time this block's content
	// continues into the following block (e.g. a paragraph spanning a page
	// break). Serialized as `merge-next="true"`.
	MergeWithNext bool
	// Content is the block's inline runs, in order.
	Content []Run
}

// Text returns the block's plain text with marks stripped.
func (b *Block) Text() string {
	var sb strings.Builder
	for _, run := range b.Content {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

// Document is the root container: an ordered, never-empty list of blocks.
type Document struct {
	Blocks []*Block
}

// Text returns the document's plain text, blocks separated by newlines.
func (d *Document) Text() string {
	parts := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{Blocks: make([]*Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		nb := *b
		nb.Content = make([]Run, len(b.Content))
		for j, run := range b.Content {
			nb.Content[j] = Run{Text: run.Text, Marks: append([]Mark(nil), run.Marks...)}
		}
		out.Blocks[i] = &nb
	}
	return out
}

// sameMarks reports whether two mark sets are identical. Both sides are
// assumed sorted by registry order.
func sameMarks(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NormalizeRuns merges adjacent runs with identical mark sets and drops empty
// runs. Editing operations call this so that a block's run list stays
// canonical.
func NormalizeRuns(runs []Run) []Run {
	var out []Run
	for _, run := range runs {
		if run.Text == "" {
			continue
		}
		if n := len(out); n > 0 && sameMarks(out[n-1].Marks, run.Marks) {
			out[n-1].Text += run.Text
			continue
		}
		out = append(out, Run{Text: run.Text, Marks: append([]Mark(nil), run.Marks...)})
	}
	return out
}

// SplitRuns partitions a run list at the given rune offset into the block's
// plain text. A run straddling the offset is split in two, both halves
// keeping its marks.
func SplitRuns(runs []Run, offset int) (left, right []Run) {
	pos := 0
	for _, run := range runs {
		text := []rune(run.Text)
		end := pos + len(text)
		switch {
		case end <= offset:
			left = append(left, run)
		case pos >= offset:
			right = append(right, run)
		default:
			cut := offset - pos
			left = append(left, Run{Text: string(text[:cut]), Marks: append([]Mark(nil), run.Marks...)})
			right = append(right, Run{Text: string(text[cut:]), Marks: append([]Mark(nil), run.Marks...)})
		}
		pos = end
	}
	return NormalizeRuns(left), NormalizeRuns(right)
}
