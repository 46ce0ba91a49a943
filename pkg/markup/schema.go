package markup

import "sort"

// Schema defines the legal document shape: the block-type vocabulary, the
// mark registry, and the default block type used for fresh content. The
// schema is injected rather than ambient so that multiple editors (e.g. a
// tutorial instance next to the full proofing instance) can run with
// independent configurations.
type Schema struct {
	Marks       *MarkRegistry
	BlockTypes  []string
	DefaultType string

	blockTypes map[string]bool
}

// NewSchema builds a schema from a mark registry and a block-type
// vocabulary. The first block type is the default.
func NewSchema(marks *MarkRegistry, blockTypes []string) *Schema {
	s := &Schema{
		Marks:       marks,
		BlockTypes:  blockTypes,
		DefaultType: blockTypes[0],
		blockTypes:  make(map[string]bool, len(blockTypes)),
	}
	for _, t := range blockTypes {
		s.blockTypes[t] = true
	}
	return s
}

// DefaultSchema returns the standard proofing schema: the default mark
// catalog and the fixed block vocabulary, with paragraph as the default.
func DefaultSchema() *Schema {
	return NewSchema(DefaultMarks(), []string{
		BlockParagraph,
		BlockVerse,
		BlockHeading,
		BlockTitle,
		BlockSubtitle,
		BlockFootnote,
		BlockTrailer,
		BlockIgnore,
		BlockMetadata,
	})
}

// KnownBlockType reports whether t is part of the configured vocabulary.
// Unknown types are still legal in a document; they just render with a
// default treatment.
func (s *Schema) KnownBlockType(t string) bool {
	return s.blockTypes[t]
}

// NewBlock returns an empty block of the schema's default type.
func (s *Schema) NewBlock() *Block {
	return &Block{Type: s.DefaultType}
}

// NewDocument returns a document holding a single empty default block. A
// document is never empty.
func (s *Schema) NewDocument() *Document {
	return &Document{Blocks: []*Block{s.NewBlock()}}
}

// ApplyMark adds m to a run's mark set, first removing any marks that m
// excludes. The result is sorted by registry order; the input is not
// modified.
func (s *Schema) ApplyMark(marks []Mark, m Mark) []Mark {
	excluded := make(map[Mark]bool)
	for _, e := range s.Marks.Excludes(m) {
		excluded[e] = true
	}
	out := make([]Mark, 0, len(marks)+1)
	for _, have := range marks {
		if have == m || excluded[have] {
			continue
		}
		out = append(out, have)
	}
	out = append(out, m)
	s.sortMarks(out)
	return out
}

// RemoveMark removes m from a run's mark set. The input is not modified.
func (s *Schema) RemoveMark(marks []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(marks))
	for _, have := range marks {
		if have != m {
			out = append(out, have)
		}
	}
	return out
}

// sortMarks orders marks by registry position. Unknown marks sort after
// known ones, alphabetically.
func (s *Schema) sortMarks(marks []Mark) {
	sort.SliceStable(marks, func(i, j int) bool {
		oi, oj := s.Marks.Order(marks[i]), s.Marks.Order(marks[j])
		if oi < 0 && oj < 0 {
			return marks[i] < marks[j]
		}
		if oi < 0 {
			return false
		}
		if oj < 0 {
			return true
		}
		return oi < oj
	})
}
