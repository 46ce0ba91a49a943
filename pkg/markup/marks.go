package markup

// Mark is the name of an inline annotation that can be applied to a run of
// text. Marks carry no attributes of their own.
type Mark string

// The inline marks understood by the proofing environment.
const (
	MarkError    Mark = "error"
	MarkFix      Mark = "fix"
	MarkFlag     Mark = "flag"
	MarkRef      Mark = "ref"
	MarkStage    Mark = "stage"
	MarkSpeaker  Mark = "speaker"
	MarkChaya    Mark = "chaya"
	MarkPrakrit  Mark = "prakrit"
	MarkNote     Mark = "note"
	MarkAdd      Mark = "add"
	MarkEllipsis Mark = "ellipsis"
	MarkQuote    Mark = "quote"
)

// MarkSpec describes a single inline mark: its name, the label shown in the
// editor toolbar, and the marks it displaces when applied to the same run.
type MarkSpec struct {
	Name     Mark
	Label    string
	Excludes []Mark
}

// MarkRegistry is an ordered catalog of mark specs. The order is significant:
// serialization nests marks deterministically by registry position.
type MarkRegistry struct {
	specs []MarkSpec
	index map[Mark]int
}

// NewMarkRegistry builds a registry from the given specs, preserving order.
func NewMarkRegistry(specs []MarkSpec) *MarkRegistry {
	r := &MarkRegistry{
		specs: specs,
		index: make(map[Mark]int, len(specs)),
	}
	for i, spec := range specs {
		r.index[spec.Name] = i
	}
	return r
}

// DefaultMarks returns the standard proofing mark catalog.
func DefaultMarks() *MarkRegistry {
	return NewMarkRegistry([]MarkSpec{
		{Name: MarkError, Label: "Error", Excludes: []Mark{MarkFix}},
		{Name: MarkFix, Label: "Fix", Excludes: []Mark{MarkError}},
		{Name: MarkFlag, Label: "Flag"},
		{Name: MarkRef, Label: "Reference"},
		{Name: MarkStage, Label: "Stage direction", Excludes: []Mark{MarkSpeaker}},
		{Name: MarkSpeaker, Label: "Speaker"},
		{Name: MarkChaya, Label: "Chaya", Excludes: []Mark{MarkSpeaker}},
		{Name: MarkPrakrit, Label: "Prakrit", Excludes: []Mark{MarkSpeaker}},
		{Name: MarkNote, Label: "Note"},
		{Name: MarkAdd, Label: "Addition"},
		{Name: MarkEllipsis, Label: "Ellipsis"},
		{Name: MarkQuote, Label: "Quote"},
	})
}

// Has reports whether the registry knows the given mark.
func (r *MarkRegistry) Has(m Mark) bool {
	_, ok := r.index[m]
	return ok
}

// Order returns the registry position of a mark, or -1 if unknown.
func (r *MarkRegistry) Order(m Mark) int {
	if i, ok := r.index[m]; ok {
		return i
	}
	return -1
}

// Excludes returns the marks displaced by applying m.
func (r *MarkRegistry) Excludes(m Mark) []Mark {
	if i, ok := r.index[m]; ok {
		return r.specs[i].Excludes
	}
	return nil
}

// Label returns the display label for a mark, or the mark name itself if the
// mark is unknown.
func (r *MarkRegistry) Label(m Mark) string {
	if i, ok := r.index[m]; ok {
		return r.specs[i].Label
	}
	return string(m)
}

// Names returns all mark names in registry order.
func (r *MarkRegistry) Names() []Mark {
	names := make([]Mark, len(r.specs))
	for i, spec := range r.specs {
		names[i] = spec.Name
	}
	return names
}
