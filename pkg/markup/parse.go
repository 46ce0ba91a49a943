package markup

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ParseError reports malformed page markup. The editor treats it as
// recoverable: the user stays on the raw text with the message displayed.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Invalid XML: %s: %v", e.Msg, e.Err)
	}
	return "Invalid XML: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErrorf(err error, format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// Parse converts page markup into a Document. The input must be well-formed
// XML with a single `page` root element; anything else fails with a
// ParseError. Empty or whitespace-only input yields a document with a single
// default block.
func Parse(schema *Schema, input string) (*Document, error) {
	if strings.TrimSpace(input) == "" {
		return schema.NewDocument(), nil
	}

	dec := xml.NewDecoder(strings.NewReader(input))
	root, err := nextStartElement(dec)
	if err != nil {
		return nil, parseErrorf(err, "malformed markup")
	}
	if root == nil {
		return nil, parseErrorf(nil, "no root element found")
	}
	if root.Name.Local != "page" {
		return nil, parseErrorf(nil, "root element must be <page>, got <%s>", root.Name.Local)
	}

	doc := &Document{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, parseErrorf(nil, "unexpected end of markup inside <page>")
		}
		if err != nil {
			return nil, parseErrorf(err, "malformed markup")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			block, err := parseBlock(dec, schema, t)
			if err != nil {
				return nil, err
			}
			doc.Blocks = append(doc.Blocks, block)
		case xml.EndElement:
			// End of <page>.
			if err := expectTrailingJunkOnly(dec); err != nil {
				return nil, err
			}
			if len(doc.Blocks) == 0 {
				doc.Blocks = append(doc.Blocks, schema.NewBlock())
			}
			return doc, nil
		default:
			// Whitespace between blocks, comments, and stray root-level
			// text are not block content; drop them.
		}
	}
}

// nextStartElement skips prolog tokens (declarations, comments, whitespace)
// and returns the first element.
func nextStartElement(dec *xml.Decoder) (*xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return &start, nil
		}
	}
}

// expectTrailingJunkOnly rejects content after the closing </page>.
func expectTrailingJunkOnly(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return parseErrorf(err, "malformed markup after </page>")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return parseErrorf(nil, "multiple root elements: unexpected <%s>", t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return parseErrorf(nil, "unexpected text after </page>")
			}
		}
	}
}

// parseBlock consumes one block element and its inline content.
func parseBlock(dec *xml.Decoder, schema *Schema, start xml.StartElement) (*Block, error) {
	block := &Block{Type: start.Name.Local}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "text":
			block.Label = attr.Value
		case "n":
			block.Ordinal = attr.Value
		case "mark":
			block.FootnoteMark = attr.Value
		case "lang":
			block.Language = attr.Value
		case "merge-next", "merge-text":
			// "merge-text" is a legacy spelling still present in old
			// revisions.
			if strings.EqualFold(attr.Value, "true") {
				block.MergeWithNext = true
			}
		}
	}

	runs, err := parseInline(dec, schema, start.Name.Local, nil)
	if err != nil {
		return nil, err
	}
	block.Content = NormalizeRuns(runs)
	return block, nil
}

// parseInline reads inline content up to the closing tag of the enclosing
// element. Elements named after a registered mark wrap their descendant text
// in that mark; anything else is kept as literal escaped text so unsupported
// markup is not silently dropped.
func parseInline(dec *xml.Decoder, schema *Schema, enclosing string, active []Mark) ([]Run, error) {
	var runs []Run
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, parseErrorf(nil, "unexpected end of markup inside <%s>", enclosing)
		}
		if err != nil {
			return nil, parseErrorf(err, "malformed markup")
		}
		switch t := tok.(type) {
		case xml.CharData:
			runs = append(runs, Run{Text: string(t), Marks: canonicalMarks(schema, active)})
		case xml.StartElement:
			name := t.Name.Local
			if schema.Marks.Has(Mark(name)) {
				inner, err := parseInline(dec, schema, name, pushMark(active, Mark(name)))
				if err != nil {
					return nil, err
				}
				runs = append(runs, inner...)
				continue
			}
			literal, err := readLiteralElement(dec, t)
			if err != nil {
				return nil, err
			}
			runs = append(runs, Run{Text: literal, Marks: canonicalMarks(schema, active)})
		case xml.EndElement:
			return runs, nil
		}
	}
}

// canonicalMarks copies a mark set in registry order so that nesting order
// in the source never affects run identity.
func canonicalMarks(schema *Schema, marks []Mark) []Mark {
	out := append([]Mark(nil), marks...)
	schema.sortMarks(out)
	return out
}

// pushMark appends m to the active mark set unless it is already present.
func pushMark(active []Mark, m Mark) []Mark {
	for _, have := range active {
		if have == m {
			return active
		}
	}
	out := make([]Mark, 0, len(active)+1)
	out = append(out, active...)
	return append(out, m)
}

// readLiteralElement reconstructs the source text of an unrecognized element
// and everything inside it.
func readLiteralElement(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var sb strings.Builder
	writeOpenTag(&sb, start)
	depth := 1
	names := []string{start.Name.Local}
	for depth > 0 {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", parseErrorf(nil, "unexpected end of markup inside <%s>", start.Name.Local)
		}
		if err != nil {
			return "", parseErrorf(err, "malformed markup")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			writeOpenTag(&sb, t)
			names = append(names, t.Name.Local)
			depth++
		case xml.EndElement:
			depth--
			sb.WriteString("</" + names[len(names)-1] + ">")
			names = names[:len(names)-1]
		case xml.CharData:
			sb.WriteString(EscapeText(string(t)))
		}
	}
	return sb.String(), nil
}

func writeOpenTag(sb *strings.Builder, start xml.StartElement) {
	sb.WriteString("<" + start.Name.Local)
	for _, attr := range start.Attr {
		sb.WriteString(" " + attr.Name.Local + `="` + EscapeText(attr.Value) + `"`)
	}
	sb.WriteString(">")
}
