package markup

import "strings"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeText escapes the five XML special characters.
func EscapeText(s string) string {
	return xmlEscaper.Replace(s)
}

// Serialize renders a document back to page markup. It is the inverse of
// Parse: attributes are emitted only when set, and each run's marks nest
// deterministically in registry order, outermost first.
func Serialize(schema *Schema, doc *Document) string {
	var sb strings.Builder
	sb.WriteString("<page>\n")
	for _, block := range doc.Blocks {
		writeBlock(&sb, schema, block)
		sb.WriteString("\n")
	}
	sb.WriteString("</page>")
	return sb.String()
}

func writeBlock(sb *strings.Builder, schema *Schema, block *Block) {
	sb.WriteString("<" + block.Type)
	if block.Language != "" {
		sb.WriteString(` lang="` + EscapeText(block.Language) + `"`)
	}
	if block.Label != "" {
		sb.WriteString(` text="` + EscapeText(block.Label) + `"`)
	}
	if block.Ordinal != "" {
		sb.WriteString(` n="` + EscapeText(block.Ordinal) + `"`)
	}
	if block.FootnoteMark != "" {
		sb.WriteString(` mark="` + EscapeText(block.FootnoteMark) + `"`)
	}
	if block.MergeWithNext {
		sb.WriteString(` merge-next="true"`)
	}
	sb.WriteString(">")
	for _, run := range block.Content {
		writeRun(sb, schema, run)
	}
	sb.WriteString("</" + block.Type + ">")
}

func writeRun(sb *strings.Builder, schema *Schema, run Run) {
	marks := append([]Mark(nil), run.Marks...)
	schema.sortMarks(marks)
	for _, m := range marks {
		sb.WriteString("<" + string(m) + ">")
	}
	sb.WriteString(EscapeText(run.Text))
	for i := len(marks) - 1; i >= 0; i-- {
		sb.WriteString("</" + string(marks[i]) + ">")
	}
}
