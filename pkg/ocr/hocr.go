package ocr

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ParseHOCRBoxes extracts word boxes from an hOCR document. Some OCR engines
// return hOCR rather than the flat box transport; this flattens the
// page/area/line hierarchy down to the words, which is all the aligner
// needs.
func ParseHOCRBoxes(data []byte) ([]WordBox, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(decoded)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	pageFound := false
	var boxes []WordBox
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := attrVal(n, "class")
			if strings.Contains(class, "ocr_page") {
				pageFound = true
			}
			if strings.Contains(class, "ocrx_word") {
				if box, ok := wordBoxFromNode(n); ok {
					boxes = append(boxes, box)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !pageFound {
		return nil, fmt.Errorf("no ocr_page elements found in hOCR data")
	}
	return boxes, nil
}

// decodeCharset sniffs the meta charset and converts Latin-1 input to UTF-8.
func decodeCharset(data []byte) ([]byte, error) {
	content := string(data)
	encoding := "utf-8"
	if idx := strings.Index(content, "charset="); idx >= 0 {
		start := idx + len("charset=")
		end := start
		for end < len(content) && end < start+20 {
			r := content[end]
			if r == '"' || r == ';' || r == '\'' || r == '>' {
				break
			}
			end++
		}
		if enc := strings.ToLower(content[start:end]); enc != "" {
			encoding = enc
		}
	}
	if encoding == "utf-8" {
		return data, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", encoding, err)
	}
	return decoded, nil
}

// wordBoxFromNode reads the bbox from an ocrx_word title attribute and the
// node's text content.
func wordBoxFromNode(n *html.Node) (WordBox, bool) {
	props := parseTitleProps(attrVal(n, "title"))
	bbox, ok := props["bbox"]
	if !ok || len(bbox) < 4 {
		return WordBox{}, false
	}
	x1, err1 := strconv.ParseFloat(bbox[0], 64)
	y1, err2 := strconv.ParseFloat(bbox[1], 64)
	x2, err3 := strconv.ParseFloat(bbox[2], 64)
	y2, err4 := strconv.ParseFloat(bbox[3], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return WordBox{}, false
	}
	text := textContent(n)
	if text == "" {
		return WordBox{}, false
	}
	return WordBox{X1: x1, Y1: y1, X2: x2, Y2: y2, Text: text}, true
}

// parseTitleProps breaks an hOCR title attribute into its components.
// Example input: `bbox 100 200 300 400; x_wconf 95`.
func parseTitleProps(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(strings.TrimSpace(part))
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

func attrVal(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return strings.TrimSpace(sb.String())
}
