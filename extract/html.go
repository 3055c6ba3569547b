package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/lexcorpus/lexcorpus"
)

// extractHTML renders the substantive content of an HTML page as structural
// plain text: block elements break lines, headings get surrounding blank
// lines, list items get markers, tables keep row structure. The source
// profile selects the content region and names the artifacts to strip; with
// no profile, generic main-content detection isolates the text.
func extractHTML(page string, profile *lexcorpus.HTMLProfile) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "parsing html: %v", err)
	}

	var indents map[string]int
	if profile != nil {
		indents = profile.IndentClasses
		for _, sel := range profile.StripSelectors {
			doc.Find(sel).Remove()
		}
		if profile.DropLoneBreaks {
			dropLoneBreaks(doc)
		}
	}

	var nodes []*html.Node
	if profile != nil && profile.ContentSelector != "" {
		sel := doc.Find(profile.ContentSelector)
		if sel.Length() == 0 {
			// A vanished content region usually means a truncated or error
			// body, which the parse-retry policy re-fetches once.
			return "", lexcorpus.Errorf(lexcorpus.EPARSE, "content selector %q matched nothing", profile.ContentSelector)
		}
		nodes = sel.Nodes
	} else {
		nodes = mainContent(doc)
	}

	r := &textRenderer{indents: indents}
	var buf strings.Builder
	for _, n := range nodes {
		r.walk(n, &buf, renderState{})
		ensureBlank(&buf)
	}
	return buf.String(), nil
}

// mainContent isolates the main content node of an unprofiled page, falling
// back to the whole body when detection finds nothing.
func mainContent(doc *goquery.Document) []*html.Node {
	var page bytes.Buffer
	if err := html.Render(&page, doc.Get(0)); err == nil {
		opts := trafilatura.Options{EnableFallback: true}
		if res, err := trafilatura.Extract(&page, opts); err == nil && res.ContentNode != nil {
			return []*html.Node{res.ContentNode}
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body.Nodes
	}
	return []*html.Node{doc.Get(0)}
}

// dropLoneBreaks removes <br> elements with no adjacent <br>. Runs of two or
// more stay: they mark intentional paragraph separation, while lone breaks
// in these sources land mid-sentence.
func dropLoneBreaks(doc *goquery.Document) {
	var lone []*html.Node
	doc.Find("br").Each(func(_ int, sel *goquery.Selection) {
		n := sel.Get(0)
		if !adjacentBreak(n.PrevSibling, false) && !adjacentBreak(n.NextSibling, true) {
			lone = append(lone, n)
		}
	})
	for _, n := range lone {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// adjacentBreak reports whether the nearest non-whitespace sibling in the
// given direction is another <br>.
func adjacentBreak(n *html.Node, forward bool) bool {
	for n != nil {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			return false
		}
		if n.Type == html.ElementNode {
			return n.Data == "br"
		}
		if forward {
			n = n.NextSibling
		} else {
			n = n.PrevSibling
		}
	}
	return false
}

type renderState struct {
	pre       bool
	listDepth int
}

// textRenderer walks an HTML tree writing structural plain text.
type textRenderer struct {
	indents map[string]int
}

func (r *textRenderer) walk(n *html.Node, buf *strings.Builder, st renderState) {
	switch n.Type {
	case html.TextNode:
		writeText(buf, n.Data, st.pre)
		return
	case html.DocumentNode:
		r.walkChildren(n, buf, st)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.Data {
	case "script", "style", "noscript", "template", "head", "iframe", "svg", "button", "select", "img":
		return
	}

	if spaces := r.indentFor(n); spaces > 0 {
		var inner strings.Builder
		r.walkChildren(n, &inner, st)
		ensureBreak(buf)
		writeIndented(buf, inner.String(), spaces)
		return
	}

	switch n.Data {
	case "br":
		buf.WriteByte('\n')
	case "hr":
		ensureBreak(buf)
	case "pre":
		ensureBreak(buf)
		st.pre = true
		r.walkChildren(n, buf, st)
		ensureBreak(buf)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		ensureBlank(buf)
		r.walkChildren(n, buf, st)
		ensureBlank(buf)
	case "p", "blockquote":
		ensureBlank(buf)
		r.walkChildren(n, buf, st)
		ensureBlank(buf)
	case "ul", "ol":
		ensureBreak(buf)
		st.listDepth++
		r.walkChildren(n, buf, st)
		ensureBreak(buf)
	case "li":
		ensureBreak(buf)
		buf.WriteString(strings.Repeat("  ", max(st.listDepth-1, 0)))
		buf.WriteString("* ")
		r.walkChildren(n, buf, st)
		ensureBreak(buf)
	case "tr":
		ensureBreak(buf)
		r.walkChildren(n, buf, st)
		ensureBreak(buf)
	case "td", "th":
		r.walkChildren(n, buf, st)
		buf.WriteString("  ")
	case "div", "section", "article", "main", "aside", "header", "footer", "nav",
		"table", "thead", "tbody", "tfoot", "caption", "figure", "figcaption",
		"center", "dl", "dt", "dd", "form", "fieldset", "address", "details", "summary":
		ensureBreak(buf)
		r.walkChildren(n, buf, st)
		ensureBreak(buf)
	default:
		r.walkChildren(n, buf, st)
	}
}

func (r *textRenderer) walkChildren(n *html.Node, buf *strings.Builder, st renderState) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c, buf, st)
	}
}

// indentFor returns the indentation width the profile assigns to the
// element's classes, or zero.
func (r *textRenderer) indentFor(n *html.Node) int {
	if len(r.indents) == 0 {
		return 0
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(attr.Val) {
			if spaces, ok := r.indents[cls]; ok {
				return spaces
			}
		}
	}
	return 0
}

var htmlSpaceRE = regexp.MustCompile(`[ \t\r\n\f]+`)

// writeText appends a text node's content, collapsing HTML whitespace unless
// inside <pre>. Whitespace at a line start is dropped so markup indentation
// never leaks into the text.
func writeText(buf *strings.Builder, s string, pre bool) {
	if pre {
		buf.WriteString(s)
		return
	}
	collapsed := htmlSpaceRE.ReplaceAllString(s, " ")
	tail := buf.String()
	if tail == "" || strings.HasSuffix(tail, "\n") || strings.HasSuffix(tail, " ") {
		collapsed = strings.TrimLeft(collapsed, " ")
	}
	buf.WriteString(collapsed)
}

// ensureBreak ends the current line if one is open.
func ensureBreak(buf *strings.Builder) {
	s := buf.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	buf.WriteByte('\n')
}

// ensureBlank ends the current line and guarantees one empty line before the
// next content.
func ensureBlank(buf *strings.Builder) {
	if buf.Len() == 0 {
		return
	}
	ensureBreak(buf)
	if !strings.HasSuffix(buf.String(), "\n\n") {
		buf.WriteByte('\n')
	}
}

// writeIndented writes a rendered block with every line prefixed by the given
// number of spaces.
func writeIndented(buf *strings.Builder, block string, spaces int) {
	prefix := strings.Repeat(" ", spaces)
	for _, line := range strings.Split(strings.Trim(block, "\n"), "\n") {
		if line == "" {
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(prefix)
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}
