package badge

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/starford/nbbadge/internal/notebook"
)

// Detector names accepted by DetectorFor.
const (
	DetectorSubstring = "substring"
	DetectorStrict    = "strict"
)

// Detector decides whether a cell is an existing badge cell that should be
// replaced.
type Detector interface {
	IsBadgeCell(c notebook.Cell) bool
}

// DetectorFor resolves a detector by name. An empty name selects the
// substring detector.
func DetectorFor(name string) (Detector, error) {
	switch name {
	case "", DetectorSubstring:
		return SubstringDetector{}, nil
	case DetectorStrict:
		return NewStrictDetector(), nil
	default:
		return nil, fmt.Errorf("badge: unknown detector %q", name)
	}
}

// SubstringDetector matches any cell whose source contains AltText.
//
// This is a heuristic: a cell that merely mentions "Open In Colab" in prose
// is treated as a badge and replaced.
type SubstringDetector struct{}

// IsBadgeCell implements Detector.
func (SubstringDetector) IsBadgeCell(c notebook.Cell) bool {
	return strings.Contains(c.Source(), AltText)
}

// StrictDetector only matches markdown cells made up entirely of HTML and
// link/image markup, with an image whose alt text is AltText.
type StrictDetector struct {
	md goldmark.Markdown
}

// NewStrictDetector returns a StrictDetector.
func NewStrictDetector() *StrictDetector {
	return &StrictDetector{md: goldmark.New()}
}

// IsBadgeCell implements Detector.
func (d *StrictDetector) IsBadgeCell(c notebook.Cell) bool {
	if c.Type() != notebook.CellMarkdown {
		return false
	}
	src := []byte(c.Source())
	doc := d.md.Parser().Parse(text.NewReader(src))
	if doc.ChildCount() == 0 {
		return false
	}

	found := false
	for block := doc.FirstChild(); block != nil; block = block.NextSibling() {
		switch n := block.(type) {
		case *ast.HTMLBlock:
			if hasBadgeAlt(htmlBlockText(n, src)) {
				found = true
			}
		case *ast.Paragraph:
			ok, hit := inlineOnlyMarkup(n, src)
			if !ok {
				return false
			}
			found = found || hit
		default:
			return false
		}
	}
	return found
}

// inlineOnlyMarkup reports whether p holds nothing but raw HTML, links,
// images and whitespace, and whether one of them carries the badge alt text.
func inlineOnlyMarkup(p *ast.Paragraph, src []byte) (ok, hit bool) {
	ok = true
	_ = ast.Walk(p, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n == p {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.RawHTML:
			var buf bytes.Buffer
			for i := 0; i < v.Segments.Len(); i++ {
				seg := v.Segments.At(i)
				buf.Write(seg.Value(src))
			}
			if hasBadgeAlt(buf.String()) {
				hit = true
			}
		case *ast.Image:
			if string(v.Text(src)) == AltText {
				hit = true
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
		case *ast.Text:
			if v.Parent() != nil && v.Parent().Kind() == ast.KindLink {
				return ast.WalkContinue, nil
			}
			if len(bytes.TrimSpace(v.Segment.Value(src))) != 0 {
				ok = false
				return ast.WalkStop, nil
			}
		default:
			ok = false
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return ok, hit
}

func htmlBlockText(n *ast.HTMLBlock, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	if n.HasClosure() {
		buf.Write(n.ClosureLine.Value(src))
	}
	return buf.String()
}

func hasBadgeAlt(html string) bool {
	return strings.Contains(html, `alt="`+AltText+`"`)
}
