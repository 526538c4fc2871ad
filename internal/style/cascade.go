package style

import (
	"strconv"
	"strings"

	"github.com/gm6nx/blockedit/internal/parser/css"
	"github.com/gm6nx/blockedit/internal/parser/html"
	xhtml "golang.org/x/net/html"
)

// Specificity represents the specificity of a CSS selector
type Specificity struct {
	ID      int
	Class   int
	Element int
}

// StyleProperty represents a computed style property
type StyleProperty struct {
	Name        string
	Value       string
	Important   bool
	Source      Source
	Specificity Specificity
}

// Source represents the source of a style property
type Source int

const (
	SourceUserAgent Source = iota
	SourceAuthor
	SourceInline
	SourceInherited
)

// BaseFontSize is the root font size in pixels used to resolve em/rem
const BaseFontSize = 16.0

// ComputedStyle represents the computed style for an element
type ComputedStyle map[string]StyleProperty

// Value returns the value of a property or "" if unset
func (cs ComputedStyle) Value(name string) string {
	return cs[name].Value
}

// inherited lists the properties an element takes from its parent when it
// declares no value of its own
var inherited = []string{
	"color",
	"font-family",
	"font-size",
	"font-weight",
	"font-style",
	"letter-spacing",
	"text-transform",
	"line-height",
}

// StyleEngine handles the CSS cascade and style computation
type StyleEngine struct {
	userAgentStyles *css.Stylesheet
	authorStyles    []*css.Stylesheet
}

// NewStyleEngine creates a new style engine
func NewStyleEngine() *StyleEngine {
	return &StyleEngine{
		userAgentStyles: defaultUserAgentStyles(),
	}
}

// AddStylesheet adds an author stylesheet to the style engine
func (e *StyleEngine) AddStylesheet(stylesheet *css.Stylesheet) {
	e.authorStyles = append(e.authorStyles, stylesheet)
}

// ComputeStyles computes the declared styles for all elements in the document
func (e *StyleEngine) ComputeStyles(doc *html.Document) map[*html.Node]ComputedStyle {
	result := make(map[*html.Node]ComputedStyle)
	html.Walk(doc.Root, func(n *html.Node) bool {
		if n.Type == xhtml.ElementNode {
			result[n] = e.Cascade(n)
		}
		return true
	})
	return result
}

// Cascade computes the declared style of a single element: user agent rules,
// then author rules, then the style attribute.
func (e *StyleEngine) Cascade(node *html.Node) ComputedStyle {
	style := make(ComputedStyle)
	if node == nil || node.Type != xhtml.ElementNode {
		return style
	}

	e.applyStylesheet(style, node, e.userAgentStyles, SourceUserAgent)
	applyDeclarations(style, presentationalHints(node), Specificity{}, SourceUserAgent)
	for _, stylesheet := range e.authorStyles {
		e.applyStylesheet(style, node, stylesheet, SourceAuthor)
	}
	if v, ok := html.Attr(node, "style"); ok {
		applyDeclarations(style, css.ParseInline(v), Specificity{ID: 1}, SourceInline)
	}

	if td, ok := style["text-decoration"]; ok {
		if _, has := style["text-decoration-line"]; !has {
			style["text-decoration-line"] = StyleProperty{
				Name:   "text-decoration-line",
				Value:  decorationLine(td.Value),
				Source: td.Source,
			}
		}
	}
	return style
}

// Computed resolves the cascade for node and fills inherited properties from
// its ancestors, resolving relative font sizes to pixels.
func (e *StyleEngine) Computed(node *html.Node) ComputedStyle {
	if node == nil {
		return ComputedStyle{}
	}
	if node.Type != xhtml.ElementNode {
		return e.Computed(node.Parent)
	}

	var parent ComputedStyle
	if node.Parent != nil && node.Parent.Type == xhtml.ElementNode {
		parent = e.Computed(node.Parent)
	}
	parentSize := BaseFontSize
	if parent != nil {
		parentSize = ParsePixels(parent.Value("font-size"), BaseFontSize, BaseFontSize)
	}

	own := e.Cascade(node)
	for _, name := range inherited {
		if _, ok := own[name]; ok {
			continue
		}
		if p, ok := parent[name]; ok {
			p.Source = SourceInherited
			own[name] = p
		}
	}
	if fs, ok := own["font-size"]; ok && fs.Source != SourceInherited {
		fs.Value = FormatPixels(ParsePixels(fs.Value, parentSize, parentSize))
		own["font-size"] = fs
	}
	return own
}

// applyStylesheet applies styles from a stylesheet to an element
func (e *StyleEngine) applyStylesheet(style ComputedStyle, node *html.Node, stylesheet *css.Stylesheet, source Source) {
	for _, rule := range stylesheet.Rules {
		for _, selector := range rule.Selectors {
			if selectorMatches(node, selector) {
				applyDeclarations(style, rule.Declarations, calculateSpecificity(selector), source)
			}
		}
	}
}

// applyDeclarations applies CSS declarations to a style. A declaration wins
// over an existing one when it is more important, or equally important and
// from a later origin, or from the same origin with equal or greater
// specificity.
func applyDeclarations(style ComputedStyle, declarations []*css.Declaration, specificity Specificity, source Source) {
	for _, decl := range declarations {
		existing, exists := style[decl.Property]
		win := !exists ||
			(decl.Important && !existing.Important) ||
			(decl.Important == existing.Important && source > existing.Source) ||
			(decl.Important == existing.Important && source == existing.Source &&
				compareSpecificity(specificity, existing.Specificity) >= 0)
		if !win {
			continue
		}
		style[decl.Property] = StyleProperty{
			Name:        decl.Property,
			Value:       decl.Value,
			Important:   decl.Important,
			Source:      source,
			Specificity: specificity,
		}
	}
}

// selectorMatches checks if an element matches a descendant-combinator selector
func selectorMatches(node *html.Node, selector string) bool {
	parts := strings.Fields(selector)
	if len(parts) == 0 || node == nil {
		return false
	}
	if !matchCompoundSelector(node, parts[len(parts)-1]) {
		return false
	}

	current := node.Parent
	for i := len(parts) - 2; i >= 0; i-- {
		found := false
		for anc := current; anc != nil; anc = anc.Parent {
			if anc.Type == xhtml.ElementNode && matchCompoundSelector(anc, parts[i]) {
				found = true
				current = anc.Parent
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// matchCompoundSelector matches tag, #id and .class parts of a single
// compound selector. Attributes and pseudo-classes never match.
func matchCompoundSelector(node *html.Node, sel string) bool {
	if node == nil || node.Type != xhtml.ElementNode || sel == "" {
		return false
	}
	if strings.ContainsAny(sel, "[:>+~") {
		return false
	}

	var wantTag, wantID string
	var wantClasses []string

	i := 0
	if sel[0] != '.' && sel[0] != '#' {
		j := strings.IndexAny(sel, "#.")
		if j < 0 {
			j = len(sel)
		}
		wantTag = sel[:j]
		i = j
	}
	for i < len(sel) {
		j := i + 1
		for j < len(sel) && sel[j] != '.' && sel[j] != '#' {
			j++
		}
		if sel[i] == '#' {
			wantID = sel[i+1 : j]
		} else {
			wantClasses = append(wantClasses, sel[i+1:j])
		}
		i = j
	}

	if wantTag != "" && wantTag != "*" && !strings.EqualFold(wantTag, node.Data) {
		return false
	}
	if wantID != "" {
		if id, _ := html.Attr(node, "id"); id != wantID {
			return false
		}
	}
	for _, c := range wantClasses {
		if !html.HasClass(node, c) {
			return false
		}
	}
	return true
}

// calculateSpecificity calculates the specificity of a CSS selector
func calculateSpecificity(selector string) Specificity {
	var s Specificity
	for _, part := range strings.Fields(selector) {
		s.ID += strings.Count(part, "#")
		s.Class += strings.Count(part, ".")
		if part != "" && part[0] != '.' && part[0] != '#' && part[0] != '*' {
			s.Element++
		}
	}
	return s
}

// compareSpecificity compares two specificities
func compareSpecificity(a, b Specificity) int {
	if a.ID != b.ID {
		return a.ID - b.ID
	}
	if a.Class != b.Class {
		return a.Class - b.Class
	}
	return a.Element - b.Element
}

func decorationLine(v string) string {
	for _, tok := range strings.Fields(strings.ToLower(v)) {
		switch tok {
		case "none", "underline", "overline", "line-through":
			return tok
		}
	}
	return "none"
}

// ParsePixels resolves a CSS length to pixels. em and % are relative to
// the given font size; keywords for font sizes are supported.
func ParsePixels(value string, relative, def float64) float64 {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return def
	}
	switch v {
	case "xx-small":
		return 9
	case "x-small":
		return 10
	case "small":
		return 13
	case "medium":
		return 16
	case "large":
		return 18
	case "x-large":
		return 24
	case "xx-large":
		return 32
	case "smaller":
		return relative * 0.83
	case "larger":
		return relative * 1.2
	}
	unit := func(suffix string) (float64, bool) {
		if !strings.HasSuffix(v, suffix) {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v[:len(v)-len(suffix)]), 64)
		return f, err == nil
	}
	if f, ok := unit("rem"); ok {
		return f * BaseFontSize
	}
	if f, ok := unit("em"); ok {
		return f * relative
	}
	if f, ok := unit("px"); ok {
		return f
	}
	if f, ok := unit("pt"); ok {
		return f * 96 / 72
	}
	if f, ok := unit("%"); ok {
		return relative * f / 100
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// FormatPixels renders a pixel value, e.g. 24px
func FormatPixels(px float64) string {
	return strconv.FormatFloat(px, 'f', -1, 64) + "px"
}

// defaultUserAgentStyles returns the editor's user agent stylesheet
func defaultUserAgentStyles() *css.Stylesheet {
	parser := css.NewParser()
	stylesheet, _ := parser.ParseString(`
		p { margin: 0 0 4px; }
		h1 { font-size: 2em; font-weight: bold; margin: 0 0 8px; }
		h2 { font-size: 1.5em; font-weight: bold; margin: 0 0 8px; }
		h3 { font-size: 1.17em; font-weight: bold; margin: 0 0 6px; }
		h4 { font-weight: bold; margin: 0 0 6px; }
		h5 { font-size: 0.83em; font-weight: bold; margin: 0 0 4px; }
		h6 { font-size: 0.75em; font-weight: bold; margin: 0 0 4px; }
		a { color: #0000EE; text-decoration: underline; }
		b, strong { font-weight: bold; }
		i, em { font-style: italic; }
		u, ins { text-decoration: underline; }
		s, del { text-decoration: line-through; }
		code { font-family: monospace; }
		small { font-size: smaller; }
		mark { background-color: yellow; }
	`)
	return stylesheet
}

// fontSizes maps the legacy <font size> scale produced by execCommand
var fontSizes = map[string]string{
	"1": "x-small", "2": "small", "3": "medium", "4": "large",
	"5": "x-large", "6": "xx-large", "7": "48px",
}

// presentationalHints turns legacy <font> attributes into declarations
func presentationalHints(node *html.Node) []*css.Declaration {
	if !html.IsElement(node, "font") {
		return nil
	}
	var out []*css.Declaration
	if v, ok := html.Attr(node, "color"); ok && v != "" {
		out = append(out, &css.Declaration{Property: "color", Value: v})
	}
	if v, ok := html.Attr(node, "face"); ok && v != "" {
		out = append(out, &css.Declaration{Property: "font-family", Value: v})
	}
	if v, ok := html.Attr(node, "size"); ok {
		if size, known := fontSizes[strings.TrimSpace(v)]; known {
			out = append(out, &css.Declaration{Property: "font-size", Value: size})
		}
	}
	return out
}
