package layout

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"codeberg.org/go-pdf/fpdf"
	"github.com/gm6nx/blockedit/internal/parser/html"
	"github.com/gm6nx/blockedit/internal/style"
	xhtml "golang.org/x/net/html"
)

// Singleton PDF instance for text measurement using go-pdf/fpdf metrics
var (
	measureOnce sync.Once
	measurePDF  *fpdf.Fpdf
	measureMu   sync.Mutex
)

func initMeasurePDF() {
	measurePDF = fpdf.New("P", "pt", "", "")
	measurePDF.SetFont("Helvetica", "", 12)
}

// measureTextWidth returns a font-aware width using fpdf metrics. Font sizes
// are taken as pixels, so widths come back in pixels too.
func measureTextWidth(text string, fontSize float64, st style.ComputedStyle) float64 {
	if text == "" || fontSize <= 0 {
		return 0
	}
	measureOnce.Do(initMeasurePDF)
	measureMu.Lock()
	defer measureMu.Unlock()
	fam, sty := resolveFontFromStyle(st)
	measurePDF.SetFont(fam, sty, fontSize)
	return measurePDF.GetStringWidth(text)
}

// resolveFontFromStyle maps CSS-like style to core PDF font family and style
func resolveFontFromStyle(st style.ComputedStyle) (string, string) {
	family := "Helvetica"
	if ff := st.Value("font-family"); strings.TrimSpace(ff) != "" {
		first := strings.Split(ff, ",")[0]
		first = strings.TrimSpace(strings.Trim(first, "'\""))
		switch strings.ToLower(first) {
		case "times", "times new roman", "serif", "georgia":
			family = "Times"
		case "courier", "courier new", "monospace":
			family = "Courier"
		}
	}
	styleStr := ""
	switch strings.TrimSpace(st.Value("font-weight")) {
	case "bold", "bolder", "600", "700", "800", "900":
		styleStr += "B"
	}
	switch strings.TrimSpace(st.Value("font-style")) {
	case "italic", "oblique":
		styleStr += "I"
	}
	return family, styleStr
}

type inlineRun struct {
	text  string
	style style.ComputedStyle
}

type token struct {
	text    string
	style   style.ComputedStyle
	width   float64
	isSpace bool
	fs      float64
	lh      float64
}

// collectInlineRuns gathers the text below n with the computed style of
// each text node's parent element
func (e *Engine) collectInlineRuns(n *html.Node, out *[]inlineRun) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case xhtml.TextNode:
			if txt := normalizeWhitespace(ch.Data); txt != "" {
				*out = append(*out, inlineRun{text: txt, style: e.styles.Computed(ch.Parent)})
			}
		case xhtml.ElementNode:
			if html.IsElement(ch, "script", "style") {
				continue
			}
			if html.IsElement(ch, "img") {
				*out = append(*out, inlineRun{text: "￼", style: e.styles.Computed(ch)})
				continue
			}
			e.collectInlineRuns(ch, out)
		}
	}
}

// fontMetrics resolves font size and line height of a computed style
func (e *Engine) fontMetrics(st style.ComputedStyle) (fs, lh float64) {
	fs = style.ParsePixels(st.Value("font-size"), e.options.FontSize, e.options.FontSize)
	if fs <= 0 {
		fs = e.options.FontSize
	}
	v := strings.TrimSpace(st.Value("line-height"))
	switch {
	case v == "" || v == "normal":
		lh = e.options.LineHeight * fs
	default:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			lh = f * fs
		} else {
			lh = style.ParsePixels(v, fs, e.options.LineHeight*fs)
		}
	}
	return fs, lh
}

// wrapText breaks runs into lines no wider than maxWidth and returns the
// line count and total height. An empty run list is one line of the base
// style's height.
func (e *Engine) wrapText(runs []inlineRun, base style.ComputedStyle, maxWidth float64) (int, float64) {
	var raw []token
	for _, run := range runs {
		fs, lh := e.fontMetrics(run.style)
		for _, t := range splitTokens(run.text) {
			tk := token{text: t, style: run.style, fs: fs, lh: lh, isSpace: isAllSpace(t)}
			if !tk.isSpace {
				tk.width = measureTextWidth(t, fs, run.style)
				if t == "￼" {
					tk.width = fs
				}
			}
			raw = append(raw, tk)
		}
	}

	_, baseLH := e.fontMetrics(base)
	lines, height := 0, 0.0
	lineWidth, lineLH := 0.0, 0.0
	inLine := false
	emitLine := func() {
		if !inLine {
			return
		}
		lines++
		height += lineLH
		lineWidth, lineLH = 0, 0
		inLine = false
	}
	place := func(tk token) {
		inLine = true
		lineWidth += tk.width
		if tk.lh > lineLH {
			lineLH = tk.lh
		}
	}

	pendingSpace := false
	for _, tk := range raw {
		if tk.isSpace {
			pendingSpace = inLine
			continue
		}
		if pendingSpace {
			pendingSpace = false
			if r, _ := utf8.DecodeRuneInString(tk.text); !strings.ContainsRune(",.;:!?)]}»", r) {
				spw := measureTextWidth(" ", tk.fs, tk.style)
				if lineWidth+spw+tk.width > maxWidth {
					emitLine()
				} else {
					lineWidth += spw
				}
			}
		}
		if inLine && lineWidth+tk.width > maxWidth {
			emitLine()
		}
		place(tk)
	}
	emitLine()

	if lines == 0 {
		return 1, baseLH
	}
	return lines, height
}

// splitTokens splits text into tokens of words and single spaces
func splitTokens(s string) []string {
	var tokens []string
	var cur []rune
	curIsSpace := false
	for _, r := range s {
		isSp := unicode.IsSpace(r)
		if len(cur) > 0 && isSp != curIsSpace {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
		curIsSpace = isSp
		switch {
		case isSp && len(cur) == 0:
			cur = append(cur, ' ')
		case !isSp:
			cur = append(cur, r)
		}
	}
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}
	return tokens
}

func isAllSpace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// normalizeWhitespace collapses runs of whitespace into a single space
// without trimming either end
func normalizeWhitespace(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteByte(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}
