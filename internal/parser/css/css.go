package css

import (
	"errors"
	"io"
	"strings"
)

// Parser represents a CSS parser
type Parser struct{}

// Rule represents a CSS rule
type Rule struct {
	Selectors    []string
	Declarations []*Declaration
}

// Declaration represents a CSS declaration (property-value pair)
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Stylesheet represents a parsed CSS stylesheet
type Stylesheet struct {
	Rules []*Rule
}

// NewParser creates a new CSS parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses CSS from a string
func (p *Parser) ParseString(content string) (*Stylesheet, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses CSS from an io.Reader. Invalid rules and at-rules are skipped.
func (p *Parser) Parse(r io.Reader) (*Stylesheet, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	sheet := &Stylesheet{}
	for _, ruleStr := range splitRules(removeComments(string(content))) {
		if strings.HasPrefix(ruleStr, "@") {
			continue
		}
		rule, err := parseRule(ruleStr)
		if err != nil {
			continue
		}
		sheet.Rules = append(sheet.Rules, rule)
	}
	return sheet, nil
}

// ParseInline parses the body of a style attribute
func ParseInline(declarations string) []*Declaration {
	return parseDeclarations(removeComments(declarations))
}

// FormatInline renders declarations in style-attribute form, e.g.
// "color: red; font-weight: bold"
func FormatInline(declarations []*Declaration) string {
	parts := make([]string, 0, len(declarations))
	for _, d := range declarations {
		if d == nil || d.Property == "" {
			continue
		}
		v := d.Value
		if d.Important {
			v += " !important"
		}
		parts = append(parts, d.Property+": "+v)
	}
	return strings.Join(parts, "; ")
}

// Lookup returns the value of the last declaration of property
func Lookup(declarations []*Declaration, property string) (string, bool) {
	for i := len(declarations) - 1; i >= 0; i-- {
		if strings.EqualFold(declarations[i].Property, property) {
			return declarations[i].Value, true
		}
	}
	return "", false
}

func parseRule(ruleStr string) (*Rule, error) {
	open := strings.IndexByte(ruleStr, '{')
	if open < 0 {
		return nil, errors.New("invalid rule format")
	}
	body := strings.TrimSuffix(strings.TrimSpace(ruleStr[open+1:]), "}")

	var selectors []string
	for _, s := range strings.Split(ruleStr[:open], ",") {
		if s = strings.TrimSpace(s); s != "" {
			selectors = append(selectors, s)
		}
	}
	if len(selectors) == 0 {
		return nil, errors.New("no selectors found")
	}

	return &Rule{Selectors: selectors, Declarations: parseDeclarations(body)}, nil
}

// parseDeclarations splits "a: b; c: d" on semicolons outside parentheses
// and quotes so values like url(data:...;base64,...) survive.
func parseDeclarations(body string) []*Declaration {
	var out []*Declaration
	for _, declStr := range splitTopLevel(body, ';') {
		declStr = strings.TrimSpace(declStr)
		colon := strings.IndexByte(declStr, ':')
		if colon <= 0 {
			continue
		}
		property := strings.ToLower(strings.TrimSpace(declStr[:colon]))
		value := strings.TrimSpace(declStr[colon+1:])

		important := false
		if lower := strings.ToLower(value); strings.HasSuffix(lower, "!important") {
			important = true
			value = strings.TrimSpace(value[:len(value)-len("!important")])
		}
		if property == "" || value == "" {
			continue
		}
		out = append(out, &Declaration{Property: property, Value: value, Important: important})
	}
	return out
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// removeComments removes CSS comments
func removeComments(content string) string {
	var result strings.Builder
	for {
		i := strings.Index(content, "/*")
		if i < 0 {
			result.WriteString(content)
			return result.String()
		}
		result.WriteString(content[:i])
		end := strings.Index(content[i+2:], "*/")
		if end < 0 {
			return result.String()
		}
		content = content[i+2+end+2:]
	}
}

// splitRules splits CSS content into individual top-level rules; nested
// blocks (at-rules) are kept whole
func splitRules(content string) []string {
	var rules []string
	var current strings.Builder
	depth := 0

	for i := 0; i < len(content); i++ {
		c := content[i]
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth <= 0 {
				depth = 0
				current.WriteByte(c)
				rules = append(rules, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
		case ';':
			// statement at-rules such as @import end without a block
			if depth == 0 {
				current.Reset()
				continue
			}
		}
		if depth > 0 || !isWhitespace(c) || current.Len() > 0 {
			current.WriteByte(c)
		}
	}
	return rules
}

// isWhitespace checks if a character is whitespace
func isWhitespace(char byte) bool {
	return char == ' ' || char == '\t' || char == '\n' || char == '\r'
}
