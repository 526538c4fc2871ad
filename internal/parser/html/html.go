package html

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parser represents an HTML parser
type Parser struct {
	// Configuration options could be added here
}

// Node represents an HTML node in the document tree
type Node struct {
	Type        html.NodeType
	Data        string
	Attr        []html.Attribute
	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node
}

// Document represents a parsed HTML document
type Document struct {
	Root *Node
}

// NewParser creates a new HTML parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses HTML from a string
func (p *Parser) ParseString(content string) (*Document, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses HTML from an io.Reader
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	root := convertNode(node, nil)
	return &Document{Root: root}, nil
}

// ParseFragment parses markup as the content of a <body> element and
// returns the detached top-level nodes in source order.
func (p *Parser) ParseFragment(content string) ([]*Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, convertNode(n, nil))
	}
	return out, nil
}

// ParseFragment is a convenience wrapper around Parser.ParseFragment.
func ParseFragment(content string) ([]*Node, error) {
	return NewParser().ParseFragment(content)
}

// convertNode converts an html.Node to our Node structure
func convertNode(n *html.Node, parent *Node) *Node {
	if n == nil {
		return nil
	}

	node := &Node{
		Type:   n.Type,
		Data:   n.Data,
		Attr:   append([]html.Attribute(nil), n.Attr...),
		Parent: parent,
	}

	var lastChild *Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child := convertNode(c, node)
		if node.FirstChild == nil {
			node.FirstChild = child
		}
		if lastChild != nil {
			lastChild.NextSibling = child
			child.PrevSibling = lastChild
		}
		lastChild = child
	}
	node.LastChild = lastChild

	return node
}

// Render renders the document back to HTML
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	err := renderNode(&buf, d.Root)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderNodes renders a list of sibling nodes, including all descendants.
func RenderNodes(w io.Writer, nodes []*Node) error {
	for _, n := range nodes {
		if err := renderNode(w, n); err != nil {
			return err
		}
	}
	return nil
}

// RenderString renders nodes to a string. Rendering into memory cannot fail
// for well-formed trees, so errors are folded into an empty result.
func RenderString(nodes []*Node) string {
	var buf bytes.Buffer
	if err := RenderNodes(&buf, nodes); err != nil {
		return ""
	}
	return buf.String()
}

// renderNode renders a node and its children to HTML
func renderNode(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	return html.Render(w, toNetNode(n))
}

// toNetNode converts a subtree back into x/net/html nodes
func toNetNode(n *Node) *html.Node {
	node := &html.Node{
		Type: n.Type,
		Data: n.Data,
		Attr: n.Attr,
	}
	if n.Type == html.ElementNode {
		node.DataAtom = atom.Lookup([]byte(n.Data))
	}

	var lastChild *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child := toNetNode(c)
		child.Parent = node
		if node.FirstChild == nil {
			node.FirstChild = child
		}
		if lastChild != nil {
			lastChild.NextSibling = child
			child.PrevSibling = lastChild
		}
		lastChild = child
	}
	node.LastChild = lastChild

	return node
}
