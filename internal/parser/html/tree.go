package html

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// NewElement creates a detached element node
func NewElement(tag string, attrs ...html.Attribute) *Node {
	return &Node{Type: html.ElementNode, Data: tag, Attr: attrs}
}

// NewText creates a detached text node
func NewText(data string) *Node {
	return &Node{Type: html.TextNode, Data: data}
}

// IsElement reports whether n is an element with one of the given tag names.
// With no tags it reports whether n is any element.
func IsElement(n *Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if strings.EqualFold(n.Data, t) {
			return true
		}
	}
	return false
}

// IsText reports whether n is a text node
func IsText(n *Node) bool {
	return n != nil && n.Type == html.TextNode
}

// IsBreak reports whether n is a <br> element
func IsBreak(n *Node) bool {
	return IsElement(n, "br")
}

// Children returns the direct children of n as a slice
func Children(n *Node) []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// SetChildren replaces the children of parent with nodes, relinking each
// node under parent.
func SetChildren(parent *Node, nodes []*Node) {
	parent.FirstChild = nil
	parent.LastChild = nil
	for _, n := range nodes {
		AppendChild(parent, n)
	}
}

// AppendChild appends child as the last child of parent, detaching it first
func AppendChild(parent, child *Node) {
	Detach(child)
	child.Parent = parent
	if parent.LastChild == nil {
		parent.FirstChild = child
	} else {
		parent.LastChild.NextSibling = child
		child.PrevSibling = parent.LastChild
	}
	parent.LastChild = child
}

// Detach unlinks n from its parent and siblings
func Detach(n *Node) {
	if n == nil {
		return
	}
	if p := n.Parent; p != nil {
		if p.FirstChild == n {
			p.FirstChild = n.NextSibling
		}
		if p.LastChild == n {
			p.LastChild = n.PrevSibling
		}
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
}

// DetachAll detaches every node in the list and returns it
func DetachAll(nodes []*Node) []*Node {
	for _, n := range nodes {
		Detach(n)
	}
	return nodes
}

// Attr returns the value of the attribute key
func Attr(n *Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the attribute key
func SetAttr(n *Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr removes every attribute named key
func RemoveAttr(n *Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, key) {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// HasClass reports whether the class attribute of n contains name
func HasClass(n *Node, name string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == name {
			return true
		}
	}
	return false
}

// CloneShallow copies n without its children or links
func CloneShallow(n *Node) *Node {
	return &Node{
		Type: n.Type,
		Data: n.Data,
		Attr: append([]html.Attribute(nil), n.Attr...),
	}
}

// CloneDeep copies n and all of its descendants
func CloneDeep(n *Node) *Node {
	c := CloneShallow(n)
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		AppendChild(c, CloneDeep(ch))
	}
	return c
}

// CloneAll deep-copies a list of sibling nodes into detached nodes
func CloneAll(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CloneDeep(n))
	}
	return out
}

// Walk visits n and its descendants in document order until fn returns false
func Walk(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// TextContent concatenates the text of nodes and their descendants
func TextContent(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		Walk(n, func(c *Node) bool {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
			return true
		})
	}
	return b.String()
}

// TextLen is the rune length of TextContent(nodes)
func TextLen(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += nodeTextLen(n)
	}
	return total
}

func nodeTextLen(n *Node) int {
	if n.Type == html.TextNode {
		return utf8.RuneCountInString(n.Data)
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += nodeTextLen(c)
	}
	return total
}

// ContainsElement reports whether any descendant of n (excluding n) matches pred
func ContainsElement(n *Node, pred func(*Node) bool) bool {
	found := false
	for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
		Walk(c, func(d *Node) bool {
			if d.Type == html.ElementNode && pred(d) {
				found = true
				return false
			}
			return true
		})
	}
	return found
}

// SplitAt splits a list of detached sibling nodes at a rune offset into the
// text content. Elements straddling the offset are split into two shallow
// copies, one holding each half of their content.
func SplitAt(nodes []*Node, offset int) (left, right []*Node) {
	for i, n := range nodes {
		if offset <= 0 {
			right = append(right, nodes[i:]...)
			return left, right
		}
		l := nodeTextLen(n)
		if n.Type == html.TextNode {
			if offset >= l {
				left = append(left, n)
				offset -= l
				continue
			}
			runes := []rune(n.Data)
			left = append(left, NewText(string(runes[:offset])))
			right = append(right, NewText(string(runes[offset:])))
			right = append(right, nodes[i+1:]...)
			return left, right
		}
		if offset >= l {
			left = append(left, n)
			offset -= l
			continue
		}
		inL, inR := SplitAt(DetachAll(Children(n)), offset)
		ls := CloneShallow(n)
		SetChildren(ls, inL)
		rs := CloneShallow(n)
		SetChildren(rs, inR)
		left = append(left, ls)
		right = append(right, rs)
		right = append(right, nodes[i+1:]...)
		return left, right
	}
	return left, right
}

// SplitAtBreaks cuts a list of sibling nodes at every <br>, including breaks
// nested inside inline elements, whose shells are duplicated on each side.
// The result always holds at least one segment.
func SplitAtBreaks(nodes []*Node) [][]*Node {
	segs := [][]*Node{{}}
	for _, n := range nodes {
		switch {
		case IsBreak(n):
			segs = append(segs, []*Node{})
		case n.Type == html.ElementNode && ContainsElement(n, IsBreak):
			inner := SplitAtBreaks(DetachAll(Children(n)))
			for i, part := range inner {
				if i > 0 {
					segs = append(segs, []*Node{})
				}
				if len(part) == 0 {
					continue
				}
				shell := CloneShallow(n)
				SetChildren(shell, part)
				segs[len(segs)-1] = append(segs[len(segs)-1], shell)
			}
		default:
			segs[len(segs)-1] = append(segs[len(segs)-1], n)
		}
	}
	return segs
}

// IsBlank reports whether nodes hold no text other than whitespace and no
// elements other than breaks
func IsBlank(nodes []*Node) bool {
	for _, n := range nodes {
		switch {
		case n.Type == html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return false
			}
		case IsBreak(n):
		case n.Type == html.CommentNode:
		default:
			return false
		}
	}
	return true
}
