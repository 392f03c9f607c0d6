// Package wire provides a structured request tree that carrier request
// builders assemble and that is serialized to XML only when handed to the
// transport.
package wire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Node is an element of a request tree.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Elem creates an element with the given children. Nil children are skipped,
// which lets builders include optional blocks inline.
func Elem(name string, children ...*Node) *Node {
	n := &Node{Name: name}
	return n.Add(children...)
}

// Text creates a leaf element holding the textual form of v.
func Text(name string, v any) *Node {
	return &Node{Name: name, Text: format(v)}
}

// Empty creates an element with no content.
func Empty(name string) *Node {
	return &Node{Name: name}
}

// If returns n when cond holds and nil otherwise.
func If(cond bool, n *Node) *Node {
	if !cond {
		return nil
	}
	return n
}

// OptText returns a leaf element for a non-empty string and nil otherwise.
func OptText(name, v string) *Node {
	if v == "" {
		return nil
	}
	return Text(name, v)
}

// Add appends children, skipping nils.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Attr sets an attribute.
func (n *Node) Attr(name, value string) *Node {
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return n
}

// Find returns the first descendant matching a slash-separated path of
// element names relative to n, or nil.
func (n *Node) Find(path string) *Node {
	cur := n
	for _, part := range strings.Split(path, "/") {
		var next *Node
		for _, c := range cur.Children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// FindAll returns every child of the node at parent path (or n itself when
// parent is empty) named name.
func (n *Node) FindAll(parent, name string) []*Node {
	base := n
	if parent != "" {
		base = n.Find(parent)
	}
	if base == nil {
		return nil
	}
	var out []*Node
	for _, c := range base.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Value returns the text of the node at path, or "" when absent.
func (n *Node) Value(path string) string {
	if found := n.Find(path); found != nil {
		return found.Text
	}
	return ""
}

// MarshalXML implements xml.Marshaler.
func (n *Node) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}, Attr: n.Attrs}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := e.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := e.Encode(c); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Encode serializes the tree to an XML document.
func (n *Node) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", n.Name, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String renders the tree for logging; encoding errors yield "".
func (n *Node) String() string {
	b, err := n.Encode()
	if err != nil {
		return ""
	}
	return string(b)
}

func format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
