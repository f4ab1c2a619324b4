package fragment

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Content is a parsed fragment.
type Content struct {
	// Path is the path the markup was fetched from.
	Path string

	// Markup is the fetched markup, unchanged.
	Markup string

	// Nodes are the top-level nodes of the parsed fragment.
	Nodes []*html.Node
}

// Parse parses markup as the children of a <div> element.
func Parse(path string, markup []byte) (Content, error) {
	parent := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}

	nodes, err := html.ParseFragment(bytes.NewReader(markup), parent)
	if err != nil {
		return Content{}, fmt.Errorf("fragment: parse %s: %w", path, err)
	}

	return Content{
		Path:   path,
		Markup: string(markup),
		Nodes:  nodes,
	}, nil
}

// IsZero reports whether no fragment has been loaded.
func (c Content) IsZero() bool {
	return c.Path == "" && c.Markup == "" && len(c.Nodes) == 0
}

// FindByID returns the first element with the given id, or nil.
func (c Content) FindByID(id string) *html.Node {
	var found *html.Node

	c.walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})

	return found
}

// FindByClass returns every element carrying class, in document order.
func (c Content) FindByClass(class string) []*html.Node {
	var found []*html.Node

	c.walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = append(found, n)
		}
		return true
	})

	return found
}

// Text renders the visible text of the fragment, one block per line.
// Script and style elements are skipped.
func (c Content) Text() string {
	var lines []string
	var cur strings.Builder

	flush := func() {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template:
				return
			case atom.Br:
				flush()
				return
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}

		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			flush()
		}
	}

	for _, n := range c.Nodes {
		visit(n)
	}
	flush()

	return strings.Join(lines, "\n")
}

// walk visits nodes depth-first until fn returns false.
func (c Content) walk(fn func(*html.Node) bool) {
	var visit func(n *html.Node) bool
	visit = func(n *html.Node) bool {
		if !fn(n) {
			return false
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if !visit(child) {
				return false
			}
		}
		return true
	}

	for _, n := range c.Nodes {
		if !visit(n) {
			return
		}
	}
}

// TextOf returns the collapsed text content of n.
func TextOf(n *html.Node) string {
	var b strings.Builder

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)

	return strings.Join(strings.Fields(b.String()), " ")
}

// AttrOf returns the value of the key attribute of n, or an empty string.
// A nil node has no attributes.
func AttrOf(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	return attr(n, key)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table, atom.Pre,
		atom.Form, atom.Nav, atom.Main, atom.Button, atom.Label, atom.Textarea:
		return true
	}
	return false
}
