package fragment

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// LinkClass marks navigation links in the index page.
const LinkClass = "sidebar-link"

// Link is one sidebar navigation entry.
type Link struct {
	Title  string
	File   string
	Script string
}

// ParseLinks reads the .sidebar-link elements of an index page. Each link
// carries its fragment path in data-file and an optional script path in
// data-js. Elements without data-file are skipped.
func ParseLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("fragment: parse links: %w", err)
	}

	var links []Link

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, LinkClass) {
			if file := attr(n, "data-file"); file != "" {
				title := TextOf(n)
				if title == "" {
					title = file
				}

				links = append(links, Link{
					Title:  title,
					File:   file,
					Script: attr(n, "data-js"),
				})
			}
			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(doc)

	return links, nil
}
