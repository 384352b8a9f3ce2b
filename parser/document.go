package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is an element handle owned by the DocumentView that returned it
type Node any

// DocumentView is the read-only slice of an HTML document the pricing
// extraction needs
type DocumentView interface {
	// FindHeadingContaining returns the first heading whose text contains text (case-sensitive)
	FindHeadingContaining(text string) (Node, bool)
	// NextList returns the first list element that follows heading in document order
	NextList(heading Node) (Node, bool)
	// ListItems returns the raw text of every item in list
	ListItems(list Node) []string
}

// DocumentFactory builds a DocumentView from rendered HTML
type DocumentFactory func(html string) (DocumentView, error)

// GoqueryDocument implements DocumentView on top of goquery
type GoqueryDocument struct {
	doc        *goquery.Document
	headingTag string
}

// NewGoqueryDocument parses htmlContent. headingTag selects the candidate headings (e.g. "h3").
func NewGoqueryDocument(htmlContent, headingTag string) (*GoqueryDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if headingTag == "" {
		headingTag = "h3"
	}
	return &GoqueryDocument{doc: doc, headingTag: headingTag}, nil
}

// GoqueryFactory returns a DocumentFactory producing GoqueryDocuments
func GoqueryFactory(headingTag string) DocumentFactory {
	return func(html string) (DocumentView, error) {
		return NewGoqueryDocument(html, headingTag)
	}
}

// FindHeadingContaining implements DocumentView
func (d *GoqueryDocument) FindHeadingContaining(text string) (Node, bool) {
	var found *goquery.Selection
	d.doc.Find(d.headingTag).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), text) {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// NextList implements DocumentView
func (d *GoqueryDocument) NextList(heading Node) (Node, bool) {
	sel, ok := heading.(*goquery.Selection)
	if !ok || sel.Length() == 0 {
		return nil, false
	}
	target := sel.Get(0)

	// Find returns matches in document order, so the first ul seen after
	// the heading node is the one that follows it
	var found *goquery.Selection
	passed := false
	d.doc.Find(d.headingTag+", ul").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.Get(0) == target {
			passed = true
			return true
		}
		if passed && goquery.NodeName(s) == "ul" {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// ListItems implements DocumentView
func (d *GoqueryDocument) ListItems(list Node) []string {
	sel, ok := list.(*goquery.Selection)
	if !ok {
		return nil
	}
	var items []string
	sel.Find("li").Each(func(i int, li *goquery.Selection) {
		items = append(items, li.Text())
	})
	return items
}
