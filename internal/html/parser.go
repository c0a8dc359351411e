package html

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotFound is returned when a required element is missing from a page
var ErrNotFound = errors.New("element not found")

// Page is a parsed HTML document
type Page struct {
	doc *goquery.Document
}

// ParsePage parses an already decoded HTML string
func ParsePage(raw string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unable to parse HTML: %w", err)
	}
	return &Page{doc: doc}, nil
}

// Select returns every element matching selector, in document order
func (p *Page) Select(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// SelectOne returns the first element matching selector
func (p *Page) SelectOne(selector string) (*goquery.Selection, error) {
	return SelectOne(p.doc.Selection, selector)
}

// SelectOne returns the first descendant of sel matching selector
func SelectOne(sel *goquery.Selection, selector string) (*goquery.Selection, error) {
	found := sel.Find(selector)
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return found.First(), nil
}

// SelectAt returns the idx-th element matching selector
func (p *Page) SelectAt(selector string, idx int) (*goquery.Selection, error) {
	found := p.doc.Find(selector)
	if idx < 0 || idx >= found.Length() {
		return nil, fmt.Errorf("%w: %s[%d] (have %d)", ErrNotFound, selector, idx, found.Length())
	}
	return found.Eq(idx), nil
}

// Remove detaches every descendant of sel matching one of the selectors and
// reports how many elements were removed.
func Remove(sel *goquery.Selection, selectors ...string) int {
	if len(selectors) == 0 {
		return 0
	}
	matched := sel.Find(strings.Join(selectors, ", "))
	n := matched.Length()
	matched.Remove()
	return n
}

// Text returns the trimmed text content of sel
func Text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
