package html

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"form":     true,
	"input":    true,
	"button":   true,
	"select":   true,
	"ins":      true,
}

var blockTags = map[string]bool{
	"p":          true,
	"div":        true,
	"section":    true,
	"article":    true,
	"blockquote": true,
	"li":         true,
	"tr":         true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
}

// Cleaner turns a content container into plain text paragraphs
type Cleaner struct {
	badLines []*regexp.Regexp
}

// NewCleaner creates a cleaner that drops lines matching any of the patterns
func NewCleaner(patterns ...string) (*Cleaner, error) {
	c := &Cleaner{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid line pattern %q: %w", p, err)
		}
		c.badLines = append(c.badLines, re)
	}
	return c, nil
}

// ExtractContents returns the text of sel, one paragraph per line
func (c *Cleaner) ExtractContents(sel *goquery.Selection) string {
	w := &paragraphWriter{cleaner: c}
	for _, node := range sel.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			w.walk(child)
		}
	}
	w.flush()
	return strings.Join(w.lines, "\n")
}

func (c *Cleaner) keep(line string) bool {
	for _, re := range c.badLines {
		if re.MatchString(line) {
			return false
		}
	}
	return true
}

type paragraphWriter struct {
	cleaner *Cleaner
	buf     strings.Builder
	lines   []string
}

func (w *paragraphWriter) walk(node *nethtml.Node) {
	switch node.Type {
	case nethtml.TextNode:
		w.buf.WriteString(node.Data)
	case nethtml.ElementNode:
		if skippedTags[node.Data] {
			return
		}
		if node.Data == "br" {
			w.flush()
			return
		}
		block := blockTags[node.Data]
		if block {
			w.flush()
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			w.walk(child)
		}
		if block {
			w.flush()
		}
	}
}

func (w *paragraphWriter) flush() {
	if w.buf.Len() == 0 {
		return
	}
	for _, line := range strings.Split(w.buf.String(), "\n") {
		line = cleanLine(line)
		if line != "" && w.cleaner.keep(line) {
			w.lines = append(w.lines, line)
		}
	}
	w.buf.Reset()
}

// cleanLine trims ASCII, no-break and ideographic spaces from both ends
func cleanLine(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff' || r == '\u200b'
	})
}
