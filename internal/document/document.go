// Package document renders normalized posts as markdown documents with
// a YAML front-matter block.
package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// titleLayout gives minute-granularity titles; two posts created in the
// same minute map to the same document name
const titleLayout = "2006年01月02日 15.04"

// Document is the canonical output unit produced per archived post
type Document struct {
	Title string
	Date  string
	Body  string
	Media []string // ordered local media filenames
}

// frontMatter is the YAML block at the top of every rendered document
type frontMatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

// New creates a document for a post created at ts. Title and date are a
// pure function of the timestamp.
func New(ts time.Time, body string) *Document {
	return &Document{
		Title: ts.Format(titleLayout),
		Date:  ts.Format(time.RFC3339),
		Body:  body,
	}
}

// Filename returns the document's file name in the docs directory
func (d *Document) Filename() string {
	return d.Title + ".md"
}

// Render produces the full markdown document: front matter, body text,
// then one image reference line per media file in order.
func (d *Document) Render() (string, error) {
	fm, err := yaml.Marshal(frontMatter{Title: d.Title, Date: d.Date})
	if err != nil {
		return "", fmt.Errorf("failed to marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(d.Body)
	b.WriteString("\n")

	for _, name := range d.Media {
		fmt.Fprintf(&b, "\n![image](/images/%s)", name)
	}
	if len(d.Media) > 0 {
		b.WriteString("\n")
	}

	return b.String(), nil
}

// CleanHTML strips markup from feed-supplied HTML, keeping text content
// and turning explicit line breaks into newlines. Input that fails to
// parse is returned unchanged.
func CleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Selection.Nodes {
		walk(n)
	}

	return strings.TrimSpace(b.String())
}
