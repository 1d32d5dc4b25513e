package wxr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
)

// DOMParser loads the whole document and selects entities with XPath.
type DOMParser struct{}

func NewDOMParser() *DOMParser {
	return &DOMParser{}
}

var entityQueries = []struct {
	expr string
	ns   string
}{
	{expr: "/rss/channel/*[local-name()='author']", ns: nsWP},
	{expr: "/rss/channel/*[local-name()='category']", ns: nsWP},
	{expr: "/rss/channel/*[local-name()='tag']", ns: nsWP},
	{expr: "/rss/channel/*[local-name()='term']", ns: nsWP},
	{expr: "/rss/channel/item", ns: ""},
}

func (p *DOMParser) Parse(ctx context.Context, path string) (*content.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}

	version := ""
	for _, n := range xmlquery.Find(doc, "/rss/channel/*[local-name()='wxr_version']") {
		if prefixFor(n.NamespaceURI) == nsWP {
			version = strings.TrimSpace(n.InnerText())
			break
		}
	}
	if version == "" {
		return nil, ErrMissingVersion
	}
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	var b builder
	b.doc.Version = version
	for _, n := range xmlquery.Find(doc, "/rss/channel/*[local-name()='base_site_url']") {
		if prefixFor(n.NamespaceURI) == nsWP {
			b.doc.BaseURL = n.InnerText()
			break
		}
	}

	for _, q := range entityQueries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, n := range xmlquery.Find(doc, q.expr) {
			if prefixFor(n.NamespaceURI) != q.ns {
				continue
			}
			b.add(fromNode(n))
		}
	}

	return b.document(), nil
}

func fromNode(n *xmlquery.Node) *element {
	e := &element{
		ns:    prefixFor(n.NamespaceURI),
		local: n.Data,
	}
	if len(n.Attr) > 0 {
		e.attrs = make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			e.attrs[a.Name.Local] = a.Value
		}
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(c.Data)
		case xmlquery.ElementNode:
			e.children = append(e.children, fromNode(c))
		}
	}
	e.text = text.String()
	return e
}
