package wxr

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"golang.org/x/net/html/charset"
)

// StreamParser walks the token stream and only materialises one top-level
// entity subtree at a time.
type StreamParser struct{}

func NewStreamParser() *StreamParser {
	return &StreamParser{}
}

type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) toElement() *element {
	e := &element{
		ns:    prefixFor(n.XMLName.Space),
		local: n.XMLName.Local,
		text:  n.Text,
	}
	if len(n.Attrs) > 0 {
		e.attrs = make(map[string]string, len(n.Attrs))
		for _, a := range n.Attrs {
			e.attrs[a.Name.Local] = a.Value
		}
	}
	for i := range n.Nodes {
		e.children = append(e.children, n.Nodes[i].toElement())
	}
	return e
}

func (p *StreamParser) Parse(ctx context.Context, path string) (*content.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	defer f.Close()

	return p.parse(ctx, f)
}

func (p *StreamParser) parse(ctx context.Context, r io.Reader) (*content.Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		b        builder
		version  string
		baseSeen bool
		// open holds the local names of the elements enclosing the cursor,
		// up to rss/channel; channel children are decoded or skipped whole.
		open []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		var start xml.StartElement
		switch t := tok.(type) {
		case xml.StartElement:
			start = t
		case xml.EndElement:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			continue
		default:
			continue
		}

		if !inChannel(open) {
			open = append(open, start.Name.Local)
			continue
		}

		tag := &element{ns: prefixFor(start.Name.Space), local: start.Name.Local}
		switch {
		case tag.is("wp:wxr_version") && version == "":
			var raw string
			if err := dec.DecodeElement(&raw, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
			}
			version = strings.TrimSpace(raw)
			if version == "" {
				return nil, ErrMissingVersion
			}
			if err := checkVersion(version); err != nil {
				return nil, err
			}
		case tag.is("wp:base_site_url") && !baseSeen:
			baseSeen = true
			var raw string
			if err := dec.DecodeElement(&raw, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
			}
			b.doc.BaseURL = raw
		case isEntity(tag):
			var node xmlNode
			if err := dec.DecodeElement(&node, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
			}
			b.add(node.toElement())
		default:
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
			}
		}
	}

	if version == "" {
		return nil, ErrMissingVersion
	}
	b.doc.Version = version
	return b.document(), nil
}

func inChannel(open []string) bool {
	return len(open) == 2 && open[0] == "rss" && open[1] == "channel"
}
