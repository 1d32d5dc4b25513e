package wxr

import "strings"

const (
	nsWP      = "wp"
	nsExcerpt = "excerpt"
	nsContent = "content"
	nsDC      = "dc"
)

// element is the strategy-neutral subtree both parsers hand to the builders.
type element struct {
	ns       string
	local    string
	text     string
	attrs    map[string]string
	children []*element
}

// prefixFor maps a namespace URI to the short name the builders query by.
// The export namespace carries the schema version, so only its prefix is checked.
func prefixFor(uri string) string {
	switch {
	case strings.HasPrefix(uri, "http://wordpress.org/export/"):
		if strings.HasSuffix(strings.TrimSuffix(uri, "/"), "/excerpt") {
			return nsExcerpt
		}
		return nsWP
	case strings.HasPrefix(uri, "http://purl.org/rss/1.0/modules/content"):
		return nsContent
	case strings.HasPrefix(uri, "http://purl.org/dc/elements/1.1"):
		return nsDC
	default:
		return ""
	}
}

func splitName(name string) (string, string) {
	if ns, local, ok := strings.Cut(name, ":"); ok {
		return ns, local
	}
	return "", name
}

func (e *element) is(name string) bool {
	ns, local := splitName(name)
	return e.ns == ns && e.local == local
}

func (e *element) child(name string) *element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if c.is(name) {
			return c
		}
	}
	return nil
}

func (e *element) all(name string) []*element {
	if e == nil {
		return nil
	}
	var out []*element
	for _, c := range e.children {
		if c.is(name) {
			out = append(out, c)
		}
	}
	return out
}

// value returns the text of the named child, or "" when it is absent.
func (e *element) value(name string) string {
	c := e.child(name)
	if c == nil {
		return ""
	}
	return c.text
}

func (e *element) attr(name string) string {
	if e == nil || e.attrs == nil {
		return ""
	}
	return e.attrs[name]
}
