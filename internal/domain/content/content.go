package content

import (
	"strconv"
	"strings"
)

type Meta struct {
	Key   string
	Value string
}

type User struct {
	SourceID    int64
	Login       string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
}

type Term struct {
	SourceID    int64
	Taxonomy    string
	Slug        string
	Name        string
	Description string
	// Parent is the parent term slug. Empty means root.
	Parent string
	Meta   []Meta
}

func (t Term) Key() string {
	return TermKey(t.Taxonomy, t.Slug)
}

// PostTerm is a term assignment nested in an item.
type PostTerm struct {
	Taxonomy string
	Slug     string
	Name     string
}

func (t PostTerm) Key() string {
	return TermKey(t.Taxonomy, t.Slug)
}

type Comment struct {
	SourceID    int64
	Author      string
	AuthorEmail string
	AuthorIP    string
	AuthorURL   string
	Date        string
	DateGMT     string
	Content     string
	Approved    string
	Type        string
	Parent      int64
	UserID      int64
	Meta        []Meta
}

func (c Comment) Key() string {
	return CommentKey(c.Author, c.Date)
}

type Post struct {
	SourceID      int64
	Type          string
	Title         string
	Content       string
	Excerpt       string
	Status        string
	Name          string
	Date          string
	DateGMT       string
	GUID          string
	Parent        int64
	MenuOrder     int
	Author        string
	CommentStatus string
	PingStatus    string
	Password      string
	IsSticky      string
	AttachmentURL string
	Terms         []PostTerm
	Comments      []Comment
	Meta          []Meta
}

func (p Post) Sticky() bool {
	return p.IsSticky == "1"
}

func (p Post) MetaValue(key string) (string, bool) {
	for _, m := range p.Meta {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// Document is the parsed form of one export file.
type Document struct {
	Version string
	BaseURL string
	Users   []User
	Terms   []Term
	Posts   []Post
}

func (d *Document) CountPosts() int {
	if d == nil {
		return 0
	}
	return len(d.Posts)
}

func TermKey(taxonomy, slug string) string {
	return taxonomy + ":" + slug
}

func CommentKey(author, date string) string {
	return author + ":" + date
}

// SplitTermKey is the inverse of TermKey. The taxonomy never contains a colon.
func SplitTermKey(key string) (taxonomy, slug string, ok bool) {
	taxonomy, slug, ok = strings.Cut(key, ":")
	if !ok || taxonomy == "" || slug == "" {
		return "", "", false
	}
	return taxonomy, slug, true
}

// ParseID coerces the way the exporter's numbers are read: leading digits
// count, anything else is zero.
func ParseID(raw string) int64 {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
