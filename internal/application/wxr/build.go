package wxr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
)

// MaxVersion is the newest export schema this parser understands.
const MaxVersion = "1.2"

var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// checkVersion accepts a <digits>.<digits> token no newer than MaxVersion.
func checkVersion(raw string) error {
	raw = strings.TrimSpace(raw)
	if !versionPattern.MatchString(raw) {
		return fmt.Errorf("%w: %q", ErrMissingVersion, raw)
	}
	if compareVersion(raw, MaxVersion) > 0 {
		return fmt.Errorf("%w: %s (max %s)", ErrUnsupportedVersion, raw, MaxVersion)
	}
	return nil
}

func compareVersion(a, b string) int {
	aMajor, aMinor := splitVersion(a)
	bMajor, bMinor := splitVersion(b)
	switch {
	case aMajor != bMajor:
		return cmpInt(aMajor, bMajor)
	default:
		return cmpInt(aMinor, bMinor)
	}
}

func splitVersion(v string) (int, int) {
	major, minor, _ := strings.Cut(v, ".")
	ma, _ := strconv.Atoi(major)
	mi, _ := strconv.Atoi(minor)
	return ma, mi
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// builder collects records in the bucket order the importer expects,
// independent of the order elements appear in the file.
type builder struct {
	doc        content.Document
	categories []content.Term
	tags       []content.Term
	terms      []content.Term
}

func (b *builder) add(e *element) {
	switch {
	case e.is("wp:author"):
		b.doc.Users = append(b.doc.Users, buildUser(e))
	case e.is("wp:category"):
		b.categories = append(b.categories, buildCategory(e))
	case e.is("wp:tag"):
		b.tags = append(b.tags, buildTag(e))
	case e.is("wp:term"):
		if t, ok := buildTerm(e); ok {
			b.terms = append(b.terms, t)
		}
	case e.is("item"):
		b.doc.Posts = append(b.doc.Posts, buildPost(e))
	}
}

func (b *builder) document() *content.Document {
	doc := b.doc
	doc.Terms = make([]content.Term, 0, len(b.categories)+len(b.tags)+len(b.terms))
	doc.Terms = append(doc.Terms, b.categories...)
	doc.Terms = append(doc.Terms, b.tags...)
	doc.Terms = append(doc.Terms, b.terms...)
	return &doc
}

func isEntity(e *element) bool {
	return e.is("wp:author") || e.is("wp:category") || e.is("wp:tag") || e.is("wp:term") || e.is("item")
}

func buildUser(e *element) content.User {
	return content.User{
		SourceID:    content.ParseID(e.value("wp:author_id")),
		Login:       e.value("wp:author_login"),
		Email:       e.value("wp:author_email"),
		DisplayName: e.value("wp:author_display_name"),
		FirstName:   e.value("wp:author_first_name"),
		LastName:    e.value("wp:author_last_name"),
	}
}

func buildCategory(e *element) content.Term {
	return content.Term{
		SourceID:    content.ParseID(e.value("wp:term_id")),
		Taxonomy:    "category",
		Slug:        e.value("wp:category_nicename"),
		Name:        e.value("wp:cat_name"),
		Description: e.value("wp:category_description"),
		Parent:      e.value("wp:category_parent"),
		Meta:        buildMeta(e.all("wp:termmeta")),
	}
}

func buildTag(e *element) content.Term {
	return content.Term{
		SourceID:    content.ParseID(e.value("wp:term_id")),
		Taxonomy:    "post_tag",
		Slug:        e.value("wp:tag_slug"),
		Name:        e.value("wp:tag_name"),
		Description: e.value("wp:tag_description"),
		Meta:        buildMeta(e.all("wp:termmeta")),
	}
}

// buildTerm drops terms without a taxonomy instead of guessing one.
func buildTerm(e *element) (content.Term, bool) {
	taxonomy := e.value("wp:term_taxonomy")
	if taxonomy == "" {
		return content.Term{}, false
	}
	return content.Term{
		SourceID:    content.ParseID(e.value("wp:term_id")),
		Taxonomy:    taxonomy,
		Slug:        e.value("wp:term_slug"),
		Name:        e.value("wp:term_name"),
		Description: e.value("wp:term_description"),
		Parent:      e.value("wp:term_parent"),
		Meta:        buildMeta(e.all("wp:termmeta")),
	}, true
}

func buildPost(e *element) content.Post {
	post := content.Post{
		SourceID:      content.ParseID(e.value("wp:post_id")),
		Type:          e.value("wp:post_type"),
		Title:         e.value("title"),
		Content:       e.value("content:encoded"),
		Excerpt:       e.value("excerpt:encoded"),
		Status:        e.value("wp:status"),
		Name:          e.value("wp:post_name"),
		Date:          e.value("wp:post_date"),
		DateGMT:       e.value("wp:post_date_gmt"),
		GUID:          e.value("guid"),
		Parent:        content.ParseID(e.value("wp:post_parent")),
		MenuOrder:     int(content.ParseID(e.value("wp:menu_order"))),
		Author:        e.value("dc:creator"),
		CommentStatus: e.value("wp:comment_status"),
		PingStatus:    e.value("wp:ping_status"),
		Password:      e.value("wp:post_password"),
		IsSticky:      e.value("wp:is_sticky"),
		AttachmentURL: e.value("wp:attachment_url"),
		Meta:          buildMeta(e.all("wp:postmeta")),
	}

	for _, c := range e.all("category") {
		if t, ok := buildPostTerm(c); ok {
			post.Terms = append(post.Terms, t)
		}
	}
	for _, c := range e.all("wp:comment") {
		post.Comments = append(post.Comments, buildComment(c))
	}
	return post
}

func buildPostTerm(e *element) (content.PostTerm, bool) {
	slug := e.attr("nicename")
	if slug == "" {
		return content.PostTerm{}, false
	}
	taxonomy := e.attr("domain")
	switch taxonomy {
	case "":
		taxonomy = "category"
	case "tag":
		taxonomy = "post_tag"
	}
	return content.PostTerm{Taxonomy: taxonomy, Slug: slug, Name: e.text}, true
}

func buildComment(e *element) content.Comment {
	return content.Comment{
		SourceID:    content.ParseID(e.value("wp:comment_id")),
		Author:      e.value("wp:comment_author"),
		AuthorEmail: e.value("wp:comment_author_email"),
		AuthorIP:    e.value("wp:comment_author_IP"),
		AuthorURL:   e.value("wp:comment_author_url"),
		Date:        e.value("wp:comment_date"),
		DateGMT:     e.value("wp:comment_date_gmt"),
		Content:     e.value("wp:comment_content"),
		Approved:    e.value("wp:comment_approved"),
		Type:        e.value("wp:comment_type"),
		Parent:      content.ParseID(e.value("wp:comment_parent")),
		UserID:      content.ParseID(e.value("wp:comment_user_id")),
		Meta:        buildMeta(e.all("wp:commentmeta")),
	}
}

// buildMeta keeps only pairs with both a key and a value.
func buildMeta(nodes []*element) []content.Meta {
	var out []content.Meta
	for _, n := range nodes {
		key := n.value("wp:meta_key")
		value := n.value("wp:meta_value")
		if key == "" || value == "" {
			continue
		}
		out = append(out, content.Meta{Key: key, Value: value})
	}
	return out
}
