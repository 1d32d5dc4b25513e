package importer

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/elliotchance/phpserialize"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

const stickyOption = "sticky_posts"

// Post meta keys regenerated on the destination and never copied.
var skippedPostMeta = map[string]struct{}{
	"_wp_attached_file":       {},
	"_wp_attachment_metadata": {},
	"_edit_lock":              {},
}

// ImportPosts imports doc.Posts[offset:offset+limit], with their terms,
// comments and meta. A limit of zero means to the end.
func (e *Engine) ImportPosts(ctx context.Context, doc *content.Document, offset, limit int) (Summary, error) {
	var sum Summary
	posts := window(doc.Posts, offset, limit)

	err := e.withSession(ctx, func(sess *Session) error {
		stickyBefore := len(sess.Sticky)
		for _, p := range posts {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.importPost(ctx, sess, p, doc.BaseURL, &sum)
		}
		if len(sess.Sticky) > stickyBefore {
			if err := e.stickPosts(ctx, sess.Sticky[stickyBefore:]); err != nil {
				e.logger.Warn("sticky posts not stored", zap.Error(err))
			}
		}
		return nil
	})
	return sum, err
}

func window(posts []content.Post, offset, limit int) []content.Post {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return nil
	}
	end := len(posts)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return posts[offset:end]
}

func (e *Engine) importPost(ctx context.Context, sess *Session, p content.Post, baseURL string, sum *Summary) {
	log := e.logger.With(zap.String("entity", "post"), zap.Int64("source_id", p.SourceID), zap.String("type", p.Type))

	if _, ok := sess.Posts.source(p.SourceID); ok {
		sum.Skipped++
		return
	}
	if !e.registry.PostTypeExists(p.Type) {
		log.Debug("post skipped, post type not registered")
		sum.Skipped++
		e.observe("post", "skipped")
		return
	}

	if existing, ok := e.index.Post(p.GUID); ok {
		if p.SourceID != 0 {
			sess.Posts.set(idKey(p.SourceID), existing)
		}
		e.importComments(ctx, sess, existing, p, true, sum)
		sum.Existing++
		e.observe("post", "existing")
		return
	}

	var markers []content.Meta
	var reasons []Reason

	parent := int64(0)
	if p.Parent != 0 {
		if id, ok := sess.Posts.source(p.Parent); ok {
			parent = id
		} else {
			markers = append(markers, content.Meta{Key: markerParent, Value: strconv.FormatInt(p.Parent, 10)})
			reasons = append(reasons, ReasonParent)
		}
	}

	author := e.cfg.CurrentUserID
	if p.Author != "" {
		if id, ok := sess.Users.get(loginKey(p.Author)); ok {
			author = id
		} else {
			markers = append(markers, content.Meta{Key: markerUserSlug, Value: p.Author})
			reasons = append(reasons, ReasonAuthor)
		}
	}

	in := content.NewPost{
		Type:          p.Type,
		Title:         p.Title,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		Status:        p.Status,
		Name:          p.Name,
		Date:          p.Date,
		DateGMT:       p.DateGMT,
		GUID:          p.GUID,
		Parent:        parent,
		MenuOrder:     p.MenuOrder,
		Author:        author,
		CommentStatus: p.CommentStatus,
		PingStatus:    p.PingStatus,
		Password:      p.Password,
	}

	var attachment *Attachment
	if p.Type == "attachment" {
		att, err := e.sideload(ctx, p, baseURL)
		if err != nil {
			log.Warn("attachment not imported", zap.Error(err))
			sum.Failed++
			e.observe("post", "failed")
			return
		}
		in.MimeType = att.MimeType
		attachment = &att
	}

	id, err := e.store.CreatePost(ctx, in)
	if err != nil {
		log.Warn("post not created", zap.Error(err))
		sum.Failed++
		e.observe("post", "failed")
		return
	}

	if p.SourceID != 0 {
		sess.Posts.set(idKey(p.SourceID), id)
	}
	e.index.RememberPost(p.GUID, id)
	if p.Sticky() {
		sess.Sticky = append(sess.Sticky, id)
	}
	if attachment != nil {
		if err := e.store.AddMeta(ctx, content.ObjectPost, id, "_wp_attached_file", attachment.RelPath); err != nil {
			log.Warn("attached file meta not stored", zap.Error(err))
		}
	}

	reasons = append(reasons, e.assignTerms(ctx, sess, id, p, &markers)...)
	e.importComments(ctx, sess, id, p, false, sum)
	e.importPostMeta(ctx, sess, id, p, markers)
	if p.Type == "nav_menu_item" {
		reasons = append(reasons, e.importMenuItem(ctx, sess, id, p)...)
	}

	for _, r := range reasons {
		sess.OrphanPosts.add(id, "", r)
	}
	if len(reasons) > 0 {
		sum.Deferred++
	}
	sum.Created++
	e.observe("post", "created")
	log.Debug("post created", zap.Int64("id", id), zap.Int("deferred", len(reasons)))
}

// assignTerms attaches every resolvable term and appends a marker for the rest.
func (e *Engine) assignTerms(ctx context.Context, sess *Session, postID int64, p content.Post, markers *[]content.Meta) []Reason {
	var ids []int64
	var reasons []Reason

	for _, pt := range p.Terms {
		key := pt.Key()
		if id, ok := sess.Terms.get(termKey(key)); ok {
			ids = append(ids, id)
			continue
		}
		if pt.Taxonomy == "post_format" {
			id, err := e.postFormatTerm(ctx, pt)
			if err != nil {
				e.logger.Warn("post format term not created", zap.String("key", key), zap.Error(err))
				continue
			}
			ids = append(ids, id)
			continue
		}
		*markers = append(*markers, content.Meta{Key: markerTerm, Value: key})
		if len(reasons) == 0 {
			reasons = append(reasons, ReasonTerm)
		}
	}

	if len(ids) > 0 {
		if err := e.store.AddPostTerms(ctx, postID, ids); err != nil {
			e.logger.Warn("post terms not assigned", zap.Int64("post_id", postID), zap.Error(err))
		}
	}
	return reasons
}

// postFormatTerm finds or creates a post_format term. The taxonomy always
// exists, so the term is never deferred.
func (e *Engine) postFormatTerm(ctx context.Context, pt content.PostTerm) (int64, error) {
	if id, ok := e.index.Term(pt.Key()); ok {
		return id, nil
	}
	id, found, err := e.store.FindTerm(ctx, pt.Taxonomy, pt.Slug)
	if err != nil {
		return 0, err
	}
	if !found {
		name := pt.Name
		if name == "" {
			name = pt.Slug
		}
		id, err = e.store.CreateTerm(ctx, content.NewTerm{Taxonomy: pt.Taxonomy, Slug: pt.Slug, Name: name})
		if err != nil {
			return 0, err
		}
	}
	e.index.RememberTerm(pt.Key(), id)
	return id, nil
}

func (e *Engine) importPostMeta(ctx context.Context, sess *Session, postID int64, p content.Post, markers []content.Meta) {
	for _, m := range append(append([]content.Meta{}, p.Meta...), markers...) {
		if m.Key == "" {
			continue
		}
		if _, skip := skippedPostMeta[m.Key]; skip {
			continue
		}
		value := m.Value
		if m.Key == "_edit_last" {
			id, ok := sess.Users.source(content.ParseID(m.Value))
			if !ok {
				continue
			}
			value = strconv.FormatInt(id, 10)
		}
		if err := e.store.AddMeta(ctx, content.ObjectPost, postID, m.Key, value); err != nil {
			e.logger.Warn("post meta not stored", zap.Int64("post_id", postID), zap.String("key", m.Key), zap.Error(err))
		}
	}
}

// importMenuItem points the menu item at the destination object it links to.
// The item's meta must already be stored.
func (e *Engine) importMenuItem(ctx context.Context, sess *Session, postID int64, p content.Post) []Reason {
	var reasons []Reason

	itemType, _ := p.MetaValue("_menu_item_type")
	rawObject, _ := p.MetaValue("_menu_item_object_id")
	sourceObject := content.ParseID(rawObject)

	var target int64
	resolved := false
	switch itemType {
	case "taxonomy":
		target, resolved = sess.Terms.source(sourceObject)
	case "post_type":
		target, resolved = sess.Posts.source(sourceObject)
	case "custom":
		target, resolved = postID, true
	default:
		resolved = true
	}

	if itemType != "" && itemType != "custom" && !resolved {
		e.addMarker(ctx, postID, markerMenuItem, strconv.FormatInt(sourceObject, 10))
		e.updateMeta(ctx, postID, "_menu_item_object_id", "0")
		reasons = append(reasons, ReasonMenuItem)
	} else if target != 0 {
		e.updateMeta(ctx, postID, "_menu_item_object_id", strconv.FormatInt(target, 10))
	}

	rawParent, _ := p.MetaValue("_menu_item_menu_item_parent")
	if sourceParent := content.ParseID(rawParent); sourceParent != 0 {
		if id, ok := sess.Posts.source(sourceParent); ok {
			e.updateMeta(ctx, postID, "_menu_item_menu_item_parent", strconv.FormatInt(id, 10))
		} else {
			e.addMarker(ctx, postID, markerMenuParent, strconv.FormatInt(sourceParent, 10))
			e.updateMeta(ctx, postID, "_menu_item_menu_item_parent", "0")
			if len(reasons) == 0 {
				reasons = append(reasons, ReasonMenuItem)
			}
		}
	}
	return reasons
}

func (e *Engine) addMarker(ctx context.Context, postID int64, key, value string) {
	if err := e.store.AddMeta(ctx, content.ObjectPost, postID, key, value); err != nil {
		e.logger.Warn("marker not stored", zap.Int64("post_id", postID), zap.String("key", key), zap.Error(err))
	}
}

func (e *Engine) updateMeta(ctx context.Context, postID int64, key, value string) {
	if err := e.store.UpdateMeta(ctx, content.ObjectPost, postID, key, value); err != nil {
		e.logger.Warn("post meta not updated", zap.Int64("post_id", postID), zap.String("key", key), zap.Error(err))
	}
}

// importComments replays a post's comments in source id order. Comments of a
// post that already existed are matched by author and date first.
func (e *Engine) importComments(ctx context.Context, sess *Session, postID int64, p content.Post, postExisted bool, sum *Summary) {
	comments := append([]content.Comment{}, p.Comments...)
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i].SourceID, comments[j].SourceID
		if a == 0 || b == 0 {
			return a != 0 && b == 0
		}
		return a < b
	})

	for _, c := range comments {
		log := e.logger.With(zap.String("entity", "comment"), zap.Int64("source_id", c.SourceID), zap.Int64("post_id", postID))

		if _, ok := sess.Comments.source(c.SourceID); ok {
			continue
		}
		if postExisted {
			if existing, ok := e.index.Comment(c.Key()); ok {
				if c.SourceID != 0 {
					sess.Comments.set(idKey(c.SourceID), existing)
				}
				sum.CommentsExisting++
				e.observe("comment", "existing")
				continue
			}
		}

		var markers []content.Meta
		parent := int64(0)
		if c.Parent != 0 {
			if id, ok := sess.Comments.source(c.Parent); ok {
				parent = id
			} else {
				markers = append(markers, content.Meta{Key: markerParent, Value: strconv.FormatInt(c.Parent, 10)})
			}
		}
		userID := int64(0)
		if c.UserID != 0 {
			if id, ok := sess.Users.source(c.UserID); ok {
				userID = id
			} else {
				markers = append(markers, content.Meta{Key: markerUser, Value: strconv.FormatInt(c.UserID, 10)})
			}
		}

		id, err := e.store.CreateComment(ctx, content.NewComment{
			PostID:      postID,
			Author:      c.Author,
			AuthorEmail: c.AuthorEmail,
			AuthorIP:    c.AuthorIP,
			AuthorURL:   c.AuthorURL,
			Date:        c.Date,
			DateGMT:     c.DateGMT,
			Content:     c.Content,
			Approved:    c.Approved,
			Type:        c.Type,
			Parent:      parent,
			UserID:      userID,
		})
		if err != nil {
			log.Warn("comment not created", zap.Error(err))
			e.observe("comment", "failed")
			continue
		}

		if c.SourceID != 0 {
			sess.Comments.set(idKey(c.SourceID), id)
		}
		e.index.RememberComment(c.Key(), id)

		for _, m := range append(append([]content.Meta{}, c.Meta...), markers...) {
			if m.Key == "" {
				continue
			}
			if err := e.store.AddMeta(ctx, content.ObjectComment, id, m.Key, m.Value); err != nil {
				log.Warn("comment meta not stored", zap.String("key", m.Key), zap.Error(err))
			}
		}
		for _, m := range markers {
			sess.OrphanComments.add(id, "", commentReason(m.Key))
		}

		sum.CommentsCreated++
		e.observe("comment", "created")
	}
}

func commentReason(marker string) Reason {
	if marker == markerUser {
		return ReasonAuthor
	}
	return ReasonParent
}

// stickPosts merges ids into the sticky_posts option.
func (e *Engine) stickPosts(ctx context.Context, ids []int64) error {
	current, err := e.stickyIDs(ctx)
	if err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(current))
	for _, id := range current {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		current = append(current, id)
	}

	list := make([]any, 0, len(current))
	for _, id := range current {
		list = append(list, id)
	}
	encoded, err := phpserialize.Marshal(list, nil)
	if err != nil {
		return fmt.Errorf("encode %s: %w", stickyOption, err)
	}
	return e.store.SetOption(ctx, stickyOption, string(encoded))
}

func (e *Engine) stickyIDs(ctx context.Context) ([]int64, error) {
	raw, ok, err := e.store.GetOption(ctx, stickyOption)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	values, err := phpserialize.UnmarshalIndexedArray([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", stickyOption, err)
	}
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case int64:
			ids = append(ids, n)
		case string:
			ids = append(ids, content.ParseID(n))
		}
	}
	return ids, nil
}
