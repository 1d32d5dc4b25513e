package importer

import (
	"context"
	"errors"
	"strconv"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

type RemapSummary struct {
	Posts      int `json:"posts"`
	Comments   int `json:"comments"`
	Terms      int `json:"terms"`
	Unresolved int `json:"unresolved"`
}

// Remap resolves the references deferred during import. Every orphan entry is
// visited once and removed; markers that still cannot be resolved stay on the
// entity.
func (e *Engine) Remap(ctx context.Context) (RemapSummary, error) {
	var sum RemapSummary
	err := e.withSession(ctx, func(sess *Session) error {
		for _, id := range sess.OrphanPosts.ids() {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.remapPost(ctx, sess, id, &sum)
			delete(sess.OrphanPosts, id)
		}
		for _, id := range sess.OrphanComments.ids() {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.remapComment(ctx, sess, id, &sum)
			delete(sess.OrphanComments, id)
		}
		for _, id := range sess.OrphanTerms.ids() {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.remapTerm(ctx, sess, id, sess.OrphanTerms[id].Taxonomy, &sum)
			delete(sess.OrphanTerms, id)
		}
		return nil
	})
	if err == nil {
		e.logger.Info("remap finished",
			zap.Int("posts", sum.Posts),
			zap.Int("comments", sum.Comments),
			zap.Int("terms", sum.Terms),
			zap.Int("unresolved", sum.Unresolved),
		)
	}
	return sum, err
}

// firstMeta returns the first value stored under key.
func (e *Engine) firstMeta(ctx context.Context, kind content.ObjectKind, id int64, key string) (string, error) {
	values, err := e.store.GetMeta(ctx, kind, id, key)
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}

func (e *Engine) remapPost(ctx context.Context, sess *Session, id int64, sum *RemapSummary) {
	log := e.logger.With(zap.String("entity", "post"), zap.Int64("id", id))
	var patch content.PostPatch
	var resolved []string
	unresolved := 0

	if raw, err := e.firstMeta(ctx, content.ObjectPost, id, markerParent); err != nil {
		log.Warn("parent marker not read", zap.Error(err))
	} else if raw != "" {
		if parent, ok := sess.Posts.source(content.ParseID(raw)); ok {
			patch.Parent = &parent
			resolved = append(resolved, markerParent)
		} else {
			unresolved++
		}
	}

	if login, err := e.firstMeta(ctx, content.ObjectPost, id, markerUserSlug); err != nil {
		log.Warn("author marker not read", zap.Error(err))
	} else if login != "" {
		if author, ok := sess.Users.get(loginKey(login)); ok {
			patch.Author = &author
			resolved = append(resolved, markerUserSlug)
		} else {
			unresolved++
		}
	}

	if patch.Parent != nil || patch.Author != nil {
		if err := e.store.UpdatePost(ctx, id, patch); err != nil {
			log.Warn("post not remapped", zap.Error(err))
			sum.Unresolved += unresolved + len(resolved)
			return
		}
		for _, key := range resolved {
			e.deleteMarker(ctx, content.ObjectPost, id, key, "")
		}
	}

	unresolved += e.remapMenuItem(ctx, sess, id)
	unresolved += e.remapPostTerms(ctx, sess, id)

	if unresolved > 0 {
		sum.Unresolved += unresolved
		return
	}
	sum.Posts++
}

// remapMenuItem returns how many menu references are still unresolved.
func (e *Engine) remapMenuItem(ctx context.Context, sess *Session, id int64) int {
	unresolved := 0

	raw, err := e.firstMeta(ctx, content.ObjectPost, id, markerMenuItem)
	if err != nil {
		e.logger.Warn("menu item marker not read", zap.Int64("id", id), zap.Error(err))
	} else if raw != "" {
		itemType, _ := e.firstMeta(ctx, content.ObjectPost, id, "_menu_item_type")
		var target int64
		ok := false
		switch itemType {
		case "taxonomy":
			target, ok = sess.Terms.source(content.ParseID(raw))
		case "post_type":
			target, ok = sess.Posts.source(content.ParseID(raw))
		}
		if ok {
			e.updateMeta(ctx, id, "_menu_item_object_id", strconv.FormatInt(target, 10))
			e.deleteMarker(ctx, content.ObjectPost, id, markerMenuItem, "")
		} else {
			unresolved++
		}
	}

	raw, err = e.firstMeta(ctx, content.ObjectPost, id, markerMenuParent)
	if err != nil {
		e.logger.Warn("menu parent marker not read", zap.Int64("id", id), zap.Error(err))
	} else if raw != "" {
		if parent, ok := sess.Posts.source(content.ParseID(raw)); ok {
			e.updateMeta(ctx, id, "_menu_item_menu_item_parent", strconv.FormatInt(parent, 10))
			e.deleteMarker(ctx, content.ObjectPost, id, markerMenuParent, "")
		} else {
			unresolved++
		}
	}
	return unresolved
}

// remapPostTerms attaches deferred term assignments that can now be resolved.
func (e *Engine) remapPostTerms(ctx context.Context, sess *Session, id int64) int {
	keys, err := e.store.GetMeta(ctx, content.ObjectPost, id, markerTerm)
	if err != nil {
		e.logger.Warn("term markers not read", zap.Int64("id", id), zap.Error(err))
		return 0
	}

	var ids []int64
	var done []string
	for _, key := range keys {
		if termID, ok := sess.Terms.get(termKey(key)); ok {
			ids = append(ids, termID)
			done = append(done, key)
		}
	}
	if len(ids) > 0 {
		if err := e.store.AddPostTerms(ctx, id, ids); err != nil {
			e.logger.Warn("deferred terms not assigned", zap.Int64("id", id), zap.Error(err))
			return len(keys)
		}
		for _, key := range done {
			e.deleteMarker(ctx, content.ObjectPost, id, markerTerm, key)
		}
	}
	return len(keys) - len(done)
}

func (e *Engine) remapComment(ctx context.Context, sess *Session, id int64, sum *RemapSummary) {
	log := e.logger.With(zap.String("entity", "comment"), zap.Int64("id", id))
	var patch content.CommentPatch
	var resolved []string
	unresolved := 0

	if raw, err := e.firstMeta(ctx, content.ObjectComment, id, markerParent); err != nil {
		log.Warn("parent marker not read", zap.Error(err))
	} else if raw != "" {
		if parent, ok := sess.Comments.source(content.ParseID(raw)); ok {
			patch.Parent = &parent
			resolved = append(resolved, markerParent)
		} else {
			unresolved++
		}
	}

	if raw, err := e.firstMeta(ctx, content.ObjectComment, id, markerUser); err != nil {
		log.Warn("user marker not read", zap.Error(err))
	} else if raw != "" {
		if user, ok := sess.Users.source(content.ParseID(raw)); ok {
			patch.UserID = &user
			resolved = append(resolved, markerUser)
		} else {
			unresolved++
		}
	}

	if len(resolved) > 0 {
		if err := e.store.UpdateComment(ctx, id, patch); err != nil {
			log.Warn("comment not remapped", zap.Error(err))
			sum.Unresolved += unresolved + len(resolved)
			return
		}
		for _, key := range resolved {
			e.deleteMarker(ctx, content.ObjectComment, id, key, "")
		}
	}

	if unresolved > 0 {
		sum.Unresolved += unresolved
		return
	}
	sum.Comments++
}

func (e *Engine) remapTerm(ctx context.Context, sess *Session, id int64, taxonomy string, sum *RemapSummary) {
	log := e.logger.With(zap.String("entity", "term"), zap.Int64("id", id), zap.String("taxonomy", taxonomy))
	if taxonomy == "" {
		return
	}

	slug, err := e.firstMeta(ctx, content.ObjectTerm, id, markerParent)
	if err != nil {
		log.Warn("parent marker not read", zap.Error(err))
		return
	}
	if slug == "" {
		return
	}

	var mapped int64
	if slug != topParent {
		var ok bool
		if mapped, ok = sess.Terms.get(slugKey(slug)); !ok {
			sum.Unresolved++
			return
		}
	}

	current, err := e.store.TermParent(ctx, id)
	if errors.Is(err, content.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn("term not read", zap.Error(err))
		sum.Unresolved++
		return
	}
	if current != mapped {
		if err := e.store.UpdateTermParent(ctx, id, mapped); err != nil {
			log.Warn("term not remapped", zap.Error(err))
			sum.Unresolved++
			return
		}
	}
	e.deleteMarker(ctx, content.ObjectTerm, id, markerParent, "")
	sum.Terms++
}

func (e *Engine) deleteMarker(ctx context.Context, kind content.ObjectKind, id int64, key, value string) {
	if err := e.store.DeleteMeta(ctx, kind, id, key, value); err != nil {
		e.logger.Warn("marker not deleted", zap.String("kind", string(kind)), zap.Int64("id", id), zap.String("key", key), zap.Error(err))
	}
}
