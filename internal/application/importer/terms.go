package importer

import (
	"context"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

// topParent is the slug standing for "no parent" in a term hierarchy.
const topParent = "top"

// ImportTerms creates categories, tags and custom terms. A parent that has
// not been created yet is deferred to the remap pass.
func (e *Engine) ImportTerms(ctx context.Context, doc *content.Document) (Summary, error) {
	var sum Summary
	err := e.withSession(ctx, func(sess *Session) error {
		for _, t := range doc.Terms {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.importTerm(ctx, sess, t, &sum)
		}
		return nil
	})
	return sum, err
}

func (e *Engine) importTerm(ctx context.Context, sess *Session, t content.Term, sum *Summary) {
	log := e.logger.With(zap.String("entity", "term"), zap.Int64("source_id", t.SourceID), zap.String("key", t.Key()))
	key := t.Key()

	if existing, ok := e.index.Term(key); ok {
		e.mapTerm(sess, t, existing)
		sum.Existing++
		e.observe("term", "existing")
		return
	}
	if _, ok := sess.Terms.get(termKey(key)); ok {
		sum.Skipped++
		return
	}
	if !e.registry.TaxonomyExists(t.Taxonomy) {
		log.Warn("term skipped, taxonomy not registered")
		sum.Skipped++
		e.observe("term", "skipped")
		return
	}

	parent, deferred := e.resolveTermParent(sess, t.Parent)

	id, err := e.store.CreateTerm(ctx, content.NewTerm{
		Taxonomy:    t.Taxonomy,
		Slug:        t.Slug,
		Name:        t.Name,
		Description: t.Description,
		Parent:      parent,
	})
	if err != nil {
		log.Warn("term not created", zap.Error(err))
		sum.Failed++
		e.observe("term", "failed")
		return
	}

	e.mapTerm(sess, t, id)
	e.index.RememberTerm(key, id)

	if deferred {
		if err := e.store.AddMeta(ctx, content.ObjectTerm, id, markerParent, t.Parent); err != nil {
			log.Warn("parent marker not stored", zap.Error(err))
		}
		sess.OrphanTerms.add(id, t.Taxonomy, ReasonParent)
		sum.Deferred++
	}

	for _, m := range t.Meta {
		if m.Key == "" {
			continue
		}
		if err := e.store.AddMeta(ctx, content.ObjectTerm, id, m.Key, m.Value); err != nil {
			log.Warn("term meta not stored", zap.String("key", m.Key), zap.Error(err))
		}
	}

	sum.Created++
	e.observe("term", "created")
	log.Debug("term created", zap.Int64("id", id), zap.Int64("parent", parent))
}

// resolveTermParent returns the destination parent and whether the slug must
// be resolved later.
func (e *Engine) resolveTermParent(sess *Session, slug string) (int64, bool) {
	if slug == "" || slug == topParent {
		return 0, false
	}
	if id, ok := sess.Terms.get(slugKey(slug)); ok {
		return id, false
	}
	return 0, true
}

func (e *Engine) mapTerm(sess *Session, t content.Term, id int64) {
	sess.Terms.set(termKey(t.Key()), id)
	if t.SourceID != 0 {
		sess.Terms.set(idKey(t.SourceID), id)
	}
	sess.Terms.set(slugKey(t.Slug), id)
}
