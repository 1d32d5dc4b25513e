package store

import (
	"context"
	"fmt"

	"github.com/elliotchance/phpserialize"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DeferCounting toggles term and comment counting; turning it back on
// recounts everything touched while it was off.
func (s *Store) DeferCounting(ctx context.Context, deferred bool) error {
	s.mu.Lock()
	was := s.countsDeferred
	s.countsDeferred = deferred
	s.mu.Unlock()

	if deferred || !was {
		return nil
	}
	if err := s.recountTerms(ctx, nil); err != nil {
		return err
	}
	return s.recountComments(ctx, 0)
}

func (s *Store) SuspendCacheInvalidation(suspend bool) {
	s.mu.Lock()
	s.cacheSuspended = suspend
	s.mu.Unlock()
}

func (s *Store) FlushCache(ctx context.Context) error {
	s.mu.Lock()
	s.options = make(map[string]string)
	s.mu.Unlock()
	return nil
}

// RebuildTermHierarchy stores the {taxonomy}_children option: parent id to child ids.
func (s *Store) RebuildTermHierarchy(ctx context.Context, taxonomy string) error {
	var rows []models.Term
	if err := s.db.WithContext(ctx).
		Select("id", "parent").
		Where("taxonomy = ? AND parent <> 0", taxonomy).
		Order("id").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("load %s hierarchy: %w", taxonomy, err)
	}

	children := map[any]any{}
	for _, row := range rows {
		list, _ := children[row.Parent].([]any)
		children[row.Parent] = append(list, row.ID)
	}

	encoded, err := phpserialize.Marshal(children, nil)
	if err != nil {
		return fmt.Errorf("encode %s hierarchy: %w", taxonomy, err)
	}
	if err := s.SetOption(ctx, taxonomy+"_children", string(encoded)); err != nil {
		return err
	}
	s.logger.Debug("term hierarchy rebuilt", zap.String("taxonomy", taxonomy), zap.Int("parents", len(children)))
	return nil
}

func (s *Store) FlushRewriteRules(ctx context.Context) error {
	return s.DeleteOption(ctx, "rewrite_rules")
}

func (s *Store) recountTerms(ctx context.Context, termIDs []int64) error {
	q := s.db.WithContext(ctx).Model(&models.Term{})
	if len(termIDs) > 0 {
		q = q.Where("id IN ?", termIDs)
	} else {
		q = q.Where("1 = 1")
	}
	if err := q.Update("count", gorm.Expr(
		"(SELECT COUNT(*) FROM wp_term_relationships r WHERE r.term_id = wp_terms.id)",
	)).Error; err != nil {
		return fmt.Errorf("recount terms: %w", err)
	}
	return nil
}

func (s *Store) recountComments(ctx context.Context, postID int64) error {
	q := s.db.WithContext(ctx).Model(&models.Post{})
	if postID > 0 {
		q = q.Where("id = ?", postID)
	} else {
		q = q.Where("1 = 1")
	}
	if err := q.Update("comment_count", gorm.Expr(
		"(SELECT COUNT(*) FROM wp_comments c WHERE c.post_id = wp_posts.id AND c.approved = '1')",
	)).Error; err != nil {
		return fmt.Errorf("recount comments: %w", err)
	}
	return nil
}
