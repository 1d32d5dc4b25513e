package store

import (
	"context"
	"fmt"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
)

func (s *Store) PostGUIDs(ctx context.Context) (map[string]int64, error) {
	var rows []models.Post
	if err := s.db.WithContext(ctx).Select("id", "guid").Where("guid <> ''").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load post guids: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		if _, ok := out[r.GUID]; !ok {
			out[r.GUID] = r.ID
		}
	}
	return out, nil
}

func (s *Store) CommentKeys(ctx context.Context) (map[string]int64, error) {
	var rows []models.Comment
	if err := s.db.WithContext(ctx).Select("id", "author", "date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load comment keys: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		key := content.CommentKey(r.Author, r.Date)
		if _, ok := out[key]; !ok {
			out[key] = r.ID
		}
	}
	return out, nil
}

func (s *Store) TermKeys(ctx context.Context) (map[string]int64, error) {
	var rows []models.Term
	if err := s.db.WithContext(ctx).Select("id", "taxonomy", "slug").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load term keys: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[content.TermKey(r.Taxonomy, r.Slug)] = r.ID
	}
	return out, nil
}
