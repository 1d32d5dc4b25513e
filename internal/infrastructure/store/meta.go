package store

import (
	"context"
	"fmt"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
)

func metaTable(kind content.ObjectKind) (string, error) {
	switch kind {
	case content.ObjectPost:
		return "wp_postmeta", nil
	case content.ObjectTerm:
		return "wp_termmeta", nil
	case content.ObjectComment:
		return "wp_commentmeta", nil
	case content.ObjectUser:
		return "wp_usermeta", nil
	default:
		return "", fmt.Errorf("%w: %s", content.ErrUnknownObjectKind, kind)
	}
}

func (s *Store) AddMeta(ctx context.Context, kind content.ObjectKind, objectID int64, key, value string) error {
	table, err := metaTable(kind)
	if err != nil {
		return err
	}
	row := models.Meta{ObjectID: objectID, MetaKey: key, MetaValue: value}
	if err := s.db.WithContext(ctx).Table(table).Create(&row).Error; err != nil {
		return fmt.Errorf("add %s meta %s: %w", kind, key, err)
	}
	return nil
}

func (s *Store) GetMeta(ctx context.Context, kind content.ObjectKind, objectID int64, key string) ([]string, error) {
	table, err := metaTable(kind)
	if err != nil {
		return nil, err
	}
	var values []string
	if err := s.db.WithContext(ctx).Table(table).
		Where("object_id = ? AND meta_key = ?", objectID, key).
		Order("id").
		Pluck("meta_value", &values).Error; err != nil {
		return nil, fmt.Errorf("get %s meta %s: %w", kind, key, err)
	}
	return values, nil
}

// UpdateMeta overwrites every row for key, adding one when there is none.
func (s *Store) UpdateMeta(ctx context.Context, kind content.ObjectKind, objectID int64, key, value string) error {
	table, err := metaTable(kind)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Table(table).
		Where("object_id = ? AND meta_key = ?", objectID, key).
		Update("meta_value", value)
	if res.Error != nil {
		return fmt.Errorf("update %s meta %s: %w", kind, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.AddMeta(ctx, kind, objectID, key, value)
	}
	return nil
}

func (s *Store) DeleteMeta(ctx context.Context, kind content.ObjectKind, objectID int64, key, value string) error {
	table, err := metaTable(kind)
	if err != nil {
		return err
	}
	q := s.db.WithContext(ctx).Table(table).Where("object_id = ? AND meta_key = ?", objectID, key)
	if value != "" {
		q = q.Where("meta_value = ?", value)
	}
	if err := q.Delete(&models.Meta{}).Error; err != nil {
		return fmt.Errorf("delete %s meta %s: %w", kind, key, err)
	}
	return nil
}
