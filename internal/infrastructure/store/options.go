package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOption reads through the in-process option cache.
func (s *Store) GetOption(ctx context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	if v, ok := s.options[name]; ok {
		s.mu.Unlock()
		return v, true, nil
	}
	s.mu.Unlock()

	var row models.Option
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get option %s: %w", name, err)
	}

	s.mu.Lock()
	s.options[name] = row.Value
	s.mu.Unlock()
	return row.Value, true, nil
}

func (s *Store) SetOption(ctx context.Context, name, value string) error {
	row := models.Option{Name: name, Value: value, Autoload: "yes"}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	s.touchOption(name, value, true)
	return nil
}

func (s *Store) DeleteOption(ctx context.Context, name string) error {
	if err := s.db.WithContext(ctx).Where("name = ?", name).Delete(&models.Option{}).Error; err != nil {
		return fmt.Errorf("delete option %s: %w", name, err)
	}
	s.touchOption(name, "", false)
	return nil
}

// touchOption invalidates the cached entry, or while invalidation is
// suspended writes the new value through so reads stay consistent.
func (s *Store) touchOption(name, value string, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cacheSuspended {
		delete(s.options, name)
		return
	}
	if present {
		s.options[name] = value
	} else {
		delete(s.options, name)
	}
}
