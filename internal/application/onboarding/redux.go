package onboarding

import (
	"context"
	"fmt"
	"os"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/phpvalue"
	"go.uber.org/zap"
)

// ReduxImporter stores each exported Redux panel under its option name.
type ReduxImporter struct {
	options content.OptionStore
	logger  *zap.Logger
}

func NewReduxImporter(options content.OptionStore, logger *zap.Logger) *ReduxImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReduxImporter{options: options, logger: logger}
}

// Import returns how many panels were stored. Items without a file are skipped.
func (r *ReduxImporter) Import(ctx context.Context, items []ReduxItem) (int, error) {
	stored := 0
	for _, item := range items {
		if item.FilePath == "" || item.OptionName == "" {
			r.logger.Warn("redux item skipped", zap.String("option", item.OptionName))
			continue
		}
		raw, err := os.ReadFile(item.FilePath)
		if err != nil {
			return stored, fmt.Errorf("%w: %v", ErrReduxFile, err)
		}
		decoded, err := phpvalue.Decode(raw)
		if err != nil {
			return stored, fmt.Errorf("%w: %s: %v", ErrReduxFile, item.FilePath, err)
		}
		encoded, err := phpvalue.Marshal(decoded)
		if err != nil {
			return stored, fmt.Errorf("%w: %v", ErrStoreState, err)
		}
		if err := r.options.SetOption(ctx, item.OptionName, encoded); err != nil {
			return stored, fmt.Errorf("%w: %v", ErrStoreState, err)
		}
		stored++
	}
	return stored, nil
}
