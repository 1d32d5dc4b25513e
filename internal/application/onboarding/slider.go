package onboarding

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/phpvalue"
	"go.uber.org/zap"
)

const importedSlidersOption = "merlin_imported_sliders"

// SliderImporter unpacks slider archives under <uploads>/sliders.
type SliderImporter struct {
	dir     string
	options content.OptionStore
	logger  *zap.Logger
}

func NewSliderImporter(uploadsDir string, options content.OptionStore, logger *zap.Logger) *SliderImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SliderImporter{dir: filepath.Join(uploadsDir, "sliders"), options: options, logger: logger}
}

// Import extracts the archive and records its name. It returns the name.
func (s *SliderImporter) Import(ctx context.Context, archivePath string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	dest := filepath.Join(s.dir, name)

	z := archiver.NewZip()
	z.OverwriteExisting = true
	z.MkdirAll = true
	if err := z.Unarchive(archivePath, dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSliderArchive, err)
	}

	names, err := s.Imported(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if n == name {
			return name, nil
		}
	}
	list := make([]any, 0, len(names)+1)
	for _, n := range names {
		list = append(list, n)
	}
	list = append(list, name)
	encoded, err := phpvalue.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	if err := s.options.SetOption(ctx, importedSlidersOption, encoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	s.logger.Info("slider imported", zap.String("name", name), zap.String("dir", dest))
	return name, nil
}

// Imported lists the slider names imported so far.
func (s *SliderImporter) Imported(ctx context.Context) ([]string, error) {
	raw, ok, err := s.options.GetOption(ctx, importedSlidersOption)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	decoded, err := phpvalue.DecodeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	out := make([]string, 0, len(decoded))
	for i := 0; i < len(decoded); i++ {
		if v, ok := decoded[fmt.Sprint(i)]; ok {
			out = append(out, fmt.Sprint(v))
		}
	}
	return out, nil
}
