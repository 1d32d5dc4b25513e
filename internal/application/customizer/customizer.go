package customizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"regexp"
	"sort"

	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/phpvalue"
	"go.uber.org/zap"
)

const (
	navMenuLocations  = "nav_menu_locations"
	customHeaderMeta  = "_wp_attachment_is_custom_header"
	attachedFileMeta  = "_wp_attached_file"
	imageDataSuffix   = "_data"
	attachmentType    = "attachment"
	attachmentInherit = "inherit"
)

var imageValue = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)`)

// ImageFetcher downloads a remote image into the uploads store.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL, date string) (importer.Attachment, error)
}

type Store interface {
	content.PostStore
	content.MetaStore
	content.OptionStore
}

type Config struct {
	// Stylesheet names the active theme; mods live in theme_mods_<stylesheet>.
	Stylesheet string
}

// ImageData replaces a <mod>_data entry once its image is sideloaded.
type ImageData struct {
	AttachmentID int64
	URL          string
	ThumbnailURL string
	Width        int64
	Height       int64
}

func (d ImageData) value() map[string]any {
	return map[string]any{
		"attachment_id": d.AttachmentID,
		"url":           d.URL,
		"thumbnail_url": d.ThumbnailURL,
		"width":         d.Width,
		"height":        d.Height,
	}
}

type Result struct {
	Mods          int `json:"mods"`
	Images        int `json:"images"`
	ImageFailures int `json:"image_failures"`
	Menus         int `json:"menus"`
}

type Importer struct {
	store  Store
	images ImageFetcher
	files  content.FileStore
	cfg    Config
	logger *zap.Logger
}

// NewImporter builds the customizer importer. images and files may be nil,
// in which case image mods are stored as they are.
func NewImporter(store Store, images ImageFetcher, files content.FileStore, cfg Config, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, images: images, files: files, cfg: cfg, logger: logger}
}

func OptionName(stylesheet string) string {
	return "theme_mods_" + stylesheet
}

// Decode reads the mods map from a JSON or PHP-serialized export.
func Decode(raw []byte) (map[string]any, error) {
	decoded, err := phpvalue.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is not a map", ErrCorruptedData)
	}
	mods, ok := top["mods"].(map[string]any)
	if !ok || len(mods) == 0 {
		return nil, ErrNoMods
	}
	return mods, nil
}

// ImportFile imports the export at path. A missing file imports nothing.
func (i *Importer) ImportFile(ctx context.Context, filePath string, termIDs map[int64]int64) (Result, error) {
	raw, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		i.logger.Warn("customizer file not found", zap.String("path", filePath))
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read customizer file: %w", err)
	}
	mods, err := Decode(raw)
	if errors.Is(err, ErrNoMods) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return i.Import(ctx, mods, termIDs)
}

// Import sideloads image mods, remaps menu locations through termIDs and
// merges the result into the theme's mods option.
func (i *Importer) Import(ctx context.Context, mods map[string]any, termIDs map[int64]int64) (Result, error) {
	var res Result

	keys := make([]string, 0, len(mods))
	for k := range mods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]any, len(mods))
	for k, v := range mods {
		values[k] = v
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		value := values[key]

		if s, ok := value.(string); ok && imageValue.MatchString(s) && i.images != nil {
			data, err := i.sideload(ctx, s)
			if err != nil {
				res.ImageFailures++
				i.logger.Warn("customizer image not imported", zap.String("mod", key), zap.String("url", s), zap.Error(err))
			} else {
				res.Images++
				value = data.URL
				dataKey := key + imageDataSuffix
				if _, ok := values[dataKey]; ok {
					values[dataKey] = data.value()
					if err := i.store.AddMeta(ctx, content.ObjectPost, data.AttachmentID, customHeaderMeta, i.cfg.Stylesheet); err != nil {
						i.logger.Warn("custom header flag not stored", zap.Int64("attachment_id", data.AttachmentID), zap.Error(err))
					}
				}
			}
		}

		if key == navMenuLocations {
			var n int
			value, n = remapLocations(value, termIDs)
			res.Menus += n
		}
		values[key] = value
	}

	stored, err := i.merge(ctx, values)
	if err != nil {
		return res, err
	}
	res.Mods = stored

	i.logger.Info("customizer imported",
		zap.Int("mods", res.Mods),
		zap.Int("images", res.Images),
		zap.Int("image_failures", res.ImageFailures),
	)
	return res, nil
}

// merge writes values over whatever mods the theme already has and
// returns how many mods were written.
func (i *Importer) merge(ctx context.Context, values map[string]any) (int, error) {
	name := OptionName(i.cfg.Stylesheet)
	current := map[string]any{}

	raw, ok, err := i.store.GetOption(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreOptions, err)
	}
	if ok && raw != "" {
		decoded, err := phpvalue.DecodeArray(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: decode %s: %v", ErrStoreOptions, name, err)
		}
		current = decoded
	}
	for k, v := range values {
		current[k] = v
	}

	encoded, err := phpvalue.Marshal(current)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreOptions, err)
	}
	if err := i.store.SetOption(ctx, name, encoded); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreOptions, err)
	}
	return len(values), nil
}

func (i *Importer) sideload(ctx context.Context, rawURL string) (ImageData, error) {
	att, err := i.images.Fetch(ctx, rawURL, "")
	if err != nil {
		return ImageData{}, err
	}
	id, err := i.store.CreatePost(ctx, content.NewPost{
		Type:     attachmentType,
		Title:    path.Base(att.RelPath),
		Status:   attachmentInherit,
		GUID:     att.URL,
		MimeType: att.MimeType,
	})
	if err != nil {
		return ImageData{}, fmt.Errorf("register attachment: %w", err)
	}
	if err := i.store.AddMeta(ctx, content.ObjectPost, id, attachedFileMeta, att.RelPath); err != nil {
		return ImageData{}, fmt.Errorf("register attachment: %w", err)
	}

	data := ImageData{AttachmentID: id, URL: att.URL, ThumbnailURL: att.URL}
	data.Width, data.Height = i.dimensions(ctx, att.RelPath)
	return data, nil
}

func (i *Importer) dimensions(ctx context.Context, rel string) (int64, int64) {
	if i.files == nil {
		return 0, 0
	}
	r, err := i.files.Open(ctx, rel)
	if err != nil {
		return 0, 0
	}
	defer r.Close()
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0
	}
	return int64(cfg.Width), int64(cfg.Height)
}

// remapLocations translates location → menu term ids. Unknown ids stay.
func remapLocations(value any, termIDs map[int64]int64) (any, int) {
	locations, ok := value.(map[string]any)
	if !ok {
		return value, 0
	}
	out := make(map[string]any, len(locations))
	n := 0
	for loc, raw := range locations {
		out[loc] = raw
		source, ok := phpvalue.Int(raw)
		if !ok {
			continue
		}
		if dest, ok := termIDs[source]; ok {
			out[loc] = dest
			n++
		}
	}
	return out, n
}
