package onboarding

import "go.uber.org/zap"

type ReduxSource struct {
	OptionName string `mapstructure:"option_name" json:"option_name"`
	FileURL    string `mapstructure:"file_url" json:"file_url"`
}

type ReduxItem struct {
	OptionName string `mapstructure:"option_name" json:"option_name"`
	FilePath   string `mapstructure:"file_path" json:"file_path"`
}

// Demo is one predefined demo import. Remote URLs win over local paths.
type Demo struct {
	Name            string        `mapstructure:"import_file_name" json:"import_file_name"`
	Categories      []string      `mapstructure:"categories" json:"categories,omitempty"`
	ContentURL      string        `mapstructure:"import_file_url" json:"import_file_url,omitempty"`
	LocalContent    string        `mapstructure:"local_import_file" json:"local_import_file,omitempty"`
	WidgetsURL      string        `mapstructure:"import_widget_file_url" json:"import_widget_file_url,omitempty"`
	LocalWidgets    string        `mapstructure:"local_import_widget_file" json:"local_import_widget_file,omitempty"`
	CustomizerURL   string        `mapstructure:"import_customizer_file_url" json:"import_customizer_file_url,omitempty"`
	LocalCustomizer string        `mapstructure:"local_import_customizer_file" json:"local_import_customizer_file,omitempty"`
	SliderURL       string        `mapstructure:"import_rev_slider_file_url" json:"import_rev_slider_file_url,omitempty"`
	LocalSlider     string        `mapstructure:"local_import_rev_slider_file" json:"local_import_rev_slider_file,omitempty"`
	Redux           []ReduxSource `mapstructure:"import_redux" json:"import_redux,omitempty"`
	LocalRedux      []ReduxItem   `mapstructure:"local_import_redux" json:"local_import_redux,omitempty"`
	PreviewImageURL string        `mapstructure:"import_preview_image_url" json:"import_preview_image_url,omitempty"`
	PreviewURL      string        `mapstructure:"preview_url" json:"preview_url,omitempty"`
	ImportNotice    string        `mapstructure:"import_notice" json:"import_notice,omitempty"`
}

type DemoRegistry struct {
	demos []Demo
}

// NewDemoRegistry keeps the demos that have a name.
func NewDemoRegistry(demos []Demo, logger *zap.Logger) *DemoRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	valid := make([]Demo, 0, len(demos))
	for i, d := range demos {
		if d.Name == "" {
			logger.Warn("demo import has no import_file_name, dropping it", zap.Int("index", i))
			continue
		}
		valid = append(valid, d)
	}
	return &DemoRegistry{demos: valid}
}

func (r *DemoRegistry) Get(index int) (Demo, bool) {
	if index < 0 || index >= len(r.demos) {
		return Demo{}, false
	}
	return r.demos[index], true
}

func (r *DemoRegistry) List() []Demo {
	out := make([]Demo, len(r.demos))
	copy(out, r.demos)
	return out
}

func (r *DemoRegistry) Len() int { return len(r.demos) }
