package onboarding

import (
	"context"
	"fmt"

	"github.com/mohammadpnp/theme-setup/internal/application/customizer"
	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/domain/widget"
	"go.uber.org/zap"
)

const (
	DefaultAjaxURL       = "/wp-admin/admin-ajax.php"
	DefaultPostsPerChunk = 25
	contentAction        = "merlin_content"
	contentNonceAction   = "merlin_nonce"
)

type NonceCreator interface {
	Create(action string) string
}

// ContentEngine is the part of the import engine the content steps drive.
type ContentEngine interface {
	Parse(ctx context.Context, path string) (*content.Document, error)
	Begin(ctx context.Context) error
	End(ctx context.Context) error
	Finalize(ctx context.Context) error
	ImportUsers(ctx context.Context, doc *content.Document) (importer.Summary, error)
	ImportTerms(ctx context.Context, doc *content.Document) (importer.Summary, error)
	ImportPosts(ctx context.Context, doc *content.Document, offset, limit int) (importer.Summary, error)
	Remap(ctx context.Context) (importer.RemapSummary, error)
	TermIDs(ctx context.Context) (map[int64]int64, error)
	ClearSession(ctx context.Context) error
}

type WidgetImporter interface {
	ImportFile(ctx context.Context, path string, termIDs map[int64]int64) (widget.Report, error)
}

type CustomizerImporter interface {
	ImportFile(ctx context.Context, path string, termIDs map[int64]int64) (customizer.Result, error)
}

// StepRecorder counts step responses per kind.
type StepRecorder interface {
	RecordStep(kind, result string)
}

type nopStepRecorder struct{}

func (nopStepRecorder) RecordStep(string, string) {}

type Config struct {
	// AjaxURL is where redirects point the client back to.
	AjaxURL       string
	PostsPerChunk int
	// AfterImport enables the after_import kind.
	AfterImport bool
	Plugins     PluginsConfig
	Recorder    StepRecorder
}

// Deps are the collaborators of the wizard. A nil importer disables its kind.
type Deps struct {
	Demos      *DemoRegistry
	Files      *FileResolver
	Engine     ContentEngine
	Widgets    WidgetImporter
	Customizer CustomizerImporter
	Sliders    *SliderImporter
	Redux      *ReduxImporter
	Pages      *PageSetup
	State      *SetupState
	License    *LicenseActivator
	Plugins    PluginRegistry
	Nonces     NonceCreator
}

type stepInput struct {
	kind      Kind
	files     ImportFiles
	demoIndex int
	cursor    string
}

type stepOutcome struct {
	done     bool
	cursor   string
	imported any
	logs     string
}

type stepHandler func(ctx context.Context, in stepInput) (stepOutcome, error)

// Wizard serves the setup wizard's AJAX actions.
type Wizard struct {
	cfg      Config
	deps     Deps
	handlers map[Kind]stepHandler
	logger   *zap.Logger
}

func NewWizard(cfg Config, deps Deps, logger *zap.Logger) *Wizard {
	if cfg.AjaxURL == "" {
		cfg.AjaxURL = DefaultAjaxURL
	}
	if cfg.PostsPerChunk <= 0 {
		cfg.PostsPerChunk = DefaultPostsPerChunk
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopStepRecorder{}
	}
	if deps.Demos == nil {
		deps.Demos = NewDemoRegistry(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Wizard{cfg: cfg, deps: deps, logger: logger}
	w.handlers = map[Kind]stepHandler{}
	if deps.Engine != nil {
		w.handlers[KindContent] = w.importContent
	}
	if deps.Widgets != nil {
		w.handlers[KindWidgets] = w.importWidgets
	}
	if deps.Customizer != nil {
		w.handlers[KindOptions] = w.importOptions
	}
	if deps.Sliders != nil {
		w.handlers[KindSliders] = w.importSliders
	}
	if deps.Redux != nil {
		w.handlers[KindRedux] = w.importRedux
	}
	if cfg.AfterImport && deps.Pages != nil {
		w.handlers[KindAfterImport] = w.afterImport
	}
	return w
}

// provides reports whether the resolved files support kind.
func (w *Wizard) provides(kind Kind, files ImportFiles) bool {
	if _, ok := w.handlers[kind]; !ok {
		return false
	}
	switch kind {
	case KindContent:
		return files.Content != ""
	case KindWidgets:
		return files.Widgets != ""
	case KindOptions:
		return files.Options != ""
	case KindSliders:
		return files.Sliders != ""
	case KindRedux:
		return len(files.Redux) > 0
	case KindAfterImport:
		return true
	}
	return false
}

type KindInfo struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// ImportInfo lists the kinds the selected demo declares, in wizard order.
// Nothing is downloaded.
func (w *Wizard) ImportInfo(index int) ([]KindInfo, error) {
	demo, ok := w.deps.Demos.Get(index)
	if !ok {
		return nil, ErrUnknownDemo
	}
	declared := map[Kind]bool{
		KindContent:     demo.ContentURL != "" || demo.LocalContent != "",
		KindWidgets:     demo.WidgetsURL != "" || demo.LocalWidgets != "",
		KindOptions:     demo.CustomizerURL != "" || demo.LocalCustomizer != "",
		KindSliders:     demo.SliderURL != "" || demo.LocalSlider != "",
		KindRedux:       len(demo.Redux) > 0 || len(demo.LocalRedux) > 0,
		KindAfterImport: true,
	}
	var out []KindInfo
	for _, k := range Kinds() {
		if _, ok := w.handlers[k]; ok && declared[k] {
			out = append(out, KindInfo{Kind: k, Label: k.Label()})
		}
	}
	return out, nil
}

// TotalItems is the number of posts the selected demo's content holds.
func (w *Wizard) TotalItems(ctx context.Context, index int) (int, error) {
	demo, ok := w.deps.Demos.Get(index)
	if !ok {
		return 0, ErrUnknownDemo
	}
	if w.deps.Engine == nil {
		return 0, ErrNoContentFile
	}
	files, err := w.deps.Files.Resolve(ctx, demo)
	if err != nil {
		return 0, err
	}
	if files.Content == "" {
		return 0, ErrNoContentFile
	}
	doc, err := w.deps.Engine.Parse(ctx, files.Content)
	if err != nil {
		return 0, err
	}
	return doc.CountPosts(), nil
}

// ContentStep runs one round of the chunked import of one kind.
func (w *Wizard) ContentStep(ctx context.Context, req StepRequest) Response {
	resp := w.contentStep(ctx, req)
	result := "done"
	switch {
	case resp.Error != 0:
		result = "error"
	case resp.IsRedirect():
		result = "redirect"
	}
	label := "unknown"
	if kind, ok := ParseKind(req.Content); ok {
		label = string(kind)
	}
	w.cfg.Recorder.RecordStep(label, result)
	return resp
}

func (w *Wizard) contentStep(ctx context.Context, req StepRequest) Response {
	kind, kindOK := ParseKind(req.Content)
	handler, handlerOK := w.handlers[kind]
	demo, demoOK := w.deps.Demos.Get(req.SelectedIndex)
	if !kindOK || !handlerOK || !demoOK {
		w.logger.Error("content step rejected: incorrect data",
			zap.String("content", req.Content),
			zap.Int("selected_index", req.SelectedIndex),
		)
		return errorResponse(MessageInvalid)
	}

	files, err := w.deps.Files.Resolve(ctx, demo)
	if err != nil {
		w.logger.Error("import files not resolved", zap.Error(err))
		return errorResponse(MessageError)
	}
	if !w.provides(kind, files) {
		w.logger.Error("selected demo does not provide content", zap.String("content", string(kind)))
		return errorResponse(MessageInvalid)
	}

	if !req.Proceed {
		return w.redirect(kind, req.SelectedIndex, "", nil, "")
	}

	w.logger.Info("content step",
		zap.String("title", kind.Title()),
		zap.String("cursor", req.Cursor),
		zap.Int("selected_index", req.SelectedIndex),
	)
	out, err := handler(ctx, stepInput{kind: kind, files: files, demoIndex: req.SelectedIndex, cursor: req.Cursor})
	if err != nil {
		w.logger.Error("content step failed",
			zap.String("content", string(kind)),
			zap.String("cursor", req.Cursor),
			zap.Int("selected_index", req.SelectedIndex),
			zap.Error(err),
		)
		resp := errorResponse(MessageError)
		resp.Errors = err.Error()
		return resp
	}

	if !out.done {
		return w.redirect(kind, req.SelectedIndex, out.cursor, out.imported, out.logs)
	}
	return Response{
		Done:               1,
		Message:            MessageSuccess,
		Logs:               out.logs,
		NumOfImportedPosts: out.imported,
	}.Sign()
}

func (w *Wizard) redirect(kind Kind, index int, cursor string, imported any, logs string) Response {
	return Response{
		URL:                w.cfg.AjaxURL,
		Action:             contentAction,
		Proceed:            "true",
		Content:            string(kind),
		Nonce:              w.deps.Nonces.Create(contentNonceAction),
		SelectedIndex:      intPtr(index),
		Cursor:             cursor,
		Message:            MessageInstalling,
		Logs:               logs,
		NumOfImportedPosts: imported,
	}.Sign()
}

// ImportFinished forgets the downloaded batch and the import session.
func (w *Wizard) ImportFinished(ctx context.Context) error {
	var errs []error
	if w.deps.Files != nil {
		if err := w.deps.Files.Forget(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if w.deps.Engine != nil {
		if err := w.deps.Engine.ClearSession(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("import finished cleanup: %w", errs[0])
	}
	return nil
}

func (w *Wizard) termIDs(ctx context.Context) map[int64]int64 {
	if w.deps.Engine == nil {
		return nil
	}
	ids, err := w.deps.Engine.TermIDs(ctx)
	if err != nil {
		w.logger.Warn("term mapping unavailable", zap.Error(err))
		return nil
	}
	return ids
}

func (w *Wizard) Demos() []Demo {
	return w.deps.Demos.List()
}

// Ready marks the wizard completed.
func (w *Wizard) Ready(ctx context.Context) error {
	if w.deps.State == nil {
		return nil
	}
	return w.deps.State.Ready(ctx)
}

func (w *Wizard) Ignore(ctx context.Context) error {
	if w.deps.State == nil {
		return nil
	}
	return w.deps.State.Ignore(ctx)
}

func (w *Wizard) Status(ctx context.Context) (Status, error) {
	if w.deps.State == nil {
		return Status{}, nil
	}
	return w.deps.State.Status(ctx)
}

// ActivateLicense answers the license step. A refused key is a result with
// Success false.
func (w *Wizard) ActivateLicense(ctx context.Context, key string) (LicenseResult, error) {
	if w.deps.License == nil {
		return LicenseResult{Success: true}, nil
	}
	return w.deps.License.Activate(ctx, key)
}
