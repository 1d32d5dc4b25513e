package onboarding_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/application/onboarding"
	"github.com/mohammadpnp/theme-setup/internal/application/wxr"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/file"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/nonce"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/scratch"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/store"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const fullFile = "../wxr/testdata/full.xml"

type noDownloads struct{}

func (noDownloads) Fetch(context.Context, string, string) (string, error) {
	return "", errors.New("offline")
}

type wizardHarness struct {
	wizard  *onboarding.Wizard
	store   *store.Store
	scratch *scratch.MemoryStore
}

func newWizard(t *testing.T, demos []onboarding.Demo, chunk int) wizardHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := storetest.New(t)
	sc := scratch.NewMemoryStore(testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	parser := wxr.NewParser(wxr.Capabilities{Strategy: wxr.StrategyAuto}, logger)
	engine := importer.NewEngine(st, sc, st, parser, importer.Config{}, logger)

	w := onboarding.NewWizard(onboarding.Config{PostsPerChunk: chunk, AfterImport: true}, onboarding.Deps{
		Demos:  onboarding.NewDemoRegistry(demos, logger),
		Files:  onboarding.NewFileResolver(sc, noDownloads{}, file.NewLocalSource("."), 0, logger),
		Engine: engine,
		Pages: onboarding.NewPageSetup(st, st, onboarding.PagesConfig{
			HomePageTitle: "Parent Page",
			BlogPageTitle: "Late Page",
		}, logger),
		Redux:  onboarding.NewReduxImporter(st, logger),
		State:  onboarding.NewSetupState(st, "flavor"),
		Nonces: nonce.NewSigner("secret"),
	}, logger)
	return wizardHarness{wizard: w, store: st, scratch: sc}
}

// follow turns a redirect into the request the client posts next.
func follow(t *testing.T, resp onboarding.Response) onboarding.StepRequest {
	t.Helper()
	require.True(t, resp.IsRedirect(), "expected a redirect, got %+v", resp)
	require.NotNil(t, resp.SelectedIndex)
	return onboarding.StepRequest{
		Content:       resp.Content,
		Proceed:       resp.Proceed == "true",
		SelectedIndex: *resp.SelectedIndex,
		Cursor:        resp.Cursor,
	}
}

func TestContentImportRunsInChunks(t *testing.T) {
	t.Parallel()
	h := newWizard(t, []onboarding.Demo{{Name: "Main", LocalContent: fullFile}}, 3)
	ctx := context.Background()

	resp := h.wizard.ContentStep(ctx, onboarding.StepRequest{Content: "content"})
	assert.Equal(t, onboarding.MessageInstalling, resp.Message)
	assert.Equal(t, "merlin_content", resp.Action)
	assert.NotEmpty(t, resp.Nonce)
	assert.NotEmpty(t, resp.Hash)

	var cursors []string
	var progress []any
	for rounds := 0; resp.IsRedirect(); rounds++ {
		require.Less(t, rounds, 20)
		resp = h.wizard.ContentStep(ctx, follow(t, resp))
		require.Zero(t, resp.Error, resp.Errors)
		cursors = append(cursors, resp.Cursor)
		progress = append(progress, resp.NumOfImportedPosts)
	}

	assert.Equal(t, []string{"terms", "posts:0", "posts:3", "posts:6", "finish", ""}, cursors)
	assert.Equal(t, []any{0, 0, 3, 6, 7, onboarding.AllImported}, progress)
	assert.Equal(t, 1, resp.Done)
	assert.Equal(t, onboarding.MessageSuccess, resp.Message)

	var pages int64
	require.NoError(t, h.store.DB().Model(&models.Post{}).Where("type = ?", "page").Count(&pages).Error)
	assert.Equal(t, int64(3), pages)

	front, ok, err := h.store.GetOption(ctx, "page_on_front")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, front)
	show, _, err := h.store.GetOption(ctx, "show_on_front")
	require.NoError(t, err)
	assert.Equal(t, "page", show)

	total, err := h.wizard.TotalItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	require.NoError(t, h.wizard.ImportFinished(ctx))
	assert.Zero(t, h.scratch.Len())
}

func TestContentStepRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	h := newWizard(t, []onboarding.Demo{{Name: "Main", LocalContent: fullFile}}, 0)
	ctx := context.Background()

	for _, req := range []onboarding.StepRequest{
		{Content: "bogus"},
		{Content: "content", SelectedIndex: 4},
		{Content: "widgets"},
		{Content: "redux"},
	} {
		resp := h.wizard.ContentStep(ctx, req)
		assert.Equal(t, 1, resp.Error, "%+v", req)
		assert.Equal(t, onboarding.MessageInvalid, resp.Message)
	}

	resp := h.wizard.ContentStep(ctx, onboarding.StepRequest{Content: "content", Proceed: true, Cursor: "posts:x"})
	assert.Equal(t, 1, resp.Error)
	assert.Equal(t, onboarding.MessageError, resp.Message)
	assert.Contains(t, resp.Errors, "invalid content cursor")
}

func TestContentStepReportsBrokenFile(t *testing.T) {
	t.Parallel()
	h := newWizard(t, []onboarding.Demo{{Name: "Broken", LocalContent: "../wxr/testdata/truncated.xml"}}, 0)

	resp := h.wizard.ContentStep(context.Background(), onboarding.StepRequest{Content: "content", Proceed: true})
	assert.Equal(t, 1, resp.Error)
	assert.Equal(t, onboarding.MessageError, resp.Message)
}

type brokenEngine struct {
	*importer.Engine
}

func (brokenEngine) ImportUsers(context.Context, *content.Document) (importer.Summary, error) {
	return importer.Summary{}, errors.New("users table locked")
}

func (brokenEngine) End(context.Context) error {
	return errors.New("cache flush failed")
}

func TestContentStepLogsCleanupFailure(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	st := storetest.New(t)
	sc := scratch.NewMemoryStore(testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	engine := importer.NewEngine(st, sc, st, wxr.NewParser(wxr.Capabilities{}, logger), importer.Config{}, logger)

	w := onboarding.NewWizard(onboarding.Config{}, onboarding.Deps{
		Demos:  onboarding.NewDemoRegistry([]onboarding.Demo{{Name: "Main", LocalContent: fullFile}}, logger),
		Files:  onboarding.NewFileResolver(sc, noDownloads{}, file.NewLocalSource("."), 0, logger),
		Engine: brokenEngine{Engine: engine},
		Nonces: nonce.NewSigner("secret"),
	}, logger)

	resp := w.ContentStep(context.Background(), onboarding.StepRequest{Content: "content", Proceed: true})
	assert.Equal(t, 1, resp.Error)
	assert.Contains(t, resp.Errors, "users table locked")

	restored := logs.FilterMessage("import hooks not restored").All()
	require.Len(t, restored, 1)
	assert.Equal(t, "cache flush failed", restored[0].ContextMap()["error"])
}

func TestImportInfo(t *testing.T) {
	t.Parallel()
	h := newWizard(t, []onboarding.Demo{
		{Name: "Main", LocalContent: fullFile, WidgetsURL: "http://demo.example/widgets.wie"},
		{Name: "Bare"},
	}, 0)

	info, err := h.wizard.ImportInfo(0)
	require.NoError(t, err)
	// Widgets have no importer in this harness, so only content and after_import remain.
	assert.Equal(t, []onboarding.KindInfo{
		{Kind: onboarding.KindContent, Label: "Content"},
		{Kind: onboarding.KindAfterImport, Label: "After import"},
	}, info)

	info, err = h.wizard.ImportInfo(1)
	require.NoError(t, err)
	assert.Equal(t, []onboarding.KindInfo{{Kind: onboarding.KindAfterImport, Label: "After import"}}, info)

	_, err = h.wizard.ImportInfo(2)
	assert.ErrorIs(t, err, onboarding.ErrUnknownDemo)
}

func TestReduxStep(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "redux.json")
	writeFile(t, path, `{"opt_color": "#123", "opt_size": 14}`)

	h := newWizard(t, []onboarding.Demo{{
		Name:       "Redux",
		LocalRedux: []onboarding.ReduxItem{{OptionName: "flavor_options", FilePath: path}},
	}}, 0)
	ctx := context.Background()

	resp := h.wizard.ContentStep(ctx, onboarding.StepRequest{Content: "redux"})
	resp = h.wizard.ContentStep(ctx, follow(t, resp))
	assert.Equal(t, 1, resp.Done)
	assert.Equal(t, "1 redux option sets imported", resp.Logs)

	raw, ok, err := h.store.GetOption(ctx, "flavor_options")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `s:9:"opt_color";s:4:"#123";`)
}

func TestSetupState(t *testing.T) {
	t.Parallel()
	h := newWizard(t, nil, 0)
	ctx := context.Background()

	st, err := h.wizard.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Completed)

	require.NoError(t, h.wizard.Ignore(ctx))
	st, err = h.wizard.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Ignored)

	require.NoError(t, h.wizard.Ready(ctx))
	st, err = h.wizard.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Completed)
	assert.NotZero(t, st.CompletedAt)
}
