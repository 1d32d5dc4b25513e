package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/application/wxr"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

// Recorder receives one observation per entity outcome.
type Recorder interface {
	Observe(entity, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, string) {}

// AttachmentLoader downloads the media behind an attachment post.
type AttachmentLoader interface {
	Sideload(ctx context.Context, post content.Post, baseURL string) (Attachment, error)
}

type Config struct {
	MapTTL        time.Duration
	CurrentUserID int64
	PostTypes     []string
	Taxonomies    []string
	WooCommerce   bool
	Attachments   AttachmentLoader
	Recorder      Recorder
}

type Summary struct {
	Created          int `json:"created"`
	Existing         int `json:"existing"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
	Deferred         int `json:"deferred"`
	CommentsCreated  int `json:"comments_created"`
	CommentsExisting int `json:"comments_existing"`
}

type Result struct {
	Users   Summary
	Terms   Summary
	Posts   Summary
	Remap   RemapSummary
	Mapping Snapshot
}

type Engine struct {
	store    content.Store
	scratch  content.ScratchStore
	index    *ExistenceIndex
	parser   wxr.Parser
	registry *Registry
	logger   *zap.Logger
	cfg      Config
}

func NewEngine(store content.Store, scratch content.ScratchStore, existence content.ExistenceSource, parser wxr.Parser, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MapTTL <= 0 {
		cfg.MapTTL = 24 * time.Hour
	}
	if cfg.CurrentUserID <= 0 {
		cfg.CurrentUserID = 1
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		store:    store,
		scratch:  scratch,
		index:    NewExistenceIndex(existence),
		parser:   parser,
		registry: NewRegistry(cfg.PostTypes, cfg.Taxonomies, cfg.WooCommerce),
		logger:   logger,
		cfg:      cfg,
	}
}

func (e *Engine) Parse(ctx context.Context, path string) (*content.Document, error) {
	return e.parser.Parse(ctx, path)
}

// Import runs a complete import of one export file. Parse failures return
// before anything is written.
func (e *Engine) Import(ctx context.Context, path string) (Result, error) {
	doc, err := e.parser.Parse(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return e.ImportDocument(ctx, doc)
}

func (e *Engine) ImportDocument(ctx context.Context, doc *content.Document) (res Result, err error) {
	if err := e.Begin(ctx); err != nil {
		return Result{}, err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		err = errors.Join(err, e.End(cleanupCtx), e.Finalize(cleanupCtx))
	}()

	if res.Users, err = e.ImportUsers(ctx, doc); err != nil {
		return res, err
	}
	if res.Terms, err = e.ImportTerms(ctx, doc); err != nil {
		return res, err
	}
	if res.Posts, err = e.ImportPosts(ctx, doc, 0, 0); err != nil {
		return res, err
	}
	if res.Remap, err = e.Remap(ctx); err != nil {
		return res, err
	}

	sess, err := loadSession(ctx, e.scratch)
	if err != nil {
		return res, err
	}
	res.Mapping = sess.snapshot()

	if err := e.ClearSession(ctx); err != nil {
		return res, err
	}

	e.logger.Info("import finished",
		zap.Int("users", res.Users.Created),
		zap.Int("terms", res.Terms.Created),
		zap.Int("posts", res.Posts.Created),
		zap.Int("comments", res.Posts.CommentsCreated),
		zap.Int("unresolved", res.Remap.Unresolved),
	)
	return res, nil
}

// Begin suspends counting and cache invalidation for the bulk writes.
func (e *Engine) Begin(ctx context.Context) error {
	if err := e.store.DeferCounting(ctx, true); err != nil {
		return fmt.Errorf("defer counting: %w", err)
	}
	e.store.SuspendCacheInvalidation(true)
	return nil
}

// End restores what Begin suspended and flushes caches. Call it even after a failure.
func (e *Engine) End(ctx context.Context) error {
	e.store.SuspendCacheInvalidation(false)
	countErr := e.store.DeferCounting(ctx, false)
	flushErr := e.store.FlushCache(ctx)
	return errors.Join(countErr, flushErr)
}

// Finalize rebuilds every taxonomy hierarchy and forces a permalink rebuild.
func (e *Engine) Finalize(ctx context.Context) error {
	taxonomies, err := e.store.Taxonomies(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, tax := range taxonomies {
		if err := e.store.RebuildTermHierarchy(ctx, tax); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.store.FlushRewriteRules(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ClearSession drops the translation maps and orphan sets.
func (e *Engine) ClearSession(ctx context.Context) error {
	if err := e.scratch.Delete(ctx, sessionKeys()...); err != nil {
		return fmt.Errorf("clear import session: %w", err)
	}
	e.index.Reset()
	return nil
}

// TermIDs returns source term id to destination term id for the current session.
func (e *Engine) TermIDs(ctx context.Context) (map[int64]int64, error) {
	sess, err := loadSession(ctx, e.scratch)
	if err != nil {
		return nil, err
	}
	return sess.Terms.SourceIDs(), nil
}

// withSession loads the session, runs fn, and saves whatever fn recorded,
// including after a failure part-way through.
func (e *Engine) withSession(ctx context.Context, fn func(*Session) error) error {
	if err := e.index.Warm(ctx); err != nil {
		return err
	}
	sess, err := loadSession(ctx, e.scratch)
	if err != nil {
		return err
	}
	runErr := fn(sess)
	saveErr := saveSession(context.WithoutCancel(ctx), e.scratch, sess, e.cfg.MapTTL)
	return errors.Join(runErr, saveErr)
}

func (e *Engine) observe(entity, outcome string) {
	e.cfg.Recorder.Observe(entity, outcome)
}

func (e *Engine) sideload(ctx context.Context, p content.Post, baseURL string) (Attachment, error) {
	if e.cfg.Attachments == nil {
		return Attachment{}, ErrNoSideloader
	}
	return e.cfg.Attachments.Sideload(ctx, p, baseURL)
}
