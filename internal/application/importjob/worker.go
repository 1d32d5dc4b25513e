package importjob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/application/wxr"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	domain "github.com/mohammadpnp/theme-setup/internal/domain/importjob"
	"go.uber.org/zap"
)

// Engine is the part of the import engine a job drives.
type Engine interface {
	Parse(ctx context.Context, path string) (*content.Document, error)
	Begin(ctx context.Context) error
	End(ctx context.Context) error
	Finalize(ctx context.Context) error
	ImportUsers(ctx context.Context, doc *content.Document) (importer.Summary, error)
	ImportTerms(ctx context.Context, doc *content.Document) (importer.Summary, error)
	ImportPosts(ctx context.Context, doc *content.Document, offset, limit int) (importer.Summary, error)
	Remap(ctx context.Context) (importer.RemapSummary, error)
	ClearSession(ctx context.Context) error
}

type SourceResolver interface {
	Resolve(sourcePath string) string
}

type importWorkerJobRepo interface {
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error)
	Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error
	UpdateProgress(ctx context.Context, jobID string, progress domain.ImportProgress) error
	Complete(ctx context.Context, jobID string, summary domain.ImportSummary) error
	Requeue(ctx context.Context, jobID string, reason string) error
	Fail(ctx context.Context, jobID string, reason string) error
}

// JobRecorder counts jobs reaching a terminal or requeued state.
type JobRecorder interface {
	RecordJob(status string)
}

type nopJobRecorder struct{}

func (nopJobRecorder) RecordJob(string) {}

type WorkerConfig struct {
	Workers       int
	ChunkSize     int
	PollInterval  time.Duration
	LeaseDuration time.Duration
	Recorder      JobRecorder
}

// Worker runs queued imports. The engine keeps one session per site, so jobs
// are processed one at a time regardless of Workers; extra workers only
// shorten the claim latency.
type Worker struct {
	repo   importWorkerJobRepo
	source SourceResolver
	engine Engine
	cfg    WorkerConfig
	logger *zap.Logger

	run  sync.Mutex
	once sync.Once
}

func NewWorker(repo importWorkerJobRepo, source SourceResolver, engine Engine, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 25
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopJobRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		repo:   repo,
		source: source,
		engine: engine,
		cfg:    cfg,
		logger: logger,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.once.Do(func() {
		for i := 0; i < w.cfg.Workers; i++ {
			go w.workerLoop(ctx)
		}
	})
}

func (w *Worker) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.repo.ClaimNext(ctx, w.cfg.LeaseDuration)
		if err != nil {
			w.logger.Error("claim next import job failed", zap.Error(err))
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if job == nil {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if err := w.ProcessJob(ctx, *job); err != nil {
			w.logger.Error("process import job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// ProcessJob imports the job's file in the same phases the wizard uses and
// records progress after each of them.
func (w *Worker) ProcessJob(ctx context.Context, job domain.ImportJob) error {
	w.run.Lock()
	defer w.run.Unlock()

	log := w.logger.With(zap.String("job_id", job.ID), zap.String("source", job.SourcePath))
	log.Info("import job started", zap.Int("attempt", job.Attempts))

	doc, err := w.engine.Parse(ctx, w.source.Resolve(job.SourcePath))
	if err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("parse import source: %w", err))
	}

	// Retries resume the failed attempt's session so its orphan sets still
	// reach Remap.
	if job.Attempts <= 1 {
		if err := w.engine.ClearSession(ctx); err != nil {
			return w.onProcessingError(ctx, job, err)
		}
	}
	if err := w.engine.Begin(ctx); err != nil {
		return w.onProcessingError(ctx, job, err)
	}

	summary, err := w.importDocument(ctx, job, doc)
	endErr := w.engine.End(ctx)
	if err == nil {
		err = endErr
	}
	if err == nil {
		err = w.engine.Finalize(ctx)
	}
	if err != nil {
		return w.onProcessingError(ctx, job, err)
	}

	if err := w.repo.Complete(ctx, job.ID, summary); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("complete job: %w", err))
	}
	w.cfg.Recorder.RecordJob(domain.StatusSucceeded)
	if err := w.engine.ClearSession(ctx); err != nil {
		log.Warn("import session not cleared", zap.Error(err))
	}

	log.Info("import job finished",
		zap.Int64("posts_created", summary.PostsCreated),
		zap.Int64("unresolved", summary.Unresolved),
	)
	return nil
}

func (w *Worker) importDocument(ctx context.Context, job domain.ImportJob, doc *content.Document) (domain.ImportSummary, error) {
	var summary domain.ImportSummary
	summary.PostsTotal = int64(doc.CountPosts())

	add := func(s importer.Summary) {
		summary.SkippedCount += int64(s.Skipped + s.Existing)
		summary.FailedCount += int64(s.Failed)
		summary.CommentsAdded += int64(s.CommentsCreated)
	}
	checkpoint := func(stage string) error {
		if err := w.repo.UpdateProgress(ctx, job.ID, summary.ImportProgress); err != nil {
			return fmt.Errorf("update progress after %s: %w", stage, err)
		}
		if err := w.repo.Heartbeat(ctx, job.ID, w.cfg.LeaseDuration); err != nil {
			return fmt.Errorf("heartbeat after %s: %w", stage, err)
		}
		return nil
	}

	users, err := w.engine.ImportUsers(ctx, doc)
	if err != nil {
		return summary, fmt.Errorf("import users: %w", err)
	}
	summary.UsersCreated = int64(users.Created)
	add(users)
	if err := checkpoint("users"); err != nil {
		return summary, err
	}

	terms, err := w.engine.ImportTerms(ctx, doc)
	if err != nil {
		return summary, fmt.Errorf("import terms: %w", err)
	}
	summary.TermsCreated = int64(terms.Created)
	add(terms)
	if err := checkpoint("terms"); err != nil {
		return summary, err
	}

	for offset := 0; offset < doc.CountPosts(); offset += w.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		posts, err := w.engine.ImportPosts(ctx, doc, offset, w.cfg.ChunkSize)
		if err != nil {
			return summary, fmt.Errorf("import posts at %d: %w", offset, err)
		}
		summary.PostsCreated += int64(posts.Created)
		add(posts)
		if err := checkpoint("posts chunk"); err != nil {
			return summary, err
		}
	}

	remap, err := w.engine.Remap(ctx)
	if err != nil {
		return summary, fmt.Errorf("remap: %w", err)
	}
	summary.Unresolved = int64(remap.Unresolved)
	return summary, nil
}

func (w *Worker) onProcessingError(ctx context.Context, job domain.ImportJob, err error) error {
	reason := truncateReason(err.Error())
	if job.Attempts < job.MaxAttempts && !permanent(err) {
		if requeueErr := w.repo.Requeue(ctx, job.ID, reason); requeueErr != nil {
			return fmt.Errorf("%v; requeue failed: %w", err, requeueErr)
		}
		w.cfg.Recorder.RecordJob(domain.StatusQueued)
		return err
	}

	if failErr := w.repo.Fail(ctx, job.ID, reason); failErr != nil {
		return fmt.Errorf("%v; fail update failed: %w", err, failErr)
	}
	w.cfg.Recorder.RecordJob(domain.StatusFailed)
	if clearErr := w.engine.ClearSession(ctx); clearErr != nil {
		w.logger.Warn("import session not cleared", zap.String("job_id", job.ID), zap.Error(clearErr))
	}
	return err
}

// permanent reports errors a retry cannot fix: the file itself is not a
// usable WXR document.
func permanent(err error) bool {
	return errors.Is(err, wxr.ErrMalformedXML) ||
		errors.Is(err, wxr.ErrMissingVersion) ||
		errors.Is(err, wxr.ErrUnsupportedVersion) ||
		errors.Is(err, wxr.ErrNoXMLSupport)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}
