package importjob_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	app "github.com/mohammadpnp/theme-setup/internal/application/importjob"
	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/application/wxr"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	domain "github.com/mohammadpnp/theme-setup/internal/domain/importjob"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/file"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/scratch"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/store/storetest"
	"go.uber.org/zap/zaptest"
)

type fakeWorkerRepo struct {
	claimedJob      *domain.ImportJob
	claimErr        error
	progressCalls   []domain.ImportProgress
	heartbeats      int
	completeSummary *domain.ImportSummary
	requeueCalled   bool
	failCalled      bool
	failMessage     string
	// failProgressAt makes the nth UpdateProgress call fail.
	failProgressAt int
}

func (f *fakeWorkerRepo) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	job := f.claimedJob
	f.claimedJob = nil
	return job, nil
}

func (f *fakeWorkerRepo) Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error {
	f.heartbeats++
	return nil
}

func (f *fakeWorkerRepo) UpdateProgress(ctx context.Context, jobID string, progress domain.ImportProgress) error {
	f.progressCalls = append(f.progressCalls, progress)
	if f.failProgressAt > 0 && len(f.progressCalls) == f.failProgressAt {
		return errors.New("connection reset")
	}
	return nil
}

func (f *fakeWorkerRepo) Complete(ctx context.Context, jobID string, summary domain.ImportSummary) error {
	f.completeSummary = &summary
	return nil
}

func (f *fakeWorkerRepo) Requeue(ctx context.Context, jobID string, reason string) error {
	f.requeueCalled = true
	f.failMessage = reason
	return nil
}

func (f *fakeWorkerRepo) Fail(ctx context.Context, jobID string, reason string) error {
	f.failCalled = true
	f.failMessage = reason
	return nil
}

type fakeEngine struct {
	doc      *content.Document
	parseErr error
	postsErr error
	windows  [][2]int
	ended    bool
	cleared  int
}

func (f *fakeEngine) Parse(context.Context, string) (*content.Document, error) {
	return f.doc, f.parseErr
}
func (f *fakeEngine) Begin(context.Context) error    { return nil }
func (f *fakeEngine) End(context.Context) error      { f.ended = true; return nil }
func (f *fakeEngine) Finalize(context.Context) error { return nil }
func (f *fakeEngine) ImportUsers(context.Context, *content.Document) (importer.Summary, error) {
	return importer.Summary{Created: 1}, nil
}
func (f *fakeEngine) ImportTerms(context.Context, *content.Document) (importer.Summary, error) {
	return importer.Summary{Created: 2, Existing: 1}, nil
}
func (f *fakeEngine) ImportPosts(_ context.Context, _ *content.Document, offset, limit int) (importer.Summary, error) {
	f.windows = append(f.windows, [2]int{offset, limit})
	if f.postsErr != nil {
		return importer.Summary{}, f.postsErr
	}
	return importer.Summary{Created: 1, CommentsCreated: 1}, nil
}
func (f *fakeEngine) Remap(context.Context) (importer.RemapSummary, error) {
	return importer.RemapSummary{Unresolved: 1}, nil
}
func (f *fakeEngine) ClearSession(context.Context) error { f.cleared++; return nil }

type identity struct{}

func (identity) Resolve(p string) string { return p }

func docWithPosts(n int) *content.Document {
	doc := &content.Document{Version: "1.2"}
	for i := 0; i < n; i++ {
		doc.Posts = append(doc.Posts, content.Post{Title: fmt.Sprintf("post %d", i)})
	}
	return doc
}

func TestWorkerProcessJobSuccess(t *testing.T) {
	t.Parallel()

	repo := &fakeWorkerRepo{}
	engine := &fakeEngine{doc: docWithPosts(5)}
	worker := app.NewWorker(repo, identity{}, engine, app.WorkerConfig{ChunkSize: 2, LeaseDuration: 30 * time.Second}, zaptest.NewLogger(t))

	err := worker.ProcessJob(context.Background(), domain.ImportJob{ID: "job-1", SourcePath: "content.xml", Attempts: 1, MaxAttempts: 3})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(engine.windows) != 3 {
		t.Fatalf("expected 3 post chunks, got %d", len(engine.windows))
	}
	if engine.windows[2] != [2]int{4, 2} {
		t.Fatalf("unexpected last window: %v", engine.windows[2])
	}
	if !engine.ended {
		t.Fatal("expected engine end hook to run")
	}
	if engine.cleared != 2 {
		t.Fatalf("expected session cleared before and after, got %d", engine.cleared)
	}

	if repo.completeSummary == nil {
		t.Fatal("expected complete summary")
	}
	s := repo.completeSummary
	if s.UsersCreated != 1 || s.TermsCreated != 2 || s.PostsCreated != 3 {
		t.Fatalf("unexpected created counts: %+v", s)
	}
	if s.PostsTotal != 5 {
		t.Fatalf("expected posts total 5, got %d", s.PostsTotal)
	}
	if s.SkippedCount != 1 {
		t.Fatalf("expected skipped=1, got %d", s.SkippedCount)
	}
	if s.CommentsAdded != 3 {
		t.Fatalf("expected comments=3, got %d", s.CommentsAdded)
	}
	if s.Unresolved != 1 {
		t.Fatalf("expected unresolved=1, got %d", s.Unresolved)
	}
	if len(repo.progressCalls) != 5 || repo.heartbeats != 5 {
		t.Fatalf("expected 5 checkpoints, got %d progress and %d heartbeats", len(repo.progressCalls), repo.heartbeats)
	}
}

func TestWorkerProcessJobRetryableFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeWorkerRepo{}
	engine := &fakeEngine{doc: docWithPosts(1), postsErr: errors.New("store unavailable")}
	worker := app.NewWorker(repo, identity{}, engine, app.WorkerConfig{}, zaptest.NewLogger(t))

	err := worker.ProcessJob(context.Background(), domain.ImportJob{ID: "job-1", SourcePath: "content.xml", Attempts: 1, MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	if !repo.requeueCalled {
		t.Fatal("expected requeue to be called")
	}
	if repo.failCalled {
		t.Fatal("did not expect fail to be called")
	}
	if !engine.ended {
		t.Fatal("expected engine end hook to run after a failure")
	}
}

func TestWorkerProcessJobTerminalFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeWorkerRepo{}
	engine := &fakeEngine{doc: docWithPosts(1), postsErr: errors.New("store unavailable")}
	worker := app.NewWorker(repo, identity{}, engine, app.WorkerConfig{}, zaptest.NewLogger(t))

	err := worker.ProcessJob(context.Background(), domain.ImportJob{ID: "job-1", SourcePath: "content.xml", Attempts: 3, MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	if !repo.failCalled {
		t.Fatal("expected fail to be called")
	}
	if repo.requeueCalled {
		t.Fatal("did not expect requeue to be called")
	}
}

func TestWorkerFailsMalformedFileWithoutRetry(t *testing.T) {
	t.Parallel()

	repo := &fakeWorkerRepo{}
	engine := &fakeEngine{parseErr: fmt.Errorf("%w: line 3", wxr.ErrMalformedXML)}
	worker := app.NewWorker(repo, identity{}, engine, app.WorkerConfig{}, zaptest.NewLogger(t))

	err := worker.ProcessJob(context.Background(), domain.ImportJob{ID: "job-1", SourcePath: "content.xml", Attempts: 1, MaxAttempts: 3})
	if !errors.Is(err, wxr.ErrMalformedXML) {
		t.Fatalf("expected malformed xml error, got %v", err)
	}
	if !repo.failCalled || repo.requeueCalled {
		t.Fatalf("expected a terminal failure, fail=%v requeue=%v", repo.failCalled, repo.requeueCalled)
	}
}

func TestWorkerStartProcessesClaimedJob(t *testing.T) {
	t.Parallel()

	st := storetest.New(t)
	sc := scratch.NewMemoryStore(testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	logger := zaptest.NewLogger(t)
	engine := importer.NewEngine(st, sc, st, wxr.NewParser(wxr.Capabilities{}, logger), importer.Config{}, logger)

	repo := &fakeWorkerRepo{claimedJob: &domain.ImportJob{ID: "job-1", SourcePath: "full.xml", Attempts: 1, MaxAttempts: 3}}
	worker := app.NewWorker(repo, file.NewLocalSource("../wxr/testdata"), engine, app.WorkerConfig{
		ChunkSize:    2,
		PollInterval: 10 * time.Millisecond,
	}, logger)

	// ProcessJob holds the run lock, so taking it here waits for the
	// background job to finish.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := worker.ProcessJob(ctx, domain.ImportJob{ID: "missing", SourcePath: "missing.xml", Attempts: 3, MaxAttempts: 3}); err == nil {
			t.Fatal("expected missing job to fail")
		}
		if repo.completeSummary != nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	if repo.completeSummary == nil {
		t.Fatal("expected the claimed job to complete")
	}
	if repo.completeSummary.PostsCreated != 6 {
		t.Fatalf("expected 6 posts created, got %d", repo.completeSummary.PostsCreated)
	}
}

func TestWorkerRetryResumesDeferredReferences(t *testing.T) {
	t.Parallel()

	st := storetest.New(t)
	sc := scratch.NewMemoryStore(testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	logger := zaptest.NewLogger(t)
	engine := importer.NewEngine(st, sc, st, wxr.NewParser(wxr.Capabilities{}, logger), importer.Config{}, logger)

	// Checkpoints run after users, terms and each post chunk: the third one
	// fails right after the child page, which precedes its parent, is created.
	repo := &fakeWorkerRepo{failProgressAt: 3}
	worker := app.NewWorker(repo, file.NewLocalSource("../wxr/testdata"), engine, app.WorkerConfig{ChunkSize: 1}, logger)

	job := domain.ImportJob{ID: "job-1", SourcePath: "full.xml", Attempts: 1, MaxAttempts: 3}
	if err := worker.ProcessJob(context.Background(), job); err == nil {
		t.Fatal("expected the first attempt to fail")
	}
	if !repo.requeueCalled || repo.failCalled {
		t.Fatalf("expected a requeue, requeue=%v fail=%v", repo.requeueCalled, repo.failCalled)
	}

	job.Attempts = 2
	if err := worker.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	if repo.completeSummary == nil {
		t.Fatal("expected the retry to complete")
	}

	var parent, child models.Post
	if err := st.DB().Where("guid = ?", "http://demo.test/?page_id=100").Take(&parent).Error; err != nil {
		t.Fatalf("parent page not imported: %v", err)
	}
	if err := st.DB().Where("guid = ?", "http://demo.test/?page_id=101").Take(&child).Error; err != nil {
		t.Fatalf("child page not imported: %v", err)
	}
	if child.Parent != parent.ID {
		t.Fatalf("expected child parent %d, got %d", parent.ID, child.Parent)
	}
	markers, err := st.GetMeta(context.Background(), content.ObjectPost, child.ID, "_wxr_import_parent")
	if err != nil {
		t.Fatalf("unexpected meta error: %v", err)
	}
	if len(markers) != 0 {
		t.Fatalf("expected parent marker removed, got %v", markers)
	}
}
