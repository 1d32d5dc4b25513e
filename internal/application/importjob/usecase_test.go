package importjob_test

import (
	"context"
	"errors"
	"testing"

	app "github.com/mohammadpnp/theme-setup/internal/application/importjob"
	domain "github.com/mohammadpnp/theme-setup/internal/domain/importjob"
)

type fakeJobRepo struct {
	enqueued []string
	err      error
	job      *domain.ImportJob
}

func (f *fakeJobRepo) Enqueue(ctx context.Context, sourcePath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, sourcePath)
	return "5f0c7b5e-7d52-4a8e-9f43-1c3a1a1f2b10", nil
}

func (f *fakeJobRepo) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.job == nil || f.job.ID != jobID {
		return nil, domain.ErrJobNotFound
	}
	return f.job, nil
}

func TestStartImportRejectsNonXMLSource(t *testing.T) {
	t.Parallel()

	repo := &fakeJobRepo{}
	uc := app.NewStartImport(repo)

	for _, path := range []string{"", "  ", "content.json", "content"} {
		_, err := uc.Execute(context.Background(), app.StartImportInput{SourcePath: path})
		if !errors.Is(err, app.ErrInvalidImportSource) {
			t.Fatalf("%q: expected ErrInvalidImportSource, got %v", path, err)
		}
	}
	if len(repo.enqueued) != 0 {
		t.Fatalf("expected nothing enqueued, got %v", repo.enqueued)
	}
}

func TestStartImportEnqueues(t *testing.T) {
	t.Parallel()

	repo := &fakeJobRepo{}
	out, err := app.NewStartImport(repo).Execute(context.Background(), app.StartImportInput{SourcePath: " demo/Content.XML "})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Status != domain.StatusQueued || out.JobID == "" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(repo.enqueued) != 1 || repo.enqueued[0] != "demo/Content.XML" {
		t.Fatalf("unexpected enqueued paths: %v", repo.enqueued)
	}
}

func TestStartImportWrapsRepositoryError(t *testing.T) {
	t.Parallel()

	_, err := app.NewStartImport(&fakeJobRepo{err: errors.New("db down")}).
		Execute(context.Background(), app.StartImportInput{SourcePath: "content.xml"})
	if !errors.Is(err, app.ErrEnqueueImportJob) {
		t.Fatalf("expected ErrEnqueueImportJob, got %v", err)
	}
}

func TestGetImportJob(t *testing.T) {
	t.Parallel()

	id := "5f0c7b5e-7d52-4a8e-9f43-1c3a1a1f2b10"
	repo := &fakeJobRepo{job: &domain.ImportJob{
		ID:         id,
		SourcePath: "content.xml",
		Status:     domain.StatusRunning,
		Attempts:   1,
		Progress:   domain.ImportProgress{PostsCreated: 4, PostsTotal: 9},
	}}
	uc := app.NewGetImportJob(repo)

	out, err := uc.Execute(context.Background(), app.GetImportJobInput{ID: id})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Progress.PostsCreated != 4 || out.Progress.PostsTotal != 9 {
		t.Fatalf("unexpected progress: %+v", out.Progress)
	}

	if _, err := uc.Execute(context.Background(), app.GetImportJobInput{ID: "not-a-uuid"}); !errors.Is(err, app.ErrInvalidJobID) {
		t.Fatalf("expected ErrInvalidJobID, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), app.GetImportJobInput{ID: "00000000-0000-4000-8000-000000000000"}); !errors.Is(err, app.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	_, err = app.NewGetImportJob(&fakeJobRepo{err: errors.New("db down")}).Execute(context.Background(), app.GetImportJobInput{ID: id})
	if !errors.Is(err, app.ErrGetImportJob) {
		t.Fatalf("expected ErrGetImportJob, got %v", err)
	}
}
