package importjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/theme-setup/internal/domain/importjob"
)

type GetImportJobInput struct {
	ID string
}

type ImportProgressOutput struct {
	UsersCreated  int64 `json:"users_created"`
	TermsCreated  int64 `json:"terms_created"`
	PostsCreated  int64 `json:"posts_created"`
	PostsTotal    int64 `json:"posts_total"`
	CommentsAdded int64 `json:"comments_added"`
	Skipped       int64 `json:"skipped"`
	Failed        int64 `json:"failed"`
}

type GetImportJobOutput struct {
	ID         string               `json:"id"`
	SourcePath string               `json:"source_path"`
	Status     string               `json:"status"`
	Attempts   int                  `json:"attempts"`
	Progress   ImportProgressOutput `json:"progress"`
	Error      string               `json:"error,omitempty"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
}

type GetImportJob interface {
	Execute(ctx context.Context, in GetImportJobInput) (GetImportJobOutput, error)
}

type importJobReader interface {
	Get(ctx context.Context, jobID string) (*domain.ImportJob, error)
}

type getImportJob struct {
	repo importJobReader
}

func NewGetImportJob(repo importJobReader) GetImportJob {
	return &getImportJob{repo: repo}
}

func (uc *getImportJob) Execute(ctx context.Context, in GetImportJobInput) (GetImportJobOutput, error) {
	if _, err := uuid.Parse(in.ID); err != nil {
		return GetImportJobOutput{}, ErrInvalidJobID
	}

	job, err := uc.repo.Get(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return GetImportJobOutput{}, ErrJobNotFound
		}
		return GetImportJobOutput{}, fmt.Errorf("%w: %v", ErrGetImportJob, err)
	}

	return GetImportJobOutput{
		ID:         job.ID,
		SourcePath: job.SourcePath,
		Status:     job.Status,
		Attempts:   job.Attempts,
		Progress: ImportProgressOutput{
			UsersCreated:  job.Progress.UsersCreated,
			TermsCreated:  job.Progress.TermsCreated,
			PostsCreated:  job.Progress.PostsCreated,
			PostsTotal:    job.Progress.PostsTotal,
			CommentsAdded: job.Progress.CommentsAdded,
			Skipped:       job.Progress.SkippedCount,
			Failed:        job.Progress.FailedCount,
		},
		Error:      job.ErrorMessage,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}, nil
}
