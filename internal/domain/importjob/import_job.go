package importjob

import (
	"context"
	"errors"
	"time"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var ErrJobNotFound = errors.New("import job not found")

// ImportJob is one queued WXR import run by the background worker.
type ImportJob struct {
	ID           string
	SourcePath   string
	Status       string
	Attempts     int
	MaxAttempts  int
	Progress     ImportProgress
	ErrorMessage string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time
}

type ImportProgress struct {
	UsersCreated  int64
	TermsCreated  int64
	PostsCreated  int64
	PostsTotal    int64
	CommentsAdded int64
	SkippedCount  int64
	FailedCount   int64
}

// ImportSummary is the final progress plus what the remap pass left unresolved.
type ImportSummary struct {
	ImportProgress
	Unresolved int64
}

type Repository interface {
	Enqueue(ctx context.Context, sourcePath string) (string, error)
	Get(ctx context.Context, jobID string) (*ImportJob, error)
}
