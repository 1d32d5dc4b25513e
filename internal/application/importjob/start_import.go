package importjob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	domain "github.com/mohammadpnp/theme-setup/internal/domain/importjob"
)

type StartImportInput struct {
	SourcePath string
}

type StartImportOutput struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type StartImport interface {
	Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error)
}

type importJobEnqueuer interface {
	Enqueue(ctx context.Context, sourcePath string) (string, error)
}

type startImport struct {
	importJobRepo importJobEnqueuer
}

func NewStartImport(importJobRepo importJobEnqueuer) StartImport {
	return &startImport{importJobRepo: importJobRepo}
}

// Execute queues a WXR file for the background worker.
func (uc *startImport) Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error) {
	sourcePath := strings.TrimSpace(in.SourcePath)
	if sourcePath == "" || strings.ToLower(filepath.Ext(sourcePath)) != ".xml" {
		return StartImportOutput{}, ErrInvalidImportSource
	}

	jobID, err := uc.importJobRepo.Enqueue(ctx, sourcePath)
	if err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImportJob, err)
	}

	return StartImportOutput{
		JobID:  jobID,
		Status: domain.StatusQueued,
	}, nil
}
