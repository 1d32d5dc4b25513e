package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/mohammadpnp/theme-setup/internal/domain/importjob"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ImportJobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db, now: time.Now}
}

func (r *ImportJobRepository) Enqueue(ctx context.Context, sourcePath string) (string, error) {
	job := models.ImportJob{
		SourcePath: sourcePath,
		Status:     domain.StatusQueued,
	}

	if err := r.db.WithContext(ctx).Create(&job).Error; err != nil {
		return "", fmt.Errorf("create import job: %w", err)
	}

	return job.ID, nil
}

func (r *ImportJobRepository) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	var row models.ImportJob
	err := r.db.WithContext(ctx).First(&row, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return toDomain(row), nil
}

// ClaimNext leases the oldest queued job, or a running job whose lease
// expired. It returns nil when there is nothing to claim or another worker
// won the race.
func (r *ImportJobRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	var claimed *domain.ImportJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()

		query := tx.Where("status = ?", domain.StatusQueued).
			Or("status = ? AND lease_expires_at < ?", domain.StatusRunning, now).
			Order("created_at ASC")
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var row models.ImportJob
		if err := query.Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("select claimable job: %w", err)
		}

		lease := now.Add(leaseDuration)
		updates := map[string]any{
			"status":           domain.StatusRunning,
			"attempts":         row.Attempts + 1,
			"heartbeat_at":     now,
			"lease_expires_at": lease,
			"updated_at":       now,
		}
		if row.StartedAt == nil {
			updates["started_at"] = now
		}
		res := tx.Model(&models.ImportJob{}).
			Where("id = ? AND status = ? AND attempts = ?", row.ID, row.Status, row.Attempts).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("claim import job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		row.Status = domain.StatusRunning
		row.Attempts++
		row.HeartbeatAt = &now
		row.LeaseExpiresAt = &lease
		if row.StartedAt == nil {
			row.StartedAt = &now
		}
		claimed = toDomain(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *ImportJobRepository) Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error {
	now := r.now()
	return r.update(ctx, jobID, "heartbeat", map[string]any{
		"heartbeat_at":     now,
		"lease_expires_at": now.Add(leaseDuration),
	})
}

func (r *ImportJobRepository) UpdateProgress(ctx context.Context, jobID string, progress domain.ImportProgress) error {
	return r.update(ctx, jobID, "update progress", progressColumns(progress))
}

func (r *ImportJobRepository) Complete(ctx context.Context, jobID string, summary domain.ImportSummary) error {
	cols := progressColumns(summary.ImportProgress)
	cols["status"] = domain.StatusSucceeded
	cols["finished_at"] = r.now()
	cols["lease_expires_at"] = nil
	cols["error_message"] = nil
	return r.update(ctx, jobID, "complete", cols)
}

func (r *ImportJobRepository) Requeue(ctx context.Context, jobID string, reason string) error {
	return r.update(ctx, jobID, "requeue", map[string]any{
		"status":           domain.StatusQueued,
		"error_message":    reason,
		"lease_expires_at": nil,
	})
}

func (r *ImportJobRepository) Fail(ctx context.Context, jobID string, reason string) error {
	return r.update(ctx, jobID, "fail", map[string]any{
		"status":           domain.StatusFailed,
		"error_message":    reason,
		"finished_at":      r.now(),
		"lease_expires_at": nil,
	})
}

func (r *ImportJobRepository) update(ctx context.Context, jobID, op string, cols map[string]any) error {
	cols["updated_at"] = r.now()
	res := r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("%s import job: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s import job %s: %w", op, jobID, domain.ErrJobNotFound)
	}
	return nil
}

func progressColumns(p domain.ImportProgress) map[string]any {
	return map[string]any{
		"users_created":  p.UsersCreated,
		"terms_created":  p.TermsCreated,
		"posts_created":  p.PostsCreated,
		"posts_total":    p.PostsTotal,
		"comments_added": p.CommentsAdded,
		"skipped_count":  p.SkippedCount,
		"failed_count":   p.FailedCount,
	}
}

func toDomain(row models.ImportJob) *domain.ImportJob {
	job := &domain.ImportJob{
		ID:          row.ID,
		SourcePath:  row.SourcePath,
		Status:      row.Status,
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		Progress: domain.ImportProgress{
			UsersCreated:  row.UsersCreated,
			TermsCreated:  row.TermsCreated,
			PostsCreated:  row.PostsCreated,
			PostsTotal:    row.PostsTotal,
			CommentsAdded: row.CommentsAdded,
			SkippedCount:  row.SkippedCount,
			FailedCount:   row.FailedCount,
		},
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		CreatedAt:  row.CreatedAt,
	}
	if row.ErrorMessage != nil {
		job.ErrorMessage = *row.ErrorMessage
	}
	return job
}
