package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImportJob struct {
	ID             string  `gorm:"type:varchar(36);primaryKey"`
	SourcePath     string  `gorm:"type:text;not null"`
	Status         string  `gorm:"type:varchar(16);not null;index"`
	UsersCreated   int64   `gorm:"not null;default:0"`
	TermsCreated   int64   `gorm:"not null;default:0"`
	PostsCreated   int64   `gorm:"not null;default:0"`
	PostsTotal     int64   `gorm:"not null;default:0"`
	CommentsAdded  int64   `gorm:"not null;default:0"`
	SkippedCount   int64   `gorm:"not null;default:0"`
	FailedCount    int64   `gorm:"not null;default:0"`
	Attempts       int     `gorm:"not null;default:0"`
	MaxAttempts    int     `gorm:"not null;default:3"`
	ErrorMessage   *string `gorm:"type:text"`
	HeartbeatAt    *time.Time
	LeaseExpiresAt *time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ImportJob) TableName() string {
	return "import_jobs"
}

func (j *ImportJob) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
