package models

import "time"

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Login        string `gorm:"size:60;not null;uniqueIndex"`
	Email        string `gorm:"size:100;not null;default:''"`
	DisplayName  string `gorm:"size:250;not null;default:''"`
	FirstName    string `gorm:"size:120;not null;default:''"`
	LastName     string `gorm:"size:120;not null;default:''"`
	PasswordHash string `gorm:"size:255;not null;default:''"`
	Role         string `gorm:"size:60;not null;default:'subscriber'"`
	Description  string `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string {
	return "wp_users"
}
