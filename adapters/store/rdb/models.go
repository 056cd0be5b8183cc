package rdb

import "time"

// ResourceRunRecord is the RDB persistence model for model.ResourceRun.
// Table name: resource_runs
type ResourceRunRecord struct {
	ID               string    `gorm:"primaryKey;type:text;not null"`
	WorkspaceAcronym string    `gorm:"type:text;not null;index"`
	WorkspaceVersion string    `gorm:"type:text"`
	RequestingUser   string    `gorm:"type:text;not null"`
	Templates        string    `gorm:"type:text"` // JSON encoded []string
	Events           string    `gorm:"type:text"` // JSON encoded []model.RepositoryUpdateEvent
	ReviewRequestID  int       `gorm:"not null;default:0"`
	ReviewRequestURL string    `gorm:"type:text"`
	Status           string    `gorm:"type:text;not null"`
	Error            string    `gorm:"type:text"`
	StartedAt        time.Time `gorm:"not null;index"`
	FinishedAt       time.Time `gorm:"not null"`
}

func (ResourceRunRecord) TableName() string { return "resource_runs" }
