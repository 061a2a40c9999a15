package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// TaskStatus represents the lifecycle state of a background task.
// Values include TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
// TaskStatusFailed, and TaskStatusCancelled.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TaskKind identifies what a background task does.
type TaskKind string

const (
	TaskKindAnalysis   TaskKind = "campaign_analysis"
	TaskKindMonitoring TaskKind = "scheduled_monitoring"
	TaskKindKeywords   TaskKind = "keyword_rankings"
)

// TaskResult is a custom type for storing a task's result payload as JSON.
type TaskResult map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
func (r TaskResult) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (r *TaskResult) Scan(value interface{}) error {
	if value == nil {
		*r = TaskResult{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan TaskResult")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, r)
}

// BackgroundTask tracks one scheduled unit of work and its outcome.
type BackgroundTask struct {
	ID           string     `gorm:"type:text;primaryKey" json:"id"`
	Kind         TaskKind   `gorm:"type:text;not null;index" json:"kind"`
	Status       TaskStatus `gorm:"type:text;not null;default:pending;index" json:"status"`
	CampaignID   *uint      `gorm:"index" json:"campaign_id,omitempty"`
	Progress     float64    `gorm:"default:0" json:"progress"`
	Result       TaskResult `gorm:"type:text" json:"result,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// TableName returns the database table name for BackgroundTask.
func (BackgroundTask) TableName() string {
	return "background_tasks"
}
