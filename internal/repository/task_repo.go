package repository

import (
	"context"

	"github.com/linkdive/linkdive/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository mirrors the in-memory task registry to the database so a
// restart keeps an audit trail of past runs. Writes are best-effort; the
// scheduler treats failures here as non-fatal.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Save inserts or replaces a task snapshot keyed by task ID.
func (r *TaskRepository) Save(ctx context.Context, task *domain.BackgroundTask) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(task).Error
}

// GetByID retrieves a persisted task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.BackgroundTask, error) {
	var task domain.BackgroundTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves persisted tasks, newest first, optionally filtered by status.
func (r *TaskRepository) List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.BackgroundTask, error) {
	var tasks []domain.BackgroundTask
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
