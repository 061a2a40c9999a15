package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/logger"
)

// TaskStore mirrors registry state to durable storage. Writes are
// best-effort; a failed mirror never blocks a state transition.
type TaskStore interface {
	Save(ctx context.Context, task *domain.BackgroundTask) error
}

// TaskRegistry is the in-memory source of truth for background task
// state. Tasks move pending -> running -> completed, failed or cancelled;
// terminal states never transition again.
type TaskRegistry struct {
	mu      sync.RWMutex
	tasks   map[string]*domain.BackgroundTask
	cancels map[string]context.CancelFunc

	store TaskStore
	log   *logger.Logger
}

// NewTaskRegistry creates a registry. The store may be nil, in which case
// state lives only in memory.
func NewTaskRegistry(store TaskStore, log *logger.Logger) *TaskRegistry {
	return &TaskRegistry{
		tasks:   make(map[string]*domain.BackgroundTask),
		cancels: make(map[string]context.CancelFunc),
		store:   store,
		log:     log.WithField(logger.FieldComponent, "tasks"),
	}
}

// Create registers a new pending task and returns its snapshot.
func (r *TaskRegistry) Create(kind domain.TaskKind, campaignID *uint) *domain.BackgroundTask {
	task := &domain.BackgroundTask{
		ID:         uuid.New().String(),
		Kind:       kind,
		Status:     domain.TaskStatusPending,
		CampaignID: campaignID,
		CreatedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()

	r.mirror(task)
	return copyTask(task)
}

// Get returns a snapshot of the task, or nil when unknown.
func (r *TaskRegistry) Get(id string) *domain.BackgroundTask {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if task, ok := r.tasks[id]; ok {
		return copyTask(task)
	}
	return nil
}

// List returns task snapshots, newest first, optionally filtered by status.
func (r *TaskRegistry) List(status domain.TaskStatus, limit int) []domain.BackgroundTask {
	r.mu.RLock()
	out := make([]domain.BackgroundTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		if status != "" && task.Status != status {
			continue
		}
		out = append(out, *copyTask(task))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// InFlight reports whether a pending or running task of the given kind
// exists for the campaign. The scheduler uses this to avoid enqueueing
// the same work twice.
func (r *TaskRegistry) InFlight(kind domain.TaskKind, campaignID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, task := range r.tasks {
		if task.Kind == kind && !task.Status.Terminal() &&
			task.CampaignID != nil && *task.CampaignID == campaignID {
			return true
		}
	}
	return false
}

// MarkRunning transitions a pending task to running and registers its
// cancel function. Returns false when the task was cancelled while queued.
func (r *TaskRegistry) MarkRunning(id string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	task, ok := r.tasks[id]
	if !ok || task.Status != domain.TaskStatusPending {
		r.mu.Unlock()
		return false
	}
	now := time.Now().UTC()
	task.Status = domain.TaskStatusRunning
	task.StartedAt = &now
	r.cancels[id] = cancel
	snapshot := copyTask(task)
	r.mu.Unlock()

	r.mirror(snapshot)
	return true
}

// SetProgress updates a running task's progress fraction.
func (r *TaskRegistry) SetProgress(id string, progress float64) {
	r.mu.Lock()
	if task, ok := r.tasks[id]; ok && task.Status == domain.TaskStatusRunning {
		task.Progress = progress
	}
	r.mu.Unlock()
}

// Complete marks a running task completed with its result payload.
func (r *TaskRegistry) Complete(id string, result domain.TaskResult) {
	r.finish(id, domain.TaskStatusCompleted, result, "")
}

// Fail marks a task failed with the error message.
func (r *TaskRegistry) Fail(id string, errMsg string) {
	r.finish(id, domain.TaskStatusFailed, nil, errMsg)
}

// Cancel requests cancellation of a task. The task is marked cancelled
// immediately whether queued or running; a running task additionally has
// its context cancelled so the work can stop cooperatively, and the
// terminal guard in finish keeps a late Complete or Fail from overwriting
// the verdict. Cancelling a terminal task is an error.
func (r *TaskRegistry) Cancel(id string) error {
	r.mu.Lock()
	task, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("task %s not found", id)
	}
	if task.Status.Terminal() {
		status := task.Status
		r.mu.Unlock()
		return fmt.Errorf("task %s already %s", id, status)
	}

	now := time.Now().UTC()
	task.Status = domain.TaskStatusCancelled
	task.CompletedAt = &now
	cancel := r.cancels[id]
	delete(r.cancels, id)
	snapshot := copyTask(task)
	r.mu.Unlock()

	r.mirror(snapshot)
	if cancel != nil {
		cancel()
	}
	return nil
}

// MarkCancelled records that a running task observed its cancellation.
func (r *TaskRegistry) MarkCancelled(id string) {
	r.finish(id, domain.TaskStatusCancelled, nil, "")
}

func (r *TaskRegistry) finish(id string, status domain.TaskStatus, result domain.TaskResult, errMsg string) {
	r.mu.Lock()
	task, ok := r.tasks[id]
	if !ok || task.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	task.Status = status
	task.CompletedAt = &now
	task.ErrorMessage = errMsg
	if result != nil {
		task.Result = result
	}
	if status == domain.TaskStatusCompleted {
		task.Progress = 1
	}
	delete(r.cancels, id)
	snapshot := copyTask(task)
	r.mu.Unlock()

	r.mirror(snapshot)
}

func (r *TaskRegistry) mirror(task *domain.BackgroundTask) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Save(ctx, task); err != nil {
		r.log.WithError(err).WithField(logger.FieldTaskID, task.ID).
			Warn("failed to mirror task state")
	}
}

func copyTask(task *domain.BackgroundTask) *domain.BackgroundTask {
	copied := *task
	return &copied
}
