package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/scheduler"
)

// TaskHandler handles background task endpoints.
type TaskHandler struct {
	registry *scheduler.TaskRegistry
}

// NewTaskHandler creates a new task handler.
// Parameters:
//   - registry: in-memory task registry.
// Returns:
//   - *TaskHandler: initialized handler.
func NewTaskHandler(registry *scheduler.TaskRegistry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

// ListTasks handles GET /api/v1/tasks.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TaskHandler) ListTasks(c *gin.Context) {
	status := domain.TaskStatus(c.Query("status"))

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	tasks := h.registry.List(status, limit)
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// GetTask handles GET /api/v1/tasks/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TaskHandler) GetTask(c *gin.Context) {
	task := h.registry.Get(c.Param("id"))
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// CancelTask handles POST /api/v1/tasks/:id/cancel.
// A queued task cancels immediately; a running one is asked to stop and
// finishes cooperatively.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TaskHandler) CancelTask(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Cancel(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": id,
		"status":  h.registry.Get(id).Status,
	})
}
