package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/tasks"
)

// TaskQueue is the part of tasks.Client the controller needs.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
	Queues() []string
}

// TasksController handles task queue management endpoints.
type TasksController struct {
	client TaskQueue
}

// NewTasksController creates a new TasksController.
func NewTasksController(client TaskQueue) *TasksController {
	return &TasksController{client: client}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

var taskDescriptions = map[string]string{
	"notify_due_soon":        "Send reminders for loans due within the notifier horizon",
	"reconcile_availability": "Recompute copy availability from active loans and repair drift",
	"cleanup_audit_events":   "Delete audit events older than the retention period",
}

// ListTaskTypes handles GET /api/tasks/types
// Returns the task types whose queues are registered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	queues := tc.client.Queues()
	types := make([]TaskTypeInfo, 0, len(queues))
	for _, q := range queues {
		types = append(types, TaskTypeInfo{Type: q, Description: taskDescriptions[q], Queue: q})
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTaskRequest is the optional request body for running a task.
type RunTaskRequest struct {
	// RetentionDays overrides the configured retention for cleanup_audit_events
	RetentionDays int `json:"retention_days,omitempty"`
}

// RunTask handles POST /api/tasks/:type/run
// Enqueues a task of the specified type and returns its ID.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	var task backlite.Task
	switch taskType {
	case "notify_due_soon":
		task = tasks.NotifyDueSoonTask{RequestedBy: auth.GetUserID(c)}
	case "reconcile_availability":
		task = tasks.ReconcileAvailabilityTask{RequestedBy: auth.GetUserID(c)}
	case "cleanup_audit_events":
		if req.RetentionDays < 0 {
			respondBadRequest(c, "retention_days must not be negative")
			return
		}
		task = tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}
	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	id, err := tc.client.Enqueue(c.Request.Context(), task)
	if err != nil {
		if errors.Is(err, tasks.ErrUnknownTaskType) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}

	respondAccepted(c, "task enqueued", gin.H{"task_id": id, "type": taskType})
}
