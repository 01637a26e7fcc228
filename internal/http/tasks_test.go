package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/tasks"
)

type fakeTaskQueue struct {
	queues   []string
	enqueued []backlite.Task
	status   backlite.TaskStatus
	err      error
}

func (f *fakeTaskQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, task)
	return fmt.Sprintf("task-%d", len(f.enqueued)), nil
}

func (f *fakeTaskQueue) Status(_ context.Context, _ string) (backlite.TaskStatus, error) {
	return f.status, f.err
}

func (f *fakeTaskQueue) Queues() []string {
	return f.queues
}

func setupTasksRouter(queue *fakeTaskQueue) *gin.Engine {
	tc := NewTasksController(queue)
	router := gin.New()
	router.Use(withActor(5, entities.UserRoleAdministrator))
	router.GET("/api/tasks/types", tc.ListTaskTypes)
	router.GET("/api/tasks/:id", tc.GetTaskStatus)
	router.POST("/api/tasks/:type/run", tc.RunTask)
	return router
}

func TestTasksController_ListTaskTypes(t *testing.T) {
	router := setupTasksRouter(&fakeTaskQueue{queues: []string{"notify_due_soon", "reconcile_availability"}})

	w := doJSON(t, router, "GET", "/api/tasks/types", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		TaskTypes []TaskTypeInfo `json:"task_types"`
	}](t, w)
	require.Len(t, resp.TaskTypes, 2)
	assert.Equal(t, "notify_due_soon", resp.TaskTypes[0].Type)
	assert.NotEmpty(t, resp.TaskTypes[0].Description)
}

func TestTasksController_RunTask(t *testing.T) {
	t.Run("enqueues a due-soon scan for the caller", func(t *testing.T) {
		queue := &fakeTaskQueue{}
		router := setupTasksRouter(queue)

		w := doJSON(t, router, "POST", "/api/tasks/notify_due_soon/run", nil)

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		require.Len(t, queue.enqueued, 1)
		assert.Equal(t, tasks.NotifyDueSoonTask{RequestedBy: 5}, queue.enqueued[0])

		resp := decode[struct {
			Data map[string]string `json:"data"`
		}](t, w)
		assert.Equal(t, "task-1", resp.Data["task_id"])
		assert.Equal(t, "notify_due_soon", resp.Data["type"])
	})

	t.Run("passes retention override to cleanup", func(t *testing.T) {
		queue := &fakeTaskQueue{}
		router := setupTasksRouter(queue)

		w := doJSON(t, router, "POST", "/api/tasks/cleanup_audit_events/run", map[string]int{"retention_days": 30})

		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 30}, queue.enqueued[0])
	})

	t.Run("rejects negative retention", func(t *testing.T) {
		queue := &fakeTaskQueue{}
		router := setupTasksRouter(queue)

		w := doJSON(t, router, "POST", "/api/tasks/cleanup_audit_events/run", map[string]int{"retention_days": -1})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, queue.enqueued)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		router := setupTasksRouter(&fakeTaskQueue{})

		w := doJSON(t, router, "POST", "/api/tasks/reindex/run", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unregistered queue is a bad request", func(t *testing.T) {
		router := setupTasksRouter(&fakeTaskQueue{err: fmt.Errorf("%w: reconcile_availability", tasks.ErrUnknownTaskType)})

		w := doJSON(t, router, "POST", "/api/tasks/reconcile_availability/run", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("queue failure is internal", func(t *testing.T) {
		router := setupTasksRouter(&fakeTaskQueue{err: errors.New("database is locked")})

		w := doJSON(t, router, "POST", "/api/tasks/reconcile_availability/run", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	router := setupTasksRouter(&fakeTaskQueue{status: backlite.TaskStatusSuccess})

	w := doJSON(t, router, "GET", "/api/tasks/abc123", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]string](t, w)
	assert.Equal(t, "abc123", resp["id"])
	assert.Equal(t, "success", resp["status"])
}
