package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/notifier"
	"github.com/mrlokans/library/internal/scheduler"
)

// NotifierRunner runs due-soon scans on demand and reports the schedule.
type NotifierRunner interface {
	Run(ctx context.Context, trigger string) (*notifier.ScanResult, error)
	Status() scheduler.Status
}

// NotifierController exposes the due-soon notifier to operators.
type NotifierController struct {
	runner NotifierRunner
}

func NewNotifierController(runner NotifierRunner) *NotifierController {
	return &NotifierController{runner: runner}
}

// RunNow handles POST /api/admin/notifier/run. The scan runs synchronously
// and its summary is returned.
func (nc *NotifierController) RunNow(c *gin.Context) {
	result, err := nc.runner.Run(c.Request.Context(), notifier.TriggerManual)
	if err != nil {
		if errors.Is(err, scheduler.ErrScanInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		respondInternalError(c, err, "due-soon scan")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatus handles GET /api/admin/notifier/status
func (nc *NotifierController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, nc.runner.Status())
}
