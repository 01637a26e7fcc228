package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/lending"
)

// AvailabilityChecker compares stored copy flags with the loans table.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context) ([]lending.AvailabilityDrift, error)
}

type AvailabilityController struct {
	checker AvailabilityChecker
}

func NewAvailabilityController(checker AvailabilityChecker) *AvailabilityController {
	return &AvailabilityController{checker: checker}
}

// Check handles GET /api/admin/availability. An empty list means every
// copy's flag agrees with its loans.
func (ac *AvailabilityController) Check(c *gin.Context) {
	drift, err := ac.checker.CheckAvailability(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "availability check")
		return
	}
	if drift == nil {
		drift = []lending.AvailabilityDrift{}
	}
	c.JSON(http.StatusOK, gin.H{
		"consistent": len(drift) == 0,
		"drift":      drift,
	})
}
