package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/notifications"
)

// MeController serves the caller's own loans and notifications.
type MeController struct {
	loans         LoanReader
	notifications NotificationStore
}

func NewMeController(loans LoanReader, notifications NotificationStore) *MeController {
	return &MeController{loans: loans, notifications: notifications}
}

// callerID returns the authenticated user, or responds 401 when there is
// none (including auth mode "none", where nobody owns loans).
func callerID(c *gin.Context) (uint, bool) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return 0, false
	}
	return userID, true
}

// MyLoans handles GET /api/me/loans?active=true
func (mc *MeController) MyLoans(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	list, err := mc.loans.List(loans.Filter{UserID: userID, ActiveOnly: c.Query("active") == "true"})
	if err != nil {
		respondInternalError(c, err, "list my loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": list, "count": len(list)})
}

// MyNotifications handles GET /api/me/notifications
func (mc *MeController) MyNotifications(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	limit, offset := parsePagination(c, 50)

	list, total, err := mc.notifications.List(notifications.Filter{UserID: userID, Limit: limit, Offset: offset})
	if err != nil {
		respondInternalError(c, err, "list my notifications")
		return
	}
	respondPage(c, list, total, limit, offset)
}
