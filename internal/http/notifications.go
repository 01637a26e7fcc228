package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/entities"
)

// NotificationStore defines database operations for notifications.
type NotificationStore interface {
	Create(n *entities.Notification) error
	Update(id, userID uint, message string) (*entities.Notification, error)
	GetByID(id uint) (*entities.Notification, error)
	List(f notifications.Filter) ([]entities.Notification, int64, error)
	Delete(id uint) error
}

type NotificationsController struct {
	store    NotificationStore
	recorder ChangeRecorder
	loc      *time.Location
}

func NewNotificationsController(store NotificationStore, recorder ChangeRecorder, loc *time.Location) *NotificationsController {
	return &NotificationsController{store: store, recorder: recorder, loc: loc}
}

type notificationRequest struct {
	UserID   uint   `json:"user_id"`
	Message  string `json:"message"`
	SentDate string `json:"sent_date"`
}

// ListNotifications handles GET /api/notifications
// Query: user_id, limit, offset. Newest first.
func (nc *NotificationsController) ListNotifications(c *gin.Context) {
	userID, ok := parseOptionalQueryID(c, "user_id")
	if !ok {
		return
	}
	limit, offset := parsePagination(c, 50)

	list, total, err := nc.store.List(notifications.Filter{UserID: userID, Limit: limit, Offset: offset})
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	respondPage(c, list, total, limit, offset)
}

// GetNotification handles GET /api/notifications/:id
func (nc *NotificationsController) GetNotification(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	n, err := nc.store.GetByID(id)
	if err != nil {
		respondAppError(c, err, "get notification")
		return
	}
	c.JSON(http.StatusOK, n)
}

// CreateNotification handles POST /api/notifications. A missing sent_date
// means now.
func (nc *NotificationsController) CreateNotification(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	sent, ok := parseDate(req.SentDate, nc.loc)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date format", Field: "sent_date"})
		return
	}

	n := &entities.Notification{UserID: req.UserID, Message: req.Message, SentDate: sent}
	if err := nc.store.Create(n); err != nil {
		respondAppError(c, err, "create notification")
		return
	}
	recordChange(nc.recorder, c, entities.AuditEventNotification, "notification_create", "notification", n.ID, "Created notification for user")
	respondCreated(c, n)
}

// UpdateNotification handles PUT /api/notifications/:id
func (nc *NotificationsController) UpdateNotification(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	n, err := nc.store.Update(id, req.UserID, req.Message)
	if err != nil {
		respondAppError(c, err, "update notification")
		return
	}
	recordChange(nc.recorder, c, entities.AuditEventNotification, "notification_update", "notification", n.ID, "Updated notification")
	c.JSON(http.StatusOK, n)
}

// DeleteNotification handles DELETE /api/notifications/:id
func (nc *NotificationsController) DeleteNotification(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := nc.store.Delete(id); err != nil {
		respondAppError(c, err, "delete notification")
		return
	}
	recordChange(nc.recorder, c, entities.AuditEventNotification, "notification_delete", "notification", id, "Deleted notification")
	respondSuccess(c, "notification deleted")
}
