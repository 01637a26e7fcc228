package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// AuditReader reads the audit trail.
type AuditReader interface {
	List(f audit.Filter) ([]entities.AuditEvent, int64, error)
	GetEvent(id uint) (*entities.AuditEvent, error)
}

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/admin/audit?page=1&limit=25&type=loan&user_id=3
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	userID, ok := parseOptionalQueryID(c, "user_id")
	if !ok {
		return
	}

	offset := (page - 1) * limit
	events, total, err := ac.reader.List(audit.Filter{
		UserID:     userID,
		EventType:  entities.AuditEventType(c.Query("type")),
		EntityType: c.Query("entity_type"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}

// GetAuditEvent handles GET /api/admin/audit/:id
func (ac *AuditController) GetAuditEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	event, err := ac.reader.GetEvent(id)
	if err != nil {
		respondAppError(c, err, "get audit event")
		return
	}
	c.JSON(http.StatusOK, event)
}
