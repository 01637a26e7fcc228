package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/copies"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
)

// CopyStore defines database operations for physical copies. The
// availability flag is never written through it.
type CopyStore interface {
	Create(bookID uint, catalogNumber string) (*entities.Copy, error)
	Update(id, bookID uint, catalogNumber string) (*entities.Copy, error)
	GetWithBook(id uint) (*entities.Copy, error)
	List(f copies.Filter) ([]entities.Copy, error)
}

// CopyRemover deletes a copy unless an active loan references it.
type CopyRemover interface {
	DeleteCopy(ctx context.Context, actor lending.Actor, copyID uint) error
}

type CopiesController struct {
	store    CopyStore
	remover  CopyRemover
	recorder ChangeRecorder
}

func NewCopiesController(store CopyStore, remover CopyRemover, recorder ChangeRecorder) *CopiesController {
	return &CopiesController{store: store, remover: remover, recorder: recorder}
}

type copyRequest struct {
	BookID        uint   `json:"book_id"`
	CatalogNumber string `json:"catalog_number"`
}

// ListCopies handles GET /api/copies
// Query: book_id, available=true (only copies that can be lent)
func (cc *CopiesController) ListCopies(c *gin.Context) {
	bookID, ok := parseOptionalQueryID(c, "book_id")
	if !ok {
		return
	}

	list, err := cc.store.List(copies.Filter{
		BookID:        bookID,
		AvailableOnly: c.Query("available") == "true",
	})
	if err != nil {
		respondInternalError(c, err, "list copies")
		return
	}
	c.JSON(http.StatusOK, gin.H{"copies": list, "count": len(list)})
}

// GetCopy handles GET /api/copies/:id
func (cc *CopiesController) GetCopy(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	cp, err := cc.store.GetWithBook(id)
	if err != nil {
		respondAppError(c, err, "get copy")
		return
	}
	c.JSON(http.StatusOK, cp)
}

// CreateCopy handles POST /api/copies. New copies start available.
func (cc *CopiesController) CreateCopy(c *gin.Context) {
	var req copyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	cp, err := cc.store.Create(req.BookID, req.CatalogNumber)
	if err != nil {
		respondAppError(c, err, "create copy")
		return
	}
	recordChange(cc.recorder, c, entities.AuditEventCopy, "copy_create", "copy", cp.ID, "Created copy "+cp.CatalogNumber)
	respondCreated(c, cp)
}

// UpdateCopy handles PUT /api/copies/:id. Only the book and catalog number
// can change; an "available" field in the body is ignored.
func (cc *CopiesController) UpdateCopy(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req copyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	cp, err := cc.store.Update(id, req.BookID, req.CatalogNumber)
	if err != nil {
		respondAppError(c, err, "update copy")
		return
	}
	recordChange(cc.recorder, c, entities.AuditEventCopy, "copy_update", "copy", cp.ID, "Updated copy "+cp.CatalogNumber)
	c.JSON(http.StatusOK, cp)
}

// DeleteCopy handles DELETE /api/copies/:id
func (cc *CopiesController) DeleteCopy(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := cc.remover.DeleteCopy(c.Request.Context(), actorFrom(c), id); err != nil {
		respondAppError(c, err, "delete copy")
		return
	}
	respondSuccess(c, "copy deleted")
}
