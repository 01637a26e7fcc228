package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/entities"
)

// CategoryStore defines database operations for categories.
type CategoryStore interface {
	CreateCategory(name string) (*entities.Category, error)
	GetCategory(id uint) (*entities.Category, error)
	ListCategories() ([]entities.Category, error)
	RenameCategory(id uint, name string) (*entities.Category, error)
	DeleteCategory(id uint) error
}

type CategoriesController struct {
	store    CategoryStore
	recorder ChangeRecorder
}

func NewCategoriesController(store CategoryStore, recorder ChangeRecorder) *CategoriesController {
	return &CategoriesController{store: store, recorder: recorder}
}

type categoryRequest struct {
	Name string `json:"name"`
}

// ListCategories returns all categories ordered by name
// GET /api/categories
func (cc *CategoriesController) ListCategories(c *gin.Context) {
	categories, err := cc.store.ListCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory handles GET /api/categories/:id
func (cc *CategoriesController) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	category, err := cc.store.GetCategory(id)
	if err != nil {
		respondAppError(c, err, "get category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory handles POST /api/categories
func (cc *CategoriesController) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	category, err := cc.store.CreateCategory(req.Name)
	if err != nil {
		respondAppError(c, err, "create category")
		return
	}
	recordChange(cc.recorder, c, entities.AuditEventCatalog, "category_create", "category", category.ID, "Created category "+category.Name)
	respondCreated(c, category)
}

// RenameCategory handles PUT /api/categories/:id
func (cc *CategoriesController) RenameCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	category, err := cc.store.RenameCategory(id, req.Name)
	if err != nil {
		respondAppError(c, err, "rename category")
		return
	}
	recordChange(cc.recorder, c, entities.AuditEventCatalog, "category_rename", "category", category.ID, "Renamed category to "+category.Name)
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/:id. Books keep existing
// and lose the category.
func (cc *CategoriesController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := cc.store.DeleteCategory(id); err != nil {
		respondAppError(c, err, "delete category")
		return
	}
	recordChange(cc.recorder, c, entities.AuditEventCatalog, "category_delete", "category", id, "Deleted category")
	respondSuccess(c, "category deleted")
}
