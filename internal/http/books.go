package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/entities"
)

// BookStore defines database operations for the book catalog.
type BookStore interface {
	CreateBook(in catalog.BookInput) (*entities.Book, error)
	UpdateBook(id uint, in catalog.BookInput) (*entities.Book, error)
	GetBook(id uint) (*entities.Book, error)
	DeleteBook(id uint) error
	SearchBooks(s catalog.BookSearch) ([]entities.Book, error)
}

// ChangeRecorder receives a record of every successful catalog mutation.
type ChangeRecorder interface {
	LogChange(userID uint, eventType entities.AuditEventType, action, entityType string, entityID uint, description string, metadata map[string]any)
}

func recordChange(r ChangeRecorder, c *gin.Context, eventType entities.AuditEventType, action, entityType string, entityID uint, description string) {
	if r == nil {
		return
	}
	r.LogChange(actorFrom(c).UserID, eventType, action, entityType, entityID, description, nil)
}

type BooksController struct {
	store    BookStore
	recorder ChangeRecorder
}

func NewBooksController(store BookStore, recorder ChangeRecorder) *BooksController {
	return &BooksController{
		store:    store,
		recorder: recorder,
	}
}

// SearchBooks handles GET /api/books
// Query: title, author, isbn (substring), year_from, year_to, category_ids=1,2
func (bc *BooksController) SearchBooks(c *gin.Context) {
	search := catalog.BookSearch{
		Title:  c.Query("title"),
		Author: c.Query("author"),
		ISBN:   c.Query("isbn"),
	}

	var ok bool
	if search.YearFrom, ok = parseOptionalQueryInt(c, "year_from"); !ok {
		return
	}
	if search.YearTo, ok = parseOptionalQueryInt(c, "year_to"); !ok {
		return
	}
	if search.CategoryIDs, ok = parseQueryIDList(c, "category_ids"); !ok {
		return
	}

	books, err := bc.store.SearchBooks(search)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBook(id)
	if err != nil {
		respondAppError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook handles POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var in catalog.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := bc.store.CreateBook(in)
	if err != nil {
		respondAppError(c, err, "create book")
		return
	}
	recordChange(bc.recorder, c, entities.AuditEventCatalog, "book_create", "book", book.ID, "Created book "+book.Title)
	respondCreated(c, book)
}

// UpdateBook handles PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in catalog.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := bc.store.UpdateBook(id, in)
	if err != nil {
		respondAppError(c, err, "update book")
		return
	}
	recordChange(bc.recorder, c, entities.AuditEventCatalog, "book_update", "book", book.ID, "Updated book "+book.Title)
	c.JSON(http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/:id. Books that still have copies
// cannot be deleted.
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		respondAppError(c, err, "delete book")
		return
	}
	recordChange(bc.recorder, c, entities.AuditEventCatalog, "book_delete", "book", id, "Deleted book")
	respondSuccess(c, "book deleted")
}
