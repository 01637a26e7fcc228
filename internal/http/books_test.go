package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/entities"
)

type booksListResponse struct {
	Books []entities.Book `json:"books"`
	Count int             `json:"count"`
}

func setupBooksRouter(t *testing.T) (*gin.Engine, *libraryFixture) {
	t.Helper()
	f := setupLibrary(t)

	books := NewBooksController(f.catalog, f.recorder)
	router := gin.New()
	router.Use(withActor(42, entities.UserRoleLibrarian))
	router.GET("/api/books", books.SearchBooks)
	router.GET("/api/books/:id", books.GetBook)
	router.POST("/api/books", books.CreateBook)
	router.PUT("/api/books/:id", books.UpdateBook)
	router.DELETE("/api/books/:id", books.DeleteBook)
	return router, f
}

func TestBooksController_CreateBook(t *testing.T) {
	t.Run("creates book with categories", func(t *testing.T) {
		router, f := setupBooksRouter(t)
		category, err := f.catalog.CreateCategory("Programming")
		require.NoError(t, err)

		w := doJSON(t, router, "POST", "/api/books", map[string]any{
			"title":          "  Concurrency in Go ",
			"author":         "Katherine Cox-Buday",
			"year_published": 2017,
			"category_ids":   []uint{category.ID},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		book := decode[entities.Book](t, w)
		assert.Equal(t, "Concurrency in Go", book.Title)
		require.Len(t, book.Categories, 1)
		assert.Equal(t, "Programming", book.Categories[0].Name)

		require.Len(t, f.recorder.changes, 1)
		assert.Equal(t, recordedChange{userID: 42, action: "book_create", id: book.ID}, f.recorder.changes[0])
	})

	t.Run("rejects missing title with field", func(t *testing.T) {
		router, f := setupBooksRouter(t)

		w := doJSON(t, router, "POST", "/api/books", map[string]any{
			"author":         "Nobody",
			"year_published": 2001,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "title", decode[ErrorResponse](t, w).Field)
		assert.Empty(t, f.recorder.changes)
	})

	t.Run("rejects year out of range", func(t *testing.T) {
		router, _ := setupBooksRouter(t)

		w := doJSON(t, router, "POST", "/api/books", map[string]any{
			"title":          "Scroll",
			"author":         "Scribe",
			"year_published": 99,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "year_published", decode[ErrorResponse](t, w).Field)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		router, _ := setupBooksRouter(t)

		w := doJSON(t, router, "POST", "/api/books", "not an object")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_SearchBooks(t *testing.T) {
	router, f := setupBooksRouter(t)
	_, err := f.catalog.CreateBook(bookInput("Learning Go", "Jon Bodner", 2021))
	require.NoError(t, err)
	_, err = f.catalog.CreateBook(bookInput("Dune", "Frank Herbert", 1965))
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  string
		titles []string
	}{
		{"all, ordered by title", "", []string{"Dune", "Learning Go", "The Go Programming Language"}},
		{"title substring is case-insensitive", "?title=GO", []string{"Learning Go", "The Go Programming Language"}},
		{"author", "?author=herbert", []string{"Dune"}},
		{"year range", "?year_from=2000&year_to=2016", []string{"The Go Programming Language"}},
		{"no match", "?title=cobol", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "GET", "/api/books"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			resp := decode[booksListResponse](t, w)
			titles := make([]string, 0, len(resp.Books))
			for _, b := range resp.Books {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.titles, titles)
			assert.Equal(t, len(tt.titles), resp.Count)
		})
	}

	t.Run("invalid year filter", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/books?year_from=soon", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_GetBook(t *testing.T) {
	router, f := setupBooksRouter(t)

	w := doJSON(t, router, "GET", "/api/books/"+itoa(f.book.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, f.book.Title, decode[entities.Book](t, w).Title)

	w = doJSON(t, router, "GET", "/api/books/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "GET", "/api/books/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooksController_UpdateBook(t *testing.T) {
	router, f := setupBooksRouter(t)

	w := doJSON(t, router, "PUT", "/api/books/"+itoa(f.book.ID), bookInput("The Go Programming Language", "Donovan & Kernighan", 2015))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Donovan & Kernighan", decode[entities.Book](t, w).Author)
	assert.Equal(t, []string{"book_update"}, f.recorder.actions())

	w = doJSON(t, router, "PUT", "/api/books/9999", bookInput("X", "Y", 2000))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBooksController_DeleteBook(t *testing.T) {
	t.Run("refuses while copies exist", func(t *testing.T) {
		router, f := setupBooksRouter(t)

		w := doJSON(t, router, "DELETE", "/api/books/"+itoa(f.book.ID), nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Empty(t, f.recorder.changes)
	})

	t.Run("deletes book without copies", func(t *testing.T) {
		router, f := setupBooksRouter(t)
		book, err := f.catalog.CreateBook(bookInput("Empty Shelf", "Nobody", 1999))
		require.NoError(t, err)

		w := doJSON(t, router, "DELETE", "/api/books/"+itoa(book.ID), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"book_delete"}, f.recorder.actions())

		w = doJSON(t, router, "GET", "/api/books/"+itoa(book.ID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
