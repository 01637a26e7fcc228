package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
)

// LoanReader defines read operations for loans.
type LoanReader interface {
	GetWithDetails(id uint) (*entities.Loan, error)
	List(f loans.Filter) ([]entities.Loan, error)
}

// LoanManager runs the loan lifecycle operations that keep copy
// availability consistent.
type LoanManager interface {
	CreateLoan(ctx context.Context, actor lending.Actor, req lending.CreateLoanRequest) (*entities.Loan, error)
	EditLoan(ctx context.Context, actor lending.Actor, loanID uint, req lending.EditLoanRequest) (*entities.Loan, error)
	ReturnLoan(ctx context.Context, actor lending.Actor, loanID uint, at time.Time) (*entities.Loan, error)
	DeleteLoan(ctx context.Context, actor lending.Actor, loanID uint) error
}

type LoansController struct {
	reader  LoanReader
	manager LoanManager
	loc     *time.Location
}

// NewLoansController creates a loans controller. Date-only input is read as
// midnight in loc, the zone the due-soon notifier counts days in; nil means
// UTC.
func NewLoansController(reader LoanReader, manager LoanManager, loc *time.Location) *LoansController {
	return &LoansController{reader: reader, manager: manager, loc: loc}
}

// loanRequest is the JSON body for creating and editing loans. Dates are
// RFC 3339 timestamps or plain YYYY-MM-DD dates (midnight in the library's
// zone).
type loanRequest struct {
	UserID     uint    `json:"user_id"`
	CopyID     uint    `json:"copy_id"`
	DueDate    string  `json:"due_date"`
	ReturnDate *string `json:"return_date"`
	Version    uint    `json:"version"`
}

// parseDate accepts RFC 3339 or YYYY-MM-DD. A plain date is midnight in loc
// and is returned in UTC.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// dates parses the request dates, responding with 400 on malformed input.
func (req loanRequest) dates(c *gin.Context, loc *time.Location) (due time.Time, returned *time.Time, ok bool) {
	due, ok = parseDate(req.DueDate, loc)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date format", Field: "due_date"})
		return time.Time{}, nil, false
	}
	if req.ReturnDate != nil && strings.TrimSpace(*req.ReturnDate) != "" {
		r, ok := parseDate(*req.ReturnDate, loc)
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date format", Field: "return_date"})
			return time.Time{}, nil, false
		}
		returned = &r
	}
	return due, returned, true
}

// ListLoans handles GET /api/loans
// Query: active=true|false, user_id
func (lc *LoansController) ListLoans(c *gin.Context) {
	userID, ok := parseOptionalQueryID(c, "user_id")
	if !ok {
		return
	}

	filter := loans.Filter{UserID: userID}
	switch c.Query("active") {
	case "":
	case "true":
		filter.ActiveOnly = true
	case "false":
		filter.ClosedOnly = true
	default:
		respondBadRequest(c, "invalid active")
		return
	}

	list, err := lc.reader.List(filter)
	if err != nil {
		respondInternalError(c, err, "list loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": list, "count": len(list)})
}

// GetLoan handles GET /api/loans/:id
func (lc *LoansController) GetLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.reader.GetWithDetails(id)
	if err != nil {
		respondAppError(c, err, "get loan")
		return
	}
	c.JSON(http.StatusOK, loan)
}

// CreateLoan handles POST /api/loans
func (lc *LoansController) CreateLoan(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	due, _, ok := req.dates(c, lc.loc)
	if !ok {
		return
	}

	loan, err := lc.manager.CreateLoan(c.Request.Context(), actorFrom(c), lending.CreateLoanRequest{
		UserID:  req.UserID,
		CopyID:  req.CopyID,
		DueDate: due,
	})
	if err != nil {
		respondAppError(c, err, "create loan")
		return
	}
	respondCreated(c, loan)
}

// UpdateLoan handles PUT /api/loans/:id. The body replaces every editable
// field; a non-zero version must match the stored loan.
func (lc *LoansController) UpdateLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	due, returned, ok := req.dates(c, lc.loc)
	if !ok {
		return
	}

	loan, err := lc.manager.EditLoan(c.Request.Context(), actorFrom(c), id, lending.EditLoanRequest{
		UserID:     req.UserID,
		CopyID:     req.CopyID,
		DueDate:    due,
		ReturnDate: returned,
		Version:    req.Version,
	})
	if err != nil {
		respondAppError(c, err, "edit loan")
		return
	}
	c.JSON(http.StatusOK, loan)
}

// ReturnLoan handles POST /api/loans/:id/return. The loan is closed now.
func (lc *LoansController) ReturnLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.manager.ReturnLoan(c.Request.Context(), actorFrom(c), id, time.Time{})
	if err != nil {
		respondAppError(c, err, "return loan")
		return
	}
	c.JSON(http.StatusOK, loan)
}

// DeleteLoan handles DELETE /api/loans/:id
func (lc *LoansController) DeleteLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := lc.manager.DeleteLoan(c.Request.Context(), actorFrom(c), id); err != nil {
		respondAppError(c, err, "delete loan")
		return
	}
	respondSuccess(c, "loan deleted")
}
