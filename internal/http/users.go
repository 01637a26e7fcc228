package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
)

// UserManager is the administrator view of user accounts.
type UserManager interface {
	ListUsers(role entities.UserRole) ([]entities.User, error)
	GetUserByID(id uint) (*entities.User, error)
	CreateUser(in auth.NewUser) (*entities.User, error)
	UpdateUser(id uint, in auth.UserUpdate) (*entities.User, error)
	DeleteUser(id uint) error
}

// UsersController handles administrator user management.
type UsersController struct {
	users    UserManager
	recorder ChangeRecorder
}

// NewUsersController creates a new UsersController.
func NewUsersController(users UserManager, recorder ChangeRecorder) *UsersController {
	return &UsersController{users: users, recorder: recorder}
}

// ListUsers handles GET /api/users?role=client
func (uc *UsersController) ListUsers(c *gin.Context) {
	list, err := uc.users.ListUsers(entities.UserRole(c.Query("role")))
	if err != nil {
		respondAppError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
}

// GetUser handles GET /api/users/:id
func (uc *UsersController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := uc.users.GetUserByID(id)
	if err != nil {
		respondAppError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser handles POST /api/users. Administrators may create any role.
func (uc *UsersController) CreateUser(c *gin.Context) {
	var in auth.NewUser
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := uc.users.CreateUser(in)
	if err != nil {
		respondAppError(c, err, "create user")
		return
	}
	recordChange(uc.recorder, c, entities.AuditEventUser, "user_create", "user", user.ID, "Created "+string(user.Role)+" "+user.Email)
	respondCreated(c, user)
}

// UpdateUser handles PUT /api/users/:id
func (uc *UsersController) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in auth.UserUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := uc.users.UpdateUser(id, in)
	if err != nil {
		respondAppError(c, err, "update user")
		return
	}
	recordChange(uc.recorder, c, entities.AuditEventUser, "user_update", "user", user.ID, "Updated user "+user.Email)
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /api/users/:id. Users referenced by loans or
// notifications are kept and the request fails with 409.
func (uc *UsersController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id == auth.GetUserID(c) {
		respondBadRequest(c, "cannot delete your own account")
		return
	}

	if err := uc.users.DeleteUser(id); err != nil {
		respondAppError(c, err, "delete user")
		return
	}
	recordChange(uc.recorder, c, entities.AuditEventUser, "user_delete", "user", id, "Deleted user "+strconv.FormatUint(uint64(id), 10))
	respondSuccess(c, "user deleted")
}
