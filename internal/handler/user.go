package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/auth"
	"cabdispatch/internal/domain"
	"cabdispatch/internal/service"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRequest is the HTTP request body for user registration.
type RegisterRequest struct {
	Name  string   `json:"name"`
	Phone string   `json:"phone"`
	Roles []string `json:"roles,omitempty"`
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}

// Register handles POST /v1/users. Anyone may register; only an
// authenticated administrator may grant ADMIN.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	caller, _ := auth.ActorFrom(c)
	user, err := h.users.Register(c.Request.Context(), service.RegisterUserRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Roles: req.Roles,
	}, caller.HasRole(domain.RoleAdmin))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toUserResponse(user))
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if a.ID != id && !a.HasRole(domain.RoleAdmin) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot view another user"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}
