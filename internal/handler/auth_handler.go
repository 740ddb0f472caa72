package handler

import (
	"net/http"

	"github.com/FrancoisMichell/seirin-sub000/internal/middleware"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles teacher authentication endpoints.
type AuthHandler struct {
	auth  Authenticator
	users Users
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, users Users) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Login godoc
// POST /teacher/login
// Validates registry + password of an active teacher, returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.TeacherLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Registry, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Me godoc
// GET /teacher/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	u, err := h.users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// Logout godoc
// POST /teacher/logout
// Revokes the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
