package handler

import (
	"net/http"

	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	"github.com/gin-gonic/gin"
)

// StudentHandler manages student accounts.
type StudentHandler struct {
	users Users
}

func NewStudentHandler(users Users) *StudentHandler {
	return &StudentHandler{users: users}
}

// Create godoc
// POST /students
func (h *StudentHandler) Create(c *gin.Context) {
	var req model.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	student, err := h.users.Create(c.Request.Context(), req, []model.Role{model.RoleStudent})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, student)
}

// List godoc
// GET /students?page=&limit=&includeInactive=
func (h *StudentHandler) List(c *gin.Context) {
	var q model.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	students, meta, err := h.users.FindStudents(c.Request.Context(), q.Page, q.Limit, includeInactive(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, students, meta)
}

// Get godoc
// GET /students/:id
func (h *StudentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	student, err := h.users.GetStudent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, student)
}

// Update godoc
// PATCH /students/:id
func (h *StudentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetStudent(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	student, err := h.users.Update(ctx, id, req.Patch())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, student)
}
