package handler

import (
	"context"
	"net/http"

	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	"github.com/gin-gonic/gin"
)

// ClassHandler manages classes and their enrollment.
type ClassHandler struct {
	classes Classes
}

func NewClassHandler(classes Classes) *ClassHandler {
	return &ClassHandler{classes: classes}
}

// Create godoc
// POST /classes
func (h *ClassHandler) Create(c *gin.Context) {
	var req model.CreateClassRequest
	if !bindJSON(c, &req) {
		return
	}

	class, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, class)
}

// List godoc
// GET /classes?includeInactive=
func (h *ClassHandler) List(c *gin.Context) {
	classes, err := h.classes.FindAll(c.Request.Context(), includeInactive(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, classes)
}

// Get godoc
// GET /classes/:id
func (h *ClassHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	class, err := h.classes.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, class)
}

// Update godoc
// PATCH /classes/:id
func (h *ClassHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateClassRequest
	if !bindJSON(c, &req) {
		return
	}

	class, err := h.classes.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, class)
}

// Activate godoc
// PATCH /classes/:id/activate
func (h *ClassHandler) Activate(c *gin.Context) {
	h.transition(c, h.classes.Activate)
}

// Deactivate godoc
// PATCH /classes/:id/deactivate
func (h *ClassHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.classes.Deactivate)
}

// Enroll godoc
// POST /classes/:id/enroll/:studentId
func (h *ClassHandler) Enroll(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	studentID, ok := paramID(c, "studentId")
	if !ok {
		return
	}

	class, err := h.classes.EnrollStudent(c.Request.Context(), id, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, class)
}

// Unenroll godoc
// DELETE /classes/:id/enroll/:studentId
func (h *ClassHandler) Unenroll(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	studentID, ok := paramID(c, "studentId")
	if !ok {
		return
	}

	if err := h.classes.UnenrollStudent(c.Request.Context(), id, studentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete godoc
// DELETE /classes/:id
func (h *ClassHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.classes.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClassHandler) transition(c *gin.Context, fn func(ctx context.Context, id int) (*model.Class, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	class, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, class)
}
