package handler

import (
	"context"
	"net/http"

	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	"github.com/gin-gonic/gin"
)

// AttendanceHandler records and queries attendance.
type AttendanceHandler struct {
	attendances Attendances
}

func NewAttendanceHandler(attendances Attendances) *AttendanceHandler {
	return &AttendanceHandler{attendances: attendances}
}

// Create godoc
// POST /attendances
func (h *AttendanceHandler) Create(c *gin.Context) {
	var req model.CreateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.attendances.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, a)
}

// BulkCreate godoc
// POST /attendances/bulk/:sessionId
// Creates a pending attendance for every enrolled student lacking one.
// Returns only the rows created by this call.
func (h *AttendanceHandler) BulkCreate(c *gin.Context) {
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return
	}

	created, err := h.attendances.BulkCreate(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, created)
}

// List godoc
// GET /attendances?sessionId=&studentId=&status=&isEnrolledClass=
func (h *AttendanceHandler) List(c *gin.Context) {
	var f model.AttendanceFilter
	if !bindQuery(c, &f) {
		return
	}

	list, err := h.attendances.FindAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// BySession godoc
// GET /attendances/session/:sessionId
func (h *AttendanceHandler) BySession(c *gin.Context) {
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return
	}

	list, err := h.attendances.FindBySession(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// ByStudent godoc
// GET /attendances/student/:studentId?page=&limit=
func (h *AttendanceHandler) ByStudent(c *gin.Context) {
	studentID, ok := paramID(c, "studentId")
	if !ok {
		return
	}

	var q model.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	list, meta, err := h.attendances.FindByStudent(c.Request.Context(), studentID, q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, list, meta)
}

// Get godoc
// GET /attendances/:id
func (h *AttendanceHandler) Get(c *gin.Context) {
	h.apply(c, h.attendances.FindOne)
}

// Update godoc
// PATCH /attendances/:id
func (h *AttendanceHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.attendances.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, a)
}

// MarkPresent godoc
// PATCH /attendances/:id/mark-present
func (h *AttendanceHandler) MarkPresent(c *gin.Context) {
	h.apply(c, h.attendances.MarkPresent)
}

// MarkLate godoc
// PATCH /attendances/:id/mark-late
func (h *AttendanceHandler) MarkLate(c *gin.Context) {
	h.apply(c, h.attendances.MarkLate)
}

// MarkAbsent godoc
// PATCH /attendances/:id/mark-absent
func (h *AttendanceHandler) MarkAbsent(c *gin.Context) {
	h.apply(c, h.attendances.MarkAbsent)
}

// MarkExcused godoc
// PATCH /attendances/:id/mark-excused
func (h *AttendanceHandler) MarkExcused(c *gin.Context) {
	h.apply(c, h.attendances.MarkExcused)
}

// Delete godoc
// DELETE /attendances/:id
func (h *AttendanceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.attendances.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AttendanceHandler) apply(c *gin.Context, fn func(ctx context.Context, id int) (*model.Attendance, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	a, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, a)
}
