package handler

import (
	"context"
	"net/http"

	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	"github.com/gin-gonic/gin"
)

// ClassSessionHandler manages dated class sessions and their lifecycle.
type ClassSessionHandler struct {
	sessions ClassSessions
}

func NewClassSessionHandler(sessions ClassSessions) *ClassSessionHandler {
	return &ClassSessionHandler{sessions: sessions}
}

// Create godoc
// POST /class-sessions
func (h *ClassSessionHandler) Create(c *gin.Context) {
	var req model.CreateClassSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, session)
}

// List godoc
// GET /class-sessions?classId=&teacherId=&startDate=&endDate=&includeInactive=
func (h *ClassSessionHandler) List(c *gin.Context) {
	var q model.ClassSessionListQuery
	if !bindQuery(c, &q) {
		return
	}

	sessions, err := h.sessions.FindAll(c.Request.Context(), model.ClassSessionFilter{
		ClassID:         q.ClassID,
		TeacherID:       q.TeacherID,
		StartDate:       q.StartDate,
		EndDate:         q.EndDate,
		IncludeInactive: q.IncludeInactive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

// ByClass godoc
// GET /class-sessions/by-class/:classId
func (h *ClassSessionHandler) ByClass(c *gin.Context) {
	classID, ok := paramID(c, "classId")
	if !ok {
		return
	}

	sessions, err := h.sessions.FindByClass(c.Request.Context(), classID, includeInactive(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

// ByTeacher godoc
// GET /class-sessions/by-teacher/:teacherId
func (h *ClassSessionHandler) ByTeacher(c *gin.Context) {
	teacherID, ok := paramID(c, "teacherId")
	if !ok {
		return
	}

	sessions, err := h.sessions.FindByTeacher(c.Request.Context(), teacherID, includeInactive(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

// ByDateRange godoc
// GET /class-sessions/by-date-range?startDate=&endDate=
func (h *ClassSessionHandler) ByDateRange(c *gin.Context) {
	var q model.DateRangeQuery
	if !bindQuery(c, &q) {
		return
	}

	sessions, err := h.sessions.FindByDateRange(c.Request.Context(), q.StartDate, q.EndDate, q.IncludeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

// Get godoc
// GET /class-sessions/:id
func (h *ClassSessionHandler) Get(c *gin.Context) {
	h.byID(c, h.sessions.FindOne)
}

// Update godoc
// PATCH /class-sessions/:id
func (h *ClassSessionHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateClassSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.sessions.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

// Activate godoc
// PATCH /class-sessions/:id/activate
func (h *ClassSessionHandler) Activate(c *gin.Context) {
	h.byID(c, h.sessions.Activate)
}

// Deactivate godoc
// PATCH /class-sessions/:id/deactivate
func (h *ClassSessionHandler) Deactivate(c *gin.Context) {
	h.byID(c, h.sessions.Deactivate)
}

// Start godoc
// PATCH /class-sessions/:id/start
// Stamps startTime with the current local time.
func (h *ClassSessionHandler) Start(c *gin.Context) {
	h.byID(c, h.sessions.Start)
}

// End godoc
// PATCH /class-sessions/:id/end
// Stamps endTime; the session must have been started.
func (h *ClassSessionHandler) End(c *gin.Context) {
	h.byID(c, h.sessions.End)
}

// Delete godoc
// DELETE /class-sessions/:id
// Deleting a session also deletes its attendances.
func (h *ClassSessionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.sessions.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClassSessionHandler) byID(c *gin.Context, fn func(ctx context.Context, id int) (*model.ClassSession, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	session, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}
