package model

import "time"

// SessionState is derived from the start/end times of a session.
type SessionState string

const (
	SessionScheduled SessionState = "scheduled"
	SessionStarted   SessionState = "started"
	SessionEnded     SessionState = "ended"
)

// ClassSession is one dated occurrence of a class.
type ClassSession struct {
	ID        int       `json:"id"`
	Date      string    `json:"date"`
	StartTime *string   `json:"startTime"`
	EndTime   *string   `json:"endTime"`
	Notes     *string   `json:"notes"`
	IsActive  bool      `json:"isActive"`
	ClassID   int       `json:"classId"`
	TeacherID int       `json:"teacherId"`
	Class     *Class    `json:"class,omitempty"`
	Teacher   *User     `json:"teacher,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// State returns the lifecycle state of the session.
func (s *ClassSession) State() SessionState {
	switch {
	case s.EndTime != nil:
		return SessionEnded
	case s.StartTime != nil:
		return SessionStarted
	default:
		return SessionScheduled
	}
}

// ClassSessionFilter narrows session listings. Nil fields are not applied.
type ClassSessionFilter struct {
	ClassID         *int
	TeacherID       *int
	StartDate       *string
	EndDate         *string
	IncludeInactive bool
}

// CreateClassSessionRequest is the payload for scheduling a session.
type CreateClassSessionRequest struct {
	ClassID   int     `json:"classId" binding:"required,min=1"`
	TeacherID int     `json:"teacherId" binding:"required,min=1"`
	Date      string  `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime *string `json:"startTime" binding:"omitempty,timeofday"`
	EndTime   *string `json:"endTime" binding:"omitempty,timeofday"`
	Notes     *string `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateClassSessionRequest is the payload for a partial session update.
type UpdateClassSessionRequest struct {
	ClassID   *int             `json:"classId" binding:"omitempty,min=1"`
	TeacherID *int             `json:"teacherId" binding:"omitempty,min=1"`
	Date      *string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
	StartTime Optional[string] `json:"startTime" binding:"omitempty,timeofday"`
	EndTime   Optional[string] `json:"endTime" binding:"omitempty,timeofday"`
	Notes     Optional[string] `json:"notes" binding:"omitempty,max=1000"`
	IsActive  *bool            `json:"isActive"`
}

// ClassSessionListQuery binds the query string of session listings.
type ClassSessionListQuery struct {
	ClassID         *int    `form:"classId" binding:"omitempty,min=1"`
	TeacherID       *int    `form:"teacherId" binding:"omitempty,min=1"`
	StartDate       *string `form:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate         *string `form:"endDate" binding:"omitempty,datetime=2006-01-02"`
	IncludeInactive bool    `form:"includeInactive"`
}

// DateRangeQuery binds GET /class-sessions/by-date-range.
type DateRangeQuery struct {
	StartDate       string `form:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate         string `form:"endDate" binding:"required,datetime=2006-01-02"`
	IncludeInactive bool   `form:"includeInactive"`
}
