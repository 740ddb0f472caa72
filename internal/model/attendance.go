package model

import "time"

// AttendanceStatus is the outcome recorded for a student in a session.
type AttendanceStatus string

const (
	AttendancePending AttendanceStatus = "pending"
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid reports whether s is a supported status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePending, AttendancePresent, AttendanceLate, AttendanceAbsent, AttendanceExcused:
		return true
	default:
		return false
	}
}

// IsCheckedIn reports whether the status carries a check-in time.
func (s AttendanceStatus) IsCheckedIn() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// Attendance is the recorded outcome of one student in one session.
// IsEnrolledClass snapshots class membership at creation time.
type Attendance struct {
	ID              int              `json:"id"`
	SessionID       int              `json:"sessionId"`
	StudentID       int              `json:"studentId"`
	IsEnrolledClass bool             `json:"isEnrolledClass"`
	Status          AttendanceStatus `json:"status"`
	CheckedInAt     *time.Time       `json:"checkedInAt"`
	Notes           *string          `json:"notes"`
	Session         *ClassSession    `json:"session,omitempty"`
	Student         *User            `json:"student,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// AttendanceFilter narrows attendance listings. Nil fields are left out of the query.
type AttendanceFilter struct {
	SessionID       *int              `form:"sessionId" binding:"omitempty,min=1"`
	StudentID       *int              `form:"studentId" binding:"omitempty,min=1"`
	Status          *AttendanceStatus `form:"status" binding:"omitempty,attendancestatus"`
	IsEnrolledClass *bool             `form:"isEnrolledClass"`
}

// CreateAttendanceRequest is the payload for recording a single attendance.
type CreateAttendanceRequest struct {
	SessionID int               `json:"sessionId" binding:"required,min=1"`
	StudentID int               `json:"studentId" binding:"required,min=1"`
	Status    *AttendanceStatus `json:"status" binding:"omitempty,attendancestatus"`
	Notes     *string           `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateAttendanceRequest is the payload for a partial attendance update.
type UpdateAttendanceRequest struct {
	Status *AttendanceStatus `json:"status" binding:"omitempty,attendancestatus"`
	Notes  Optional[string]  `json:"notes" binding:"omitempty,max=1000"`
}

// PageQuery binds page/limit query parameters.
type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPageMeta computes totalPages as ceil(total/limit).
func NewPageMeta(total, page, limit int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PageMeta{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// AttendanceEventType names a change published on the live board.
type AttendanceEventType string

const (
	AttendanceCreated     AttendanceEventType = "attendance.created"
	AttendanceBulkCreated AttendanceEventType = "attendance.bulk_created"
	AttendanceUpdated     AttendanceEventType = "attendance.updated"
	AttendanceDeleted     AttendanceEventType = "attendance.deleted"
)

// AttendanceEvent is published whenever a session's attendance changes.
type AttendanceEvent struct {
	Type         AttendanceEventType `json:"type"`
	SessionID    int                 `json:"sessionId"`
	AttendanceID int                 `json:"attendanceId,omitempty"`
	Attendances  []Attendance        `json:"attendances,omitempty"`
	OccurredAt   time.Time           `json:"occurredAt"`
}
