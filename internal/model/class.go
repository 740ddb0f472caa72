package model

import "time"

// Weekdays accepted in a class schedule.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Class is a recurring training class owned by one teacher.
type Class struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	DaysOfWeek       []string  `json:"daysOfWeek"`
	StartTime        string    `json:"startTime"`
	Duration         int       `json:"duration"`
	IsActive         bool      `json:"isActive"`
	TeacherID        int       `json:"teacherId"`
	Teacher          *User     `json:"teacher,omitempty"`
	EnrolledStudents []User    `json:"enrolledStudents"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasStudent reports whether studentID is in the enrolled set.
func (c *Class) HasStudent(studentID int) bool {
	for _, s := range c.EnrolledStudents {
		if s.ID == studentID {
			return true
		}
	}
	return false
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name       string   `json:"name" binding:"required,min=2,max=100"`
	DaysOfWeek []string `json:"daysOfWeek" binding:"required,min=1,dive,weekday"`
	StartTime  string   `json:"startTime" binding:"required,timeofday"`
	Duration   int      `json:"duration" binding:"required,min=1,max=600"`
	TeacherID  int      `json:"teacherId" binding:"required,min=1"`
	IsActive   *bool    `json:"isActive"`
}

// UpdateClassRequest is the payload for a partial class update.
type UpdateClassRequest struct {
	Name       *string  `json:"name" binding:"omitempty,min=2,max=100"`
	DaysOfWeek []string `json:"daysOfWeek" binding:"omitempty,min=1,dive,weekday"`
	StartTime  *string  `json:"startTime" binding:"omitempty,timeofday"`
	Duration   *int     `json:"duration" binding:"omitempty,min=1,max=600"`
	TeacherID  *int     `json:"teacherId" binding:"omitempty,min=1"`
	IsActive   *bool    `json:"isActive"`
}
