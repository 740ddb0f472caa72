package model

import "time"

// Role is a user capability. A user may hold several roles at once.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Belt is the rank label of a practitioner.
type Belt string

const (
	BeltWhite  Belt = "White"
	BeltYellow Belt = "Yellow"
	BeltOrange Belt = "Orange"
	BeltGreen  Belt = "Green"
	BeltBlue   Belt = "Blue"
	BeltPurple Belt = "Purple"
	BeltBrown  Belt = "Brown"
	BeltBlack  Belt = "Black"
)

// AllBelts lists belts in rank order.
var AllBelts = []Belt{BeltWhite, BeltYellow, BeltOrange, BeltGreen, BeltBlue, BeltPurple, BeltBrown, BeltBlack}

// Valid reports whether b is a known belt.
func (b Belt) Valid() bool {
	for _, known := range AllBelts {
		if b == known {
			return true
		}
	}
	return false
}

// User is a student, a teacher, or both.
type User struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Registry      *string   `json:"registry"`
	PasswordHash  *string   `json:"-"`
	Belt          Belt      `json:"belt"`
	Birthday      *string   `json:"birthday"`
	TrainingSince *string   `json:"trainingSince"`
	IsActive      bool      `json:"isActive"`
	Roles         []Role    `json:"roles"`
	InstructorID  *int      `json:"instructorId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasRole reports whether the user holds role r.
func (u *User) HasRole(r Role) bool {
	for _, role := range u.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// UserPatch carries a partial user update. Nil pointers are left untouched;
// Optional fields distinguish "absent" from an explicit null.
type UserPatch struct {
	Name          *string
	Registry      Optional[string]
	Password      *string
	Belt          *Belt
	Birthday      Optional[string]
	TrainingSince Optional[string]
	IsActive      *bool
	InstructorID  Optional[int]
}

// CreateUserRequest is the payload for registering a user.
type CreateUserRequest struct {
	Name          string  `json:"name" binding:"required,min=2,max=100"`
	Registry      *string `json:"registry" binding:"omitempty,min=3,max=30"`
	Password      *string `json:"password" binding:"omitempty,min=6,max=128"`
	Belt          Belt    `json:"belt" binding:"omitempty,belt"`
	Birthday      *string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	TrainingSince *string `json:"trainingSince" binding:"omitempty,datetime=2006-01-02"`
	InstructorID  *int    `json:"instructorId" binding:"omitempty,min=1"`
}

// UpdateStudentRequest is the payload for a partial student update.
type UpdateStudentRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=2,max=100"`
	Registry      Optional[string] `json:"registry" binding:"omitempty,min=3,max=30"`
	Password      *string          `json:"password" binding:"omitempty,min=6,max=128"`
	Belt          *Belt            `json:"belt" binding:"omitempty,belt"`
	Birthday      Optional[string] `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	TrainingSince Optional[string] `json:"trainingSince" binding:"omitempty,datetime=2006-01-02"`
	IsActive      *bool            `json:"isActive"`
	InstructorID  Optional[int]    `json:"instructorId" binding:"omitempty,min=1"`
}

// Patch converts the request into a UserPatch.
func (r UpdateStudentRequest) Patch() UserPatch {
	return UserPatch{
		Name:          r.Name,
		Registry:      r.Registry,
		Password:      r.Password,
		Belt:          r.Belt,
		Birthday:      r.Birthday,
		TrainingSince: r.TrainingSince,
		IsActive:      r.IsActive,
		InstructorID:  r.InstructorID,
	}
}

// TeacherLoginRequest is the payload for teacher authentication.
type TeacherLoginRequest struct {
	Registry string `json:"registry" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// TeacherLoginResponse is returned after a successful teacher login.
type TeacherLoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}
