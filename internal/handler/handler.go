package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/FrancoisMichell/seirin-sub000/internal/apperror"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	"github.com/FrancoisMichell/seirin-sub000/internal/service"
	"github.com/FrancoisMichell/seirin-sub000/internal/validator"
	"github.com/gin-gonic/gin"
)

// Authenticator is the subset of service.AuthService used by AuthHandler.
type Authenticator interface {
	Login(ctx context.Context, registry, password string) (*model.TeacherLoginResponse, error)
	Logout(ctx context.Context, claims *service.Claims) error
}

// Users is the subset of service.UserService used by handlers.
type Users interface {
	Create(ctx context.Context, req model.CreateUserRequest, roles []model.Role) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindStudents(ctx context.Context, page, limit int, includeInactive bool) ([]model.User, model.PageMeta, error)
	GetStudent(ctx context.Context, id int) (*model.User, error)
	Update(ctx context.Context, id int, patch model.UserPatch) (*model.User, error)
}

// Classes is the subset of service.ClassService used by ClassHandler.
type Classes interface {
	Create(ctx context.Context, req model.CreateClassRequest) (*model.Class, error)
	FindAll(ctx context.Context, includeInactive bool) ([]model.Class, error)
	FindOne(ctx context.Context, id int) (*model.Class, error)
	Update(ctx context.Context, id int, req model.UpdateClassRequest) (*model.Class, error)
	Activate(ctx context.Context, id int) (*model.Class, error)
	Deactivate(ctx context.Context, id int) (*model.Class, error)
	EnrollStudent(ctx context.Context, classID, studentID int) (*model.Class, error)
	UnenrollStudent(ctx context.Context, classID, studentID int) error
	Remove(ctx context.Context, id int) error
}

// ClassSessions is the subset of service.ClassSessionService used by ClassSessionHandler.
type ClassSessions interface {
	Create(ctx context.Context, req model.CreateClassSessionRequest) (*model.ClassSession, error)
	FindOne(ctx context.Context, id int) (*model.ClassSession, error)
	FindAll(ctx context.Context, f model.ClassSessionFilter) ([]model.ClassSession, error)
	FindByClass(ctx context.Context, classID int, includeInactive bool) ([]model.ClassSession, error)
	FindByTeacher(ctx context.Context, teacherID int, includeInactive bool) ([]model.ClassSession, error)
	FindByDateRange(ctx context.Context, start, end string, includeInactive bool) ([]model.ClassSession, error)
	Update(ctx context.Context, id int, req model.UpdateClassSessionRequest) (*model.ClassSession, error)
	Activate(ctx context.Context, id int) (*model.ClassSession, error)
	Deactivate(ctx context.Context, id int) (*model.ClassSession, error)
	Start(ctx context.Context, id int) (*model.ClassSession, error)
	End(ctx context.Context, id int) (*model.ClassSession, error)
	Remove(ctx context.Context, id int) error
}

// Attendances is the subset of service.AttendanceService used by handlers.
type Attendances interface {
	Create(ctx context.Context, req model.CreateAttendanceRequest) (*model.Attendance, error)
	BulkCreate(ctx context.Context, sessionID int) ([]model.Attendance, error)
	FindAll(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error)
	FindOne(ctx context.Context, id int) (*model.Attendance, error)
	FindBySession(ctx context.Context, sessionID int) ([]model.Attendance, error)
	FindByStudent(ctx context.Context, studentID, page, limit int) ([]model.Attendance, model.PageMeta, error)
	Update(ctx context.Context, id int, req model.UpdateAttendanceRequest) (*model.Attendance, error)
	MarkPresent(ctx context.Context, id int) (*model.Attendance, error)
	MarkLate(ctx context.Context, id int) (*model.Attendance, error)
	MarkAbsent(ctx context.Context, id int) (*model.Attendance, error)
	MarkExcused(ctx context.Context, id int) (*model.Attendance, error)
	Remove(ctx context.Context, id int) error
}

var (
	_ Authenticator = (*service.AuthService)(nil)
	_ Users         = (*service.UserService)(nil)
	_ Classes       = (*service.ClassService)(nil)
	_ ClassSessions = (*service.ClassSessionService)(nil)
	_ Attendances   = (*service.AttendanceService)(nil)
)

// respondError maps a service error onto the HTTP error envelope.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	switch appErr.Kind {
	case apperror.KindNotFound:
		response.FailWithMessage(c, http.StatusNotFound, response.ErrNotFound, appErr.Message)
	case apperror.KindConflict:
		response.FailWithMessage(c, http.StatusConflict, response.ErrConflict, appErr.Message)
	case apperror.KindUnauthorized:
		response.FailWithMessage(c, http.StatusUnauthorized, response.ErrInvalidCredentials, appErr.Message)
	case apperror.KindForbidden:
		response.FailWithMessage(c, http.StatusForbidden, response.ErrForbidden, appErr.Message)
	default:
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrBadRequest, appErr.Message)
	}
}

// paramID parses a positive integer path parameter, answering 400 on failure.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// bindJSON binds the body and answers 400 on failure: INVALID_PAYLOAD for
// undecodable JSON, VALIDATION_ERROR otherwise.
func bindJSON(c *gin.Context, dst interface{}) bool {
	fields := validator.Bind(c, dst)
	if fields == nil {
		return true
	}
	code := response.ErrValidation
	if _, malformed := fields["detail"]; malformed {
		code = response.ErrInvalidPayload
	}
	response.FailWithFields(c, http.StatusBadRequest, code, fields)
	return false
}

// bindQuery binds the query string and answers 400 VALIDATION_ERROR on failure.
func bindQuery(c *gin.Context, dst interface{}) bool {
	if fields := validator.BindQuery(c, dst); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return false
	}
	return true
}

// includeInactive reads the includeInactive query flag.
func includeInactive(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("includeInactive"))
	return v
}
