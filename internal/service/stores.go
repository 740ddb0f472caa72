package service

//go:generate mockgen -source=stores.go -destination=mocks/mocks.go -package=mocks EventPublisher

import (
	"context"
	"errors"

	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/jackc/pgx/v5"
)

// UserStore persists users. Implemented by repository.UserRepository.
type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByRegistry(ctx context.Context, registry string) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	ListStudentsPaginated(ctx context.Context, includeInactive bool, limit, offset int) ([]model.User, int, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	BulkCreate(ctx context.Context, users []*model.User) ([]int, error)
}

// ClassStore persists classes and enrollment. Implemented by repository.ClassRepository.
type ClassStore interface {
	GetByID(ctx context.Context, id int) (*model.Class, error)
	List(ctx context.Context, teacherID *int, includeInactive bool) ([]model.Class, error)
	Create(ctx context.Context, c *model.Class) error
	Update(ctx context.Context, c *model.Class) error
	Delete(ctx context.Context, id int) error
	AddStudent(ctx context.Context, classID, studentID int) error
	RemoveStudent(ctx context.Context, classID, studentID int) (bool, error)
	IsEnrolled(ctx context.Context, classID, studentID int) (bool, error)
}

// ClassSessionStore persists sessions. Implemented by repository.ClassSessionRepository.
type ClassSessionStore interface {
	GetByID(ctx context.Context, id int) (*model.ClassSession, error)
	GetByClassAndDate(ctx context.Context, classID int, date string) (*model.ClassSession, error)
	List(ctx context.Context, f model.ClassSessionFilter) ([]model.ClassSession, error)
	ExistsForClass(ctx context.Context, classID int) (bool, error)
	Create(ctx context.Context, s *model.ClassSession) error
	Update(ctx context.Context, s *model.ClassSession) error
	Delete(ctx context.Context, id int) error
}

// AttendanceStore persists attendances. Implemented by repository.AttendanceRepository.
type AttendanceStore interface {
	GetByID(ctx context.Context, id int) (*model.Attendance, error)
	ExistsForStudent(ctx context.Context, sessionID, studentID int) (bool, error)
	List(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error)
	ListBySession(ctx context.Context, sessionID int) ([]model.Attendance, error)
	ListByStudentPaginated(ctx context.Context, studentID, limit, offset int) ([]model.Attendance, int, error)
	Create(ctx context.Context, a *model.Attendance) error
	BulkCreate(ctx context.Context, list []model.Attendance) ([]model.Attendance, error)
	Update(ctx context.Context, a *model.Attendance) error
	Delete(ctx context.Context, id int) error
}

// Transactor runs fn inside one transaction. Implemented by database.TxManager.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher broadcasts attendance changes to live subscribers.
type EventPublisher interface {
	PublishAttendance(ctx context.Context, evt model.AttendanceEvent) error
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
