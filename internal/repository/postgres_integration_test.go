//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/repository"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type PostgresSuite struct {
	suite.Suite
	container   testcontainers.Container
	pool        *pgxpool.Pool
	tx          *database.TxManager
	users       *repository.UserRepository
	classes     *repository.ClassRepository
	sessions    *repository.ClassSessionRepository
	attendances *repository.AttendanceRepository
	teacher     *model.User
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("seirin"),
		tcpostgres.WithUsername("seirin"),
		tcpostgres.WithPassword("seirin"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	m, err := migrate.New("file://../../migrations", dsn)
	s.Require().NoError(err)
	s.Require().NoError(m.Up())
	srcErr, dbErr := m.Close()
	s.Require().NoError(srcErr)
	s.Require().NoError(dbErr)

	s.pool, err = pgxpool.New(ctx, dsn)
	s.Require().NoError(err)

	s.tx = database.NewTxManager(s.pool)
	s.users = repository.NewUserRepository(s.pool)
	s.classes = repository.NewClassRepository(s.pool)
	s.sessions = repository.NewClassSessionRepository(s.pool)
	s.attendances = repository.NewAttendanceRepository(s.pool)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE attendances, class_sessions, class_students, classes, user_roles, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
	s.teacher = s.createUser("Sensei", "T-001", model.RoleTeacher)
}

func (s *PostgresSuite) createUser(name, registry string, roles ...model.Role) *model.User {
	u := &model.User{Name: name, Belt: model.BeltWhite, IsActive: true, Roles: roles}
	if registry != "" {
		u.Registry = &registry
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *PostgresSuite) createClass() *model.Class {
	c := &model.Class{
		Name:       "Adults",
		DaysOfWeek: []string{"monday", "thursday"},
		StartTime:  "19:30",
		Duration:   90,
		IsActive:   true,
		TeacherID:  s.teacher.ID,
	}
	s.Require().NoError(s.classes.Create(context.Background(), c))
	return c
}

func (s *PostgresSuite) createSession(classID int, date string) *model.ClassSession {
	cs := &model.ClassSession{Date: date, IsActive: true, ClassID: classID, TeacherID: s.teacher.ID}
	s.Require().NoError(s.sessions.Create(context.Background(), cs))
	return cs
}

func (s *PostgresSuite) TestUserRolesAndRegistry() {
	ctx := context.Background()
	birthday := "2001-05-17"
	u := &model.User{Name: "Aiko", Belt: model.BeltGreen, Birthday: &birthday, IsActive: true,
		Roles: []model.Role{model.RoleStudent, model.RoleTeacher}}
	s.Require().NoError(s.users.Create(ctx, u))

	got, err := s.users.GetByID(ctx, u.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]model.Role{model.RoleStudent, model.RoleTeacher}, got.Roles)
	s.Equal(model.BeltGreen, got.Belt)
	s.Require().NotNil(got.Birthday)
	s.Equal(birthday, *got.Birthday)

	_, err = s.users.GetByRegistry(ctx, "missing")
	s.True(errors.Is(err, pgx.ErrNoRows))

	dup := &model.User{Name: "Copy", Registry: s.teacher.Registry, Belt: model.BeltWhite, Roles: []model.Role{model.RoleStudent}}
	err = s.users.Create(ctx, dup)
	s.True(database.IsPgError(err, "23505"))
}

func (s *PostgresSuite) TestBulkCreateSkipsTakenRegistries() {
	ctx := context.Background()
	taken, fresh := "T-001", "S-100"
	users := []*model.User{
		{Name: "Dup", Registry: &taken, Belt: model.BeltWhite, IsActive: true, Roles: []model.Role{model.RoleStudent}},
		{Name: "New", Registry: &fresh, Belt: model.BeltWhite, IsActive: true, Roles: []model.Role{model.RoleStudent}},
		{Name: "NoRegistry", Belt: model.BeltWhite, IsActive: true, Roles: []model.Role{model.RoleStudent}},
	}

	var skipped []int
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		skipped, err = s.users.BulkCreate(ctx, users)
		return err
	})
	s.Require().NoError(err)
	s.Equal([]int{0}, skipped)

	students, total, err := s.users.ListStudentsPaginated(ctx, false, 10, 0)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(students, 2)
}

func (s *PostgresSuite) TestClassEnrollment() {
	ctx := context.Background()
	c := s.createClass()
	student := s.createUser("Kenji", "S-001", model.RoleStudent)

	s.Require().NoError(s.classes.AddStudent(ctx, c.ID, student.ID))
	err := s.classes.AddStudent(ctx, c.ID, student.ID)
	s.True(database.IsPgError(err, "23505"))

	got, err := s.classes.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("19:30:00", got.StartTime)
	s.Equal([]string{"monday", "thursday"}, got.DaysOfWeek)
	s.Require().Len(got.EnrolledStudents, 1)
	s.Equal(student.ID, got.EnrolledStudents[0].ID)
	s.Require().NotNil(got.Teacher)
	s.Equal(s.teacher.ID, got.Teacher.ID)

	removed, err := s.classes.RemoveStudent(ctx, c.ID, student.ID)
	s.Require().NoError(err)
	s.True(removed)
	removed, err = s.classes.RemoveStudent(ctx, c.ID, student.ID)
	s.Require().NoError(err)
	s.False(removed)

	got, err = s.classes.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.NotNil(got.EnrolledStudents)
	s.Empty(got.EnrolledStudents)
}

func (s *PostgresSuite) TestSessionUniquePerClassAndDate() {
	ctx := context.Background()
	c := s.createClass()
	first := s.createSession(c.ID, "2026-03-02")

	dup := &model.ClassSession{Date: "2026-03-02", IsActive: true, ClassID: c.ID, TeacherID: s.teacher.ID}
	s.True(database.IsPgError(s.sessions.Create(ctx, dup), "23505"))

	start := "18:05:10"
	first.StartTime = &start
	s.Require().NoError(s.sessions.Update(ctx, first))

	got, err := s.sessions.GetByClassAndDate(ctx, c.ID, "2026-03-02")
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)
	s.Equal("2026-03-02", got.Date)
	s.Require().NotNil(got.StartTime)
	s.Equal(start, *got.StartTime)
	s.Nil(got.EndTime)

	from, to := "2026-03-01", "2026-03-31"
	list, err := s.sessions.List(ctx, model.ClassSessionFilter{StartDate: &from, EndDate: &to})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *PostgresSuite) TestAttendanceBulkAndCascade() {
	ctx := context.Background()
	c := s.createClass()
	a := s.createUser("A", "S-001", model.RoleStudent)
	b := s.createUser("B", "S-002", model.RoleStudent)
	cs := s.createSession(c.ID, "2026-03-02")

	rows := []model.Attendance{
		{SessionID: cs.ID, StudentID: a.ID, IsEnrolledClass: true, Status: model.AttendancePending},
		{SessionID: cs.ID, StudentID: b.ID, IsEnrolledClass: true, Status: model.AttendancePending},
	}
	inserted, err := s.attendances.BulkCreate(ctx, rows)
	s.Require().NoError(err)
	s.Len(inserted, 2)

	inserted, err = s.attendances.BulkCreate(ctx, rows)
	s.Require().NoError(err)
	s.Empty(inserted)

	exists, err := s.attendances.ExistsForStudent(ctx, cs.ID, a.ID)
	s.Require().NoError(err)
	s.True(exists)

	pending := model.AttendancePending
	list, err := s.attendances.List(ctx, model.AttendanceFilter{SessionID: &cs.ID, Status: &pending})
	s.Require().NoError(err)
	s.Len(list, 2)

	s.Require().NoError(s.sessions.Delete(ctx, cs.ID))
	list, err = s.attendances.ListBySession(ctx, cs.ID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *PostgresSuite) TestAttendanceByStudentPaging() {
	ctx := context.Background()
	c := s.createClass()
	student := s.createUser("A", "S-001", model.RoleStudent)

	now := time.Now()
	for _, date := range []string{"2026-03-02", "2026-03-05"} {
		cs := s.createSession(c.ID, date)
		att := &model.Attendance{SessionID: cs.ID, StudentID: student.ID, IsEnrolledClass: true,
			Status: model.AttendancePresent, CheckedInAt: &now}
		s.Require().NoError(s.attendances.Create(ctx, att))
	}

	page, total, err := s.attendances.ListByStudentPaginated(ctx, student.ID, 1, 1)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(page, 1)
	s.Require().NotNil(page[0].Session)
	s.Require().NotNil(page[0].Student)
	s.Equal(student.ID, page[0].Student.ID)
}

func (s *PostgresSuite) TestTxRollback() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		u := &model.User{Name: "Ghost", Belt: model.BeltWhite, Roles: []model.Role{model.RoleStudent}}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, total, err := s.users.ListStudentsPaginated(ctx, true, 10, 0)
	s.Require().NoError(err)
	s.Zero(total)
}
