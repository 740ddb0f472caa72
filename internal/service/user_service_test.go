package service

import (
	"context"
	"testing"

	"github.com/FrancoisMichell/seirin-sub000/internal/apperror"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/stretchr/testify/suite"
)

type UserServiceSuite struct {
	suite.Suite
	env *testEnv
	ctx context.Context
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.env = newTestEnv(nil)
	s.ctx = context.Background()
}

func (s *UserServiceSuite) TestCreate() {
	s.Run("hashes password and defaults belt", func() {
		u := s.env.mustUser("Sensei", "T001", model.RoleTeacher, model.RoleStudent)
		s.Equal(model.BeltWhite, u.Belt)
		s.True(u.IsActive)
		s.Require().NotNil(u.PasswordHash)
		s.NotEqual("secret123", *u.PasswordHash)
		s.True(s.env.users.hasher.Compare(*u.PasswordHash, "secret123"))
		s.True(u.HasRole(model.RoleTeacher))
		s.True(u.HasRole(model.RoleStudent))
	})

	s.Run("duplicate registry is rejected", func() {
		_, err := s.env.users.Create(s.ctx, model.CreateUserRequest{Name: "Other", Registry: strPtr("T001")}, []model.Role{model.RoleStudent})
		s.ErrorIs(err, apperror.BadRequest("Registry already in use"))
	})

	s.Run("instructor must be a teacher", func() {
		student := s.env.mustUser("Ana", "", model.RoleStudent)
		_, err := s.env.users.Create(s.ctx, model.CreateUserRequest{Name: "Bia", InstructorID: &student.ID}, []model.Role{model.RoleStudent})
		s.ErrorIs(err, apperror.NotFound("Teacher not found"))
	})
}

func (s *UserServiceSuite) TestRoleLookups() {
	teacher := s.env.mustUser("Sensei", "T001", model.RoleTeacher)
	student := s.env.mustUser("Ana", "", model.RoleStudent)

	_, err := s.env.users.GetStudent(s.ctx, teacher.ID)
	s.ErrorIs(err, apperror.NotFound("Student not found"))
	_, err = s.env.users.GetTeacher(s.ctx, student.ID)
	s.ErrorIs(err, apperror.NotFound("Teacher not found"))
	_, err = s.env.users.GetStudent(s.ctx, 999)
	s.ErrorIs(err, apperror.NotFound("Student not found"))

	got, err := s.env.users.FindByRegistry(s.ctx, "T001")
	s.Require().NoError(err)
	s.Equal(teacher.ID, got.ID)

	teachers, err := s.env.users.FindByRole(s.ctx, model.RoleTeacher)
	s.Require().NoError(err)
	s.Len(teachers, 1)
}

func (s *UserServiceSuite) TestFindStudentsPaginates() {
	for _, name := range []string{"Caio", "Ana", "Bia"} {
		s.env.mustUser(name, "", model.RoleStudent)
	}
	inactive := s.env.mustUser("Duda", "", model.RoleStudent)
	_, err := s.env.users.Deactivate(s.ctx, inactive.ID)
	s.Require().NoError(err)

	page, meta, err := s.env.users.FindStudents(s.ctx, 1, 2, false)
	s.Require().NoError(err)
	s.Equal([]string{"Ana", "Bia"}, []string{page[0].Name, page[1].Name})
	s.Equal(model.PageMeta{Total: 3, Page: 1, Limit: 2, TotalPages: 2}, meta)

	_, meta, err = s.env.users.FindStudents(s.ctx, 1, 10, true)
	s.Require().NoError(err)
	s.Equal(4, meta.Total)
}

func (s *UserServiceSuite) TestUpdate() {
	u, err := s.env.users.Create(s.ctx, model.CreateUserRequest{
		Name: "Ana", Registry: strPtr("S001"), Birthday: strPtr("2012-05-01"),
	}, []model.Role{model.RoleStudent})
	s.Require().NoError(err)
	s.env.mustUser("Bia", "S002", model.RoleStudent)

	s.Run("merges present fields and clears explicit nulls", func() {
		belt := model.BeltYellow
		got, err := s.env.users.Update(s.ctx, u.ID, model.UserPatch{Belt: &belt, Birthday: model.Null[string]()})
		s.Require().NoError(err)
		s.Equal(model.BeltYellow, got.Belt)
		s.Nil(got.Birthday)
		s.Equal("S001", *got.Registry)
	})

	s.Run("taking another user's registry is rejected", func() {
		_, err := s.env.users.Update(s.ctx, u.ID, model.UserPatch{Registry: model.Some("S002")})
		s.ErrorIs(err, apperror.BadRequest("Registry already in use"))
	})

	s.Run("deactivate keeps the user", func() {
		got, err := s.env.users.Deactivate(s.ctx, u.ID)
		s.Require().NoError(err)
		s.False(got.IsActive)
		stored, err := s.env.users.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.False(stored.IsActive)
	})
}

func (s *UserServiceSuite) TestBulkCreateStudentsSkipsTakenRegistries() {
	s.env.mustUser("Ana", "S001", model.RoleStudent)

	created, skipped, err := s.env.users.BulkCreateStudents(s.ctx, []model.CreateUserRequest{
		{Name: "Ana Clone", Registry: strPtr("S001")},
		{Name: "Bia", Registry: strPtr("S002")},
		{Name: "Caio"},
	})

	s.Require().NoError(err)
	s.Equal([]int{0}, skipped)
	s.Require().Len(created, 2)
	s.True(created[0].HasRole(model.RoleStudent))
}
