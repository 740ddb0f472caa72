package service

import (
	"context"
	"fmt"

	"github.com/FrancoisMichell/seirin-sub000/internal/apperror"
	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/rs/zerolog"
)

var (
	errUserNotFound    = apperror.NotFound("User not found")
	errStudentNotFound = apperror.NotFound("Student not found")
	errTeacherNotFound = apperror.NotFound("Teacher not found")
	errRegistryTaken   = apperror.BadRequest("Registry already in use")
)

// UserService handles users, students and teachers.
type UserService struct {
	users  UserStore
	tx     Transactor
	hasher PasswordHasher
	log    zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, tx Transactor, hasher PasswordHasher, log zerolog.Logger) *UserService {
	return &UserService{users: users, tx: tx, hasher: hasher, log: log}
}

// Create registers a user holding roles. A missing belt defaults to White.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest, roles []model.Role) (*model.User, error) {
	u, err := s.buildUser(ctx, req, roles)
	if err != nil {
		return nil, apperror.Wrap(err, "Failed to create user")
	}

	if u.Registry != nil {
		existing, err := s.users.GetByRegistry(ctx, *u.Registry)
		if err != nil && !isNotFound(err) {
			s.log.Error().Err(err).Msg("Failed to check registry")
			return nil, apperror.BadRequest("Failed to create user")
		}
		if existing != nil {
			return nil, errRegistryTaken
		}
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, u)
	})
	if database.IsPgError(err, database.CodeUniqueViolation) {
		return nil, errRegistryTaken
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create user")
		return nil, apperror.Wrap(err, "Failed to create user")
	}
	return u, nil
}

func (s *UserService) buildUser(ctx context.Context, req model.CreateUserRequest, roles []model.Role) (*model.User, error) {
	u := &model.User{
		Name:          req.Name,
		Registry:      req.Registry,
		Belt:          req.Belt,
		Birthday:      req.Birthday,
		TrainingSince: req.TrainingSince,
		IsActive:      true,
		Roles:         roles,
		InstructorID:  req.InstructorID,
	}
	if u.Belt == "" {
		u.Belt = model.BeltWhite
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to hash password")
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = &hash
	}
	if u.InstructorID != nil {
		if _, err := s.GetTeacher(ctx, *u.InstructorID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// BulkCreateStudents registers many students in one transaction. Entries whose
// registry is already taken are skipped and reported by index.
func (s *UserService) BulkCreateStudents(ctx context.Context, reqs []model.CreateUserRequest) ([]model.User, []int, error) {
	users := make([]*model.User, 0, len(reqs))
	for _, req := range reqs {
		u, err := s.buildUser(ctx, req, []model.Role{model.RoleStudent})
		if err != nil {
			return nil, nil, apperror.Wrap(err, "Failed to create students")
		}
		users = append(users, u)
	}

	var skipped []int
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		skipped, err = s.users.BulkCreate(ctx, users)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Int("count", len(reqs)).Msg("Failed to bulk create students")
		return nil, nil, apperror.Wrap(err, "Failed to create students")
	}

	created := make([]model.User, 0, len(users)-len(skipped))
	for i, u := range users {
		if !containsInt(skipped, i) {
			created = append(created, *u)
		}
	}
	return created, skipped, nil
}

// FindByID returns the user with id.
func (s *UserService) FindByID(ctx context.Context, id int) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, errUserNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Int("user_id", id).Msg("Failed to find user")
		return nil, apperror.Wrap(err, "Failed to find user")
	}
	return u, nil
}

// FindByRegistry returns the user with registry.
func (s *UserService) FindByRegistry(ctx context.Context, registry string) (*model.User, error) {
	u, err := s.users.GetByRegistry(ctx, registry)
	if isNotFound(err) {
		return nil, errUserNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to find user by registry")
		return nil, apperror.Wrap(err, "Failed to find user")
	}
	return u, nil
}

// FindByRole returns every user holding role.
func (s *UserService) FindByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		s.log.Error().Err(err).Str("role", string(role)).Msg("Failed to list users")
		return nil, apperror.Wrap(err, "Failed to list users")
	}
	return users, nil
}

// FindStudents returns one page of students.
func (s *UserService) FindStudents(ctx context.Context, page, limit int, includeInactive bool) ([]model.User, model.PageMeta, error) {
	page, limit = normalizePage(page, limit)

	students, total, err := s.users.ListStudentsPaginated(ctx, includeInactive, limit, (page-1)*limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list students")
		return nil, model.PageMeta{}, apperror.Wrap(err, "Failed to list students")
	}
	if students == nil {
		students = []model.User{}
	}
	return students, model.NewPageMeta(total, page, limit), nil
}

// GetStudent returns the user with id if it holds the student role.
func (s *UserService) GetStudent(ctx context.Context, id int) (*model.User, error) {
	return s.getWithRole(ctx, id, model.RoleStudent, errStudentNotFound)
}

// GetTeacher returns the user with id if it holds the teacher role.
func (s *UserService) GetTeacher(ctx context.Context, id int) (*model.User, error) {
	return s.getWithRole(ctx, id, model.RoleTeacher, errTeacherNotFound)
}

func (s *UserService) getWithRole(ctx context.Context, id int, role model.Role, notFound error) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, notFound
	}
	if err != nil {
		s.log.Error().Err(err).Int("user_id", id).Str("role", string(role)).Msg("Failed to find user")
		return nil, apperror.Wrap(err, "Failed to find user")
	}
	if !u.HasRole(role) {
		return nil, notFound
	}
	return u, nil
}

// Update applies patch to the user with id.
func (s *UserService) Update(ctx context.Context, id int, patch model.UserPatch) (*model.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Registry.Set && patch.Registry.Value != nil &&
		(u.Registry == nil || *u.Registry != *patch.Registry.Value) {
		existing, err := s.users.GetByRegistry(ctx, *patch.Registry.Value)
		if err != nil && !isNotFound(err) {
			s.log.Error().Err(err).Msg("Failed to check registry")
			return nil, apperror.BadRequest("Failed to update user")
		}
		if existing != nil && existing.ID != u.ID {
			return nil, errRegistryTaken
		}
	}
	if patch.InstructorID.Set && patch.InstructorID.Value != nil {
		if _, err := s.GetTeacher(ctx, *patch.InstructorID.Value); err != nil {
			return nil, err
		}
	}

	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Belt != nil {
		u.Belt = *patch.Belt
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to hash password")
			return nil, apperror.BadRequest("Failed to update user")
		}
		u.PasswordHash = &hash
	}
	patch.Registry.Apply(&u.Registry)
	patch.Birthday.Apply(&u.Birthday)
	patch.TrainingSince.Apply(&u.TrainingSince)
	patch.InstructorID.Apply(&u.InstructorID)

	return s.save(ctx, u, "Failed to update user")
}

// Activate marks the user active.
func (s *UserService) Activate(ctx context.Context, id int) (*model.User, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate marks the user inactive. Users are never hard deleted.
func (s *UserService) Deactivate(ctx context.Context, id int) (*model.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *UserService) setActive(ctx context.Context, id int, active bool) (*model.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	return s.save(ctx, u, "Failed to update user")
}

func (s *UserService) save(ctx context.Context, u *model.User, failMsg string) (*model.User, error) {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.users.Update(ctx, u)
	})
	if database.IsPgError(err, database.CodeUniqueViolation) {
		return nil, errRegistryTaken
	}
	if err != nil {
		s.log.Error().Err(err).Int("user_id", u.ID).Msg(failMsg)
		return nil, apperror.Wrap(err, failMsg)
	}
	return u, nil
}

// normalizePage applies page=1, limit=10 defaults and caps limit at 100.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
