package service

import (
	"context"

	"github.com/FrancoisMichell/seirin-sub000/internal/apperror"
	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/rs/zerolog"
)

var (
	errClassNotFound    = apperror.NotFound("Class not found")
	errEnrollInactive   = apperror.BadRequest("Cannot enroll student in inactive class")
	errAlreadyEnrolled  = apperror.BadRequest("Student already enrolled in this class")
	errNotEnrolled      = apperror.NotFound("Student not enrolled in this class")
	errClassHasSessions = apperror.BadRequest("Cannot delete class with existing sessions")
)

// ClassService manages classes and their enrolled students.
type ClassService struct {
	classes  ClassStore
	sessions ClassSessionStore
	users    *UserService
	log      zerolog.Logger
}

// NewClassService creates a new ClassService.
func NewClassService(classes ClassStore, sessions ClassSessionStore, users *UserService, log zerolog.Logger) *ClassService {
	return &ClassService{classes: classes, sessions: sessions, users: users, log: log}
}

// Create persists a new class with an empty enrollment.
func (s *ClassService) Create(ctx context.Context, req model.CreateClassRequest) (*model.Class, error) {
	if _, err := s.users.GetTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	c := &model.Class{
		Name:       req.Name,
		DaysOfWeek: req.DaysOfWeek,
		StartTime:  req.StartTime,
		Duration:   req.Duration,
		IsActive:   true,
		TeacherID:  req.TeacherID,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.classes.Create(ctx, c); err != nil {
		s.log.Error().Err(err).Msg("Failed to create class")
		return nil, apperror.Wrap(err, "Failed to create class")
	}
	return s.FindOne(ctx, c.ID)
}

// FindAll lists classes, active ones only unless includeInactive.
func (s *ClassService) FindAll(ctx context.Context, includeInactive bool) ([]model.Class, error) {
	classes, err := s.classes.List(ctx, nil, includeInactive)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list classes")
		return nil, apperror.Wrap(err, "Failed to list classes")
	}
	return classes, nil
}

// FindByTeacher lists the classes taught by teacherID.
func (s *ClassService) FindByTeacher(ctx context.Context, teacherID int, includeInactive bool) ([]model.Class, error) {
	classes, err := s.classes.List(ctx, &teacherID, includeInactive)
	if err != nil {
		s.log.Error().Err(err).Int("teacher_id", teacherID).Msg("Failed to list classes")
		return nil, apperror.Wrap(err, "Failed to list classes")
	}
	return classes, nil
}

// FindOne returns the class with its teacher and enrolled students.
func (s *ClassService) FindOne(ctx context.Context, id int) (*model.Class, error) {
	c, err := s.classes.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, errClassNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Int("class_id", id).Msg("Failed to find class")
		return nil, apperror.Wrap(err, "Failed to find class")
	}
	return c, nil
}

// Update merges the fields present in req.
func (s *ClassService) Update(ctx context.Context, id int, req model.UpdateClassRequest) (*model.Class, error) {
	c, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.TeacherID != nil {
		teacher, err := s.users.GetTeacher(ctx, *req.TeacherID)
		if err != nil {
			return nil, err
		}
		c.TeacherID = teacher.ID
		c.Teacher = teacher
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.DaysOfWeek != nil {
		c.DaysOfWeek = req.DaysOfWeek
	}
	if req.StartTime != nil {
		c.StartTime = *req.StartTime
	}
	if req.Duration != nil {
		c.Duration = *req.Duration
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.classes.Update(ctx, c); err != nil {
		s.log.Error().Err(err).Int("class_id", id).Msg("Failed to update class")
		return nil, apperror.Wrap(err, "Failed to update class")
	}
	return s.FindOne(ctx, id)
}

// Activate marks the class active.
func (s *ClassService) Activate(ctx context.Context, id int) (*model.Class, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate marks the class inactive.
func (s *ClassService) Deactivate(ctx context.Context, id int) (*model.Class, error) {
	return s.setActive(ctx, id, false)
}

func (s *ClassService) setActive(ctx context.Context, id int, active bool) (*model.Class, error) {
	c, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = active
	if err := s.classes.Update(ctx, c); err != nil {
		s.log.Error().Err(err).Int("class_id", id).Bool("active", active).Msg("Failed to update class")
		return nil, apperror.Wrap(err, "Failed to update class")
	}
	return c, nil
}

// EnrollStudent adds studentID to the class. The class must be active.
func (s *ClassService) EnrollStudent(ctx context.Context, classID, studentID int) (*model.Class, error) {
	c, err := s.FindOne(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, errEnrollInactive
	}
	if _, err := s.users.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if c.HasStudent(studentID) {
		return nil, errAlreadyEnrolled
	}

	err = s.classes.AddStudent(ctx, classID, studentID)
	if database.IsPgError(err, database.CodeUniqueViolation) {
		return nil, errAlreadyEnrolled
	}
	if err != nil {
		s.log.Error().Err(err).Int("class_id", classID).Int("student_id", studentID).Msg("Failed to enroll student")
		return nil, apperror.Wrap(err, "Failed to enroll student")
	}
	return s.FindOne(ctx, classID)
}

// UnenrollStudent removes studentID from the class.
func (s *ClassService) UnenrollStudent(ctx context.Context, classID, studentID int) error {
	if _, err := s.FindOne(ctx, classID); err != nil {
		return err
	}
	removed, err := s.classes.RemoveStudent(ctx, classID, studentID)
	if err != nil {
		s.log.Error().Err(err).Int("class_id", classID).Int("student_id", studentID).Msg("Failed to unenroll student")
		return apperror.Wrap(err, "Failed to unenroll student")
	}
	if !removed {
		return errNotEnrolled
	}
	return nil
}

// IsEnrolled reports whether studentID is currently enrolled in classID.
func (s *ClassService) IsEnrolled(ctx context.Context, classID, studentID int) (bool, error) {
	ok, err := s.classes.IsEnrolled(ctx, classID, studentID)
	if err != nil {
		s.log.Error().Err(err).Int("class_id", classID).Int("student_id", studentID).Msg("Failed to check enrollment")
		return false, apperror.Wrap(err, "Failed to check enrollment")
	}
	return ok, nil
}

// Remove deletes a class that has no sessions.
func (s *ClassService) Remove(ctx context.Context, id int) error {
	if _, err := s.FindOne(ctx, id); err != nil {
		return err
	}
	hasSessions, err := s.sessions.ExistsForClass(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Int("class_id", id).Msg("Failed to check class sessions")
		return apperror.Wrap(err, "Failed to delete class")
	}
	if hasSessions {
		return errClassHasSessions
	}

	err = s.classes.Delete(ctx, id)
	switch {
	case database.IsPgError(err, database.CodeForeignKeyViolation):
		return errClassHasSessions
	case isNotFound(err):
		return errClassNotFound
	case err != nil:
		s.log.Error().Err(err).Int("class_id", id).Msg("Failed to delete class")
		return apperror.Wrap(err, "Failed to delete class")
	}
	return nil
}
