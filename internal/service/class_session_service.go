package service

import (
	"context"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/apperror"
	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/metrics"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/rs/zerolog"
)

const timeOfDayLayout = "15:04:05"

var (
	errSessionNotFound      = apperror.NotFound("Class session not found")
	errSessionInactiveClass = apperror.BadRequest("Cannot create session for inactive class")
	errSessionDuplicate     = apperror.BadRequest("Session already exists for this class on this date")
	errSessionStarted       = apperror.BadRequest("Class session already started")
	errSessionNotStarted    = apperror.BadRequest("Class session not started yet")
	errSessionEnded         = apperror.BadRequest("Class session already ended")
)

// ClassSessionService schedules class sessions and drives their
// scheduled → started → ended lifecycle.
type ClassSessionService struct {
	sessions ClassSessionStore
	classes  *ClassService
	users    *UserService
	metrics  *metrics.Metrics
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

// NewClassSessionService creates a new ClassSessionService. Start and end
// times are stamped in loc.
func NewClassSessionService(sessions ClassSessionStore, classes *ClassService, users *UserService, m *metrics.Metrics, loc *time.Location, log zerolog.Logger) *ClassSessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &ClassSessionService{
		sessions: sessions,
		classes:  classes,
		users:    users,
		metrics:  m,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

// Create schedules a session for an active class.
func (s *ClassSessionService) Create(ctx context.Context, req model.CreateClassSessionRequest) (*model.ClassSession, error) {
	class, err := s.classes.FindOne(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !class.IsActive {
		return nil, errSessionInactiveClass
	}
	if err := s.ensureNoDuplicate(ctx, req.ClassID, req.Date, 0); err != nil {
		return nil, err
	}
	teacher, err := s.users.GetTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}

	session := &model.ClassSession{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
		IsActive:  true,
		ClassID:   class.ID,
		TeacherID: teacher.ID,
	}
	err = s.sessions.Create(ctx, session)
	if database.IsPgError(err, database.CodeUniqueViolation) {
		return nil, errSessionDuplicate
	}
	if err != nil {
		s.log.Error().Err(err).Int("class_id", req.ClassID).Str("date", req.Date).Msg("Failed to create class session")
		return nil, apperror.Wrap(err, "Failed to create class session")
	}
	return s.FindOne(ctx, session.ID)
}

// ensureNoDuplicate fails when another session than selfID exists for (classID, date).
func (s *ClassSessionService) ensureNoDuplicate(ctx context.Context, classID int, date string, selfID int) error {
	existing, err := s.sessions.GetByClassAndDate(ctx, classID, date)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		s.log.Error().Err(err).Int("class_id", classID).Str("date", date).Msg("Failed to check session date")
		return apperror.Wrap(err, "Failed to check class session")
	}
	if existing.ID != selfID {
		return errSessionDuplicate
	}
	return nil
}

// FindOne returns the session with its class and teacher.
func (s *ClassSessionService) FindOne(ctx context.Context, id int) (*model.ClassSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, errSessionNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Int("session_id", id).Msg("Failed to find class session")
		return nil, apperror.Wrap(err, "Failed to find class session")
	}
	return session, nil
}

// FindAll lists sessions matching f, newest date first.
func (s *ClassSessionService) FindAll(ctx context.Context, f model.ClassSessionFilter) ([]model.ClassSession, error) {
	sessions, err := s.sessions.List(ctx, f)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list class sessions")
		return nil, apperror.Wrap(err, "Failed to list class sessions")
	}
	return sessions, nil
}

// FindByClass lists the sessions of classID.
func (s *ClassSessionService) FindByClass(ctx context.Context, classID int, includeInactive bool) ([]model.ClassSession, error) {
	return s.FindAll(ctx, model.ClassSessionFilter{ClassID: &classID, IncludeInactive: includeInactive})
}

// FindByTeacher lists the sessions taught by teacherID.
func (s *ClassSessionService) FindByTeacher(ctx context.Context, teacherID int, includeInactive bool) ([]model.ClassSession, error) {
	return s.FindAll(ctx, model.ClassSessionFilter{TeacherID: &teacherID, IncludeInactive: includeInactive})
}

// FindByDateRange lists sessions dated within [start, end].
func (s *ClassSessionService) FindByDateRange(ctx context.Context, start, end string, includeInactive bool) ([]model.ClassSession, error) {
	return s.FindAll(ctx, model.ClassSessionFilter{StartDate: &start, EndDate: &end, IncludeInactive: includeInactive})
}

// Update merges req into the session. Explicit nulls clear startTime, endTime and notes.
func (s *ClassSessionService) Update(ctx context.Context, id int, req model.UpdateClassSessionRequest) (*model.ClassSession, error) {
	session, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.TeacherID != nil {
		teacher, err := s.users.GetTeacher(ctx, *req.TeacherID)
		if err != nil {
			return nil, err
		}
		session.TeacherID = teacher.ID
		session.Teacher = teacher
	}
	if req.ClassID != nil {
		class, err := s.classes.FindOne(ctx, *req.ClassID)
		if err != nil {
			return nil, err
		}
		if !class.IsActive {
			return nil, errSessionInactiveClass
		}
		session.ClassID = class.ID
		session.Class = class
	}
	if req.Date != nil {
		session.Date = *req.Date
	}
	if req.ClassID != nil || req.Date != nil {
		if err := s.ensureNoDuplicate(ctx, session.ClassID, session.Date, session.ID); err != nil {
			return nil, err
		}
	}
	req.StartTime.Apply(&session.StartTime)
	req.EndTime.Apply(&session.EndTime)
	req.Notes.Apply(&session.Notes)
	if req.IsActive != nil {
		session.IsActive = *req.IsActive
	}

	if err := s.save(ctx, session, "Failed to update class session"); err != nil {
		return nil, err
	}
	return s.FindOne(ctx, id)
}

// Activate marks the session active.
func (s *ClassSessionService) Activate(ctx context.Context, id int) (*model.ClassSession, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate marks the session inactive. Inactive sessions reject new attendance.
func (s *ClassSessionService) Deactivate(ctx context.Context, id int) (*model.ClassSession, error) {
	return s.setActive(ctx, id, false)
}

func (s *ClassSessionService) setActive(ctx context.Context, id int, active bool) (*model.ClassSession, error) {
	session, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	session.IsActive = active
	if err := s.save(ctx, session, "Failed to update class session"); err != nil {
		return nil, err
	}
	return session, nil
}

// Start stamps the current wall-clock time as the start time.
func (s *ClassSessionService) Start(ctx context.Context, id int) (*model.ClassSession, error) {
	session, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.StartTime != nil {
		return nil, errSessionStarted
	}

	now := s.clock()
	session.StartTime = &now
	if err := s.save(ctx, session, "Failed to start class session"); err != nil {
		return nil, err
	}
	s.metrics.IncTransition("start")
	s.log.Info().Int("session_id", id).Str("start_time", now).Msg("Class session started")
	return session, nil
}

// End stamps the current wall-clock time as the end time of a started session.
func (s *ClassSessionService) End(ctx context.Context, id int) (*model.ClassSession, error) {
	session, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.StartTime == nil {
		return nil, errSessionNotStarted
	}
	if session.EndTime != nil {
		return nil, errSessionEnded
	}

	now := s.clock()
	session.EndTime = &now
	if err := s.save(ctx, session, "Failed to end class session"); err != nil {
		return nil, err
	}
	s.metrics.IncTransition("end")
	s.log.Info().Int("session_id", id).Str("end_time", now).Msg("Class session ended")
	return session, nil
}

// Remove deletes the session. Its attendances are deleted with it.
func (s *ClassSessionService) Remove(ctx context.Context, id int) error {
	if _, err := s.FindOne(ctx, id); err != nil {
		return err
	}
	err := s.sessions.Delete(ctx, id)
	if isNotFound(err) {
		return errSessionNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Int("session_id", id).Msg("Failed to delete class session")
		return apperror.Wrap(err, "Failed to delete class session")
	}
	return nil
}

func (s *ClassSessionService) save(ctx context.Context, session *model.ClassSession, failMsg string) error {
	err := s.sessions.Update(ctx, session)
	if database.IsPgError(err, database.CodeUniqueViolation) {
		return errSessionDuplicate
	}
	if err != nil {
		s.log.Error().Err(err).Int("session_id", session.ID).Msg(failMsg)
		return apperror.Wrap(err, failMsg)
	}
	return nil
}

func (s *ClassSessionService) clock() string {
	return s.now().In(s.loc).Format(timeOfDayLayout)
}
