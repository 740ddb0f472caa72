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

var (
	errAttendanceNotFound  = apperror.NotFound("Attendance not found")
	errAttendanceInactive  = apperror.BadRequest("Cannot record attendance for inactive session")
	errAttendanceDuplicate = apperror.BadRequest("Attendance already recorded for this student in this session")
	errNoEnrolledStudents  = apperror.BadRequest("No students enrolled in this class")
)

// AttendanceService records and updates per-session attendance.
type AttendanceService struct {
	attendances AttendanceStore
	sessions    *ClassSessionService
	classes     *ClassService
	users       *UserService
	tx          Transactor
	publisher   EventPublisher
	metrics     *metrics.Metrics
	now         func() time.Time
	log         zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService. publisher and m may be nil.
func NewAttendanceService(
	attendances AttendanceStore,
	sessions *ClassSessionService,
	classes *ClassService,
	users *UserService,
	tx Transactor,
	publisher EventPublisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		attendances: attendances,
		sessions:    sessions,
		classes:     classes,
		users:       users,
		tx:          tx,
		publisher:   publisher,
		metrics:     m,
		now:         time.Now,
		log:         log,
	}
}

// Create records one student's attendance in an active session. The status
// defaults to present when omitted.
func (s *AttendanceService) Create(ctx context.Context, req model.CreateAttendanceRequest) (*model.Attendance, error) {
	session, err := s.sessions.FindOne(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, errAttendanceInactive
	}
	student, err := s.users.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	exists, err := s.attendances.ExistsForStudent(ctx, session.ID, student.ID)
	if err != nil {
		s.log.Error().Err(err).Int("session_id", session.ID).Int("student_id", student.ID).Msg("Failed to check attendance")
		return nil, apperror.Wrap(err, "Failed to create attendance")
	}
	if exists {
		return nil, errAttendanceDuplicate
	}

	enrolled, err := s.classes.IsEnrolled(ctx, session.ClassID, student.ID)
	if err != nil {
		return nil, err
	}

	status := model.AttendancePresent
	if req.Status != nil {
		status = *req.Status
	}
	a := &model.Attendance{
		SessionID:       session.ID,
		StudentID:       student.ID,
		IsEnrolledClass: enrolled,
		Status:          status,
		CheckedInAt:     s.checkInFor(status),
		Notes:           req.Notes,
	}

	err = s.attendances.Create(ctx, a)
	if database.IsPgError(err, database.CodeUniqueViolation) {
		return nil, errAttendanceDuplicate
	}
	if err != nil {
		s.log.Error().Err(err).Int("session_id", session.ID).Int("student_id", student.ID).Msg("Failed to create attendance")
		return nil, apperror.Wrap(err, "Failed to create attendance")
	}
	a.Session = session
	a.Student = student

	s.metrics.IncAttendance(string(a.Status), "single", 1)
	s.publish(ctx, model.AttendanceEvent{
		Type:         model.AttendanceCreated,
		SessionID:    a.SessionID,
		AttendanceID: a.ID,
		Attendances:  []model.Attendance{*a},
	})
	return a, nil
}

// BulkCreate creates pending attendances for every enrolled student of the
// session's class who has none yet. Calling it again is a no-op.
func (s *AttendanceService) BulkCreate(ctx context.Context, sessionID int) ([]model.Attendance, error) {
	var created []model.Attendance

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		session, err := s.sessions.FindOne(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsActive {
			return errAttendanceInactive
		}
		class, err := s.classes.FindOne(ctx, session.ClassID)
		if err != nil {
			return err
		}
		if len(class.EnrolledStudents) == 0 {
			return errNoEnrolledStudents
		}

		existing, err := s.attendances.ListBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		recorded := make(map[int]struct{}, len(existing))
		for _, a := range existing {
			recorded[a.StudentID] = struct{}{}
		}

		students := make(map[int]model.User, len(class.EnrolledStudents))
		var pending []model.Attendance
		for _, student := range class.EnrolledStudents {
			if _, ok := recorded[student.ID]; ok {
				continue
			}
			students[student.ID] = student
			pending = append(pending, model.Attendance{
				SessionID:       sessionID,
				StudentID:       student.ID,
				IsEnrolledClass: true,
				Status:          model.AttendancePending,
			})
		}
		if len(pending) == 0 {
			created = []model.Attendance{}
			return nil
		}

		created, err = s.attendances.BulkCreate(ctx, pending)
		if err != nil {
			return err
		}
		for i := range created {
			student := students[created[i].StudentID]
			created[i].Student = &student
			created[i].Session = session
		}
		return nil
	})
	if err != nil {
		if _, ok := apperror.As(err); !ok {
			s.log.Error().Err(err).Int("session_id", sessionID).Msg("Failed to bulk create attendances")
		}
		return nil, apperror.Wrap(err, "Failed to create attendances")
	}

	s.metrics.ObserveBulk(len(created))
	if len(created) > 0 {
		s.metrics.IncAttendance(string(model.AttendancePending), "bulk", len(created))
		s.publish(ctx, model.AttendanceEvent{
			Type:        model.AttendanceBulkCreated,
			SessionID:   sessionID,
			Attendances: created,
		})
	}
	return created, nil
}

// FindAll lists attendances matching f.
func (s *AttendanceService) FindAll(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error) {
	list, err := s.attendances.List(ctx, f)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list attendances")
		return nil, apperror.Wrap(err, "Failed to list attendances")
	}
	return list, nil
}

// FindOne returns the attendance with its session, class and student.
func (s *AttendanceService) FindOne(ctx context.Context, id int) (*model.Attendance, error) {
	a, err := s.attendances.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, errAttendanceNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Int("attendance_id", id).Msg("Failed to find attendance")
		return nil, apperror.Wrap(err, "Failed to find attendance")
	}
	return a, nil
}

// FindBySession lists a session's attendances in recording order.
func (s *AttendanceService) FindBySession(ctx context.Context, sessionID int) ([]model.Attendance, error) {
	if _, err := s.sessions.FindOne(ctx, sessionID); err != nil {
		return nil, err
	}
	list, err := s.attendances.ListBySession(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Int("session_id", sessionID).Msg("Failed to list session attendances")
		return nil, apperror.Wrap(err, "Failed to list attendances")
	}
	return list, nil
}

// FindByStudent returns one page of a student's attendance history, newest first.
func (s *AttendanceService) FindByStudent(ctx context.Context, studentID, page, limit int) ([]model.Attendance, model.PageMeta, error) {
	if _, err := s.users.GetStudent(ctx, studentID); err != nil {
		return nil, model.PageMeta{}, err
	}
	page, limit = normalizePage(page, limit)

	list, total, err := s.attendances.ListByStudentPaginated(ctx, studentID, limit, (page-1)*limit)
	if err != nil {
		s.log.Error().Err(err).Int("student_id", studentID).Msg("Failed to list student attendances")
		return nil, model.PageMeta{}, apperror.Wrap(err, "Failed to list attendances")
	}
	return list, model.NewPageMeta(total, page, limit), nil
}

// Update merges status and notes. The check-in time follows the status sent
// in req: a request without status clears it.
func (s *AttendanceService) Update(ctx context.Context, id int, req model.UpdateAttendanceRequest) (*model.Attendance, error) {
	a, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	var sent model.AttendanceStatus
	if req.Status != nil {
		sent = *req.Status
		a.Status = sent
	}
	req.Notes.Apply(&a.Notes)
	a.CheckedInAt = s.checkInFor(sent)

	return s.save(ctx, a, "Failed to update attendance")
}

// MarkPresent sets status present and stamps the check-in time.
func (s *AttendanceService) MarkPresent(ctx context.Context, id int) (*model.Attendance, error) {
	return s.mark(ctx, id, model.AttendancePresent)
}

// MarkLate sets status late and stamps the check-in time.
func (s *AttendanceService) MarkLate(ctx context.Context, id int) (*model.Attendance, error) {
	return s.mark(ctx, id, model.AttendanceLate)
}

// MarkAbsent sets status absent and clears the check-in time.
func (s *AttendanceService) MarkAbsent(ctx context.Context, id int) (*model.Attendance, error) {
	return s.mark(ctx, id, model.AttendanceAbsent)
}

// MarkExcused sets status excused and clears the check-in time.
func (s *AttendanceService) MarkExcused(ctx context.Context, id int) (*model.Attendance, error) {
	return s.mark(ctx, id, model.AttendanceExcused)
}

func (s *AttendanceService) mark(ctx context.Context, id int, status model.AttendanceStatus) (*model.Attendance, error) {
	a, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = status
	a.CheckedInAt = s.checkInFor(status)

	a, err = s.save(ctx, a, "Failed to update attendance")
	if err != nil {
		return nil, err
	}
	s.metrics.IncAttendance(string(status), "mark", 1)
	return a, nil
}

// Remove deletes the attendance.
func (s *AttendanceService) Remove(ctx context.Context, id int) error {
	a, err := s.FindOne(ctx, id)
	if err != nil {
		return err
	}
	err = s.attendances.Delete(ctx, id)
	if isNotFound(err) {
		return errAttendanceNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Int("attendance_id", id).Msg("Failed to delete attendance")
		return apperror.Wrap(err, "Failed to delete attendance")
	}
	s.publish(ctx, model.AttendanceEvent{
		Type:         model.AttendanceDeleted,
		SessionID:    a.SessionID,
		AttendanceID: a.ID,
	})
	return nil
}

func (s *AttendanceService) save(ctx context.Context, a *model.Attendance, failMsg string) (*model.Attendance, error) {
	if err := s.attendances.Update(ctx, a); err != nil {
		if isNotFound(err) {
			return nil, errAttendanceNotFound
		}
		s.log.Error().Err(err).Int("attendance_id", a.ID).Msg(failMsg)
		return nil, apperror.Wrap(err, failMsg)
	}
	s.publish(ctx, model.AttendanceEvent{
		Type:         model.AttendanceUpdated,
		SessionID:    a.SessionID,
		AttendanceID: a.ID,
		Attendances:  []model.Attendance{*a},
	})
	return a, nil
}

// checkInFor returns the current time for checked-in statuses and nil otherwise.
func (s *AttendanceService) checkInFor(status model.AttendanceStatus) *time.Time {
	if !status.IsCheckedIn() {
		return nil
	}
	now := s.now()
	return &now
}

// publish never fails the caller; live board delivery is best effort.
func (s *AttendanceService) publish(ctx context.Context, evt model.AttendanceEvent) {
	if s.publisher == nil {
		return
	}
	evt.OccurredAt = s.now()
	if err := s.publisher.PublishAttendance(ctx, evt); err != nil {
		s.metrics.IncPublishFailure()
		s.log.Warn().Err(err).Str("type", string(evt.Type)).Int("session_id", evt.SessionID).Msg("Failed to publish attendance event")
	}
}
