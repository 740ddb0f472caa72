package repository

import (
	"context"
	"errors"

	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttendanceRepository handles attendance persistence.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `a.id, a.session_id, a.student_id, a.is_enrolled_class, a.status::text,
	a.checked_in_at, a.notes, a.created_at, a.updated_at`

var attendanceSelect = `SELECT ` + attendanceColumns + `, ` + sessionColumns("s") + `, ` + classColumns("c") + `, ` + userColumns("st") + `
	FROM attendances a
	JOIN class_sessions s ON s.id = a.session_id
	JOIN classes c ON c.id = s.class_id
	JOIN users st ON st.id = a.student_id`

func attendanceDest(a *model.Attendance, status *string) []any {
	return []any{&a.ID, &a.SessionID, &a.StudentID, &a.IsEnrolledClass, status, &a.CheckedInAt, &a.Notes, &a.CreatedAt, &a.UpdatedAt}
}

func scanAttendance(row pgx.Row) (*model.Attendance, error) {
	var (
		a       model.Attendance
		status  string
		s       model.ClassSession
		c       model.Class
		student userRow
	)
	dest := append(attendanceDest(&a, &status), sessionDest(&s)...)
	dest = append(dest, classDest(&c)...)
	if err := row.Scan(append(dest, student.dest()...)...); err != nil {
		return nil, err
	}
	a.Status = model.AttendanceStatus(status)
	s.Class = &c
	u := student.user()
	a.Session = &s
	a.Student = &u
	return &a, nil
}

func collectAttendances(rows pgx.Rows) ([]model.Attendance, error) {
	defer rows.Close()
	out := []model.Attendance{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetByID retrieves an attendance with its session, the session class and the student.
func (r *AttendanceRepository) GetByID(ctx context.Context, id int) (*model.Attendance, error) {
	return scanAttendance(database.Conn(ctx, r.pool).QueryRow(ctx, attendanceSelect+` WHERE a.id = $1`, id))
}

// ExistsForStudent reports whether studentID already has a row in sessionID.
func (r *AttendanceRepository) ExistsForStudent(ctx context.Context, sessionID, studentID int) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendances WHERE session_id = $1 AND student_id = $2)`,
		sessionID, studentID,
	).Scan(&exists)
	return exists, err
}

// List retrieves attendances matching f, newest first.
func (r *AttendanceRepository) List(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error) {
	query := attendanceSelect + ` WHERE TRUE`
	var args []any

	if f.SessionID != nil {
		args = append(args, *f.SessionID)
		query += ` AND a.session_id = ` + placeholder(len(args))
	}
	if f.StudentID != nil {
		args = append(args, *f.StudentID)
		query += ` AND a.student_id = ` + placeholder(len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		query += ` AND a.status = ` + placeholder(len(args)) + `::text::attendance_status`
	}
	if f.IsEnrolledClass != nil {
		args = append(args, *f.IsEnrolledClass)
		query += ` AND a.is_enrolled_class = ` + placeholder(len(args))
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAttendances(rows)
}

// ListBySession retrieves a session's attendances in recording order.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID int) ([]model.Attendance, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		attendanceSelect+` WHERE a.session_id = $1 ORDER BY a.created_at, a.id`, sessionID)
	if err != nil {
		return nil, err
	}
	return collectAttendances(rows)
}

// ListByStudentPaginated returns one page of a student's attendances, newest
// first, with the total count.
func (r *AttendanceRepository) ListByStudentPaginated(ctx context.Context, studentID, limit, offset int) ([]model.Attendance, int, error) {
	q := database.Conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM attendances WHERE student_id = $1`, studentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		attendanceSelect+` WHERE a.student_id = $1 ORDER BY a.created_at DESC, a.id DESC LIMIT $2 OFFSET $3`,
		studentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectAttendances(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Create inserts one attendance. A second row for the same session and
// student fails with a unique violation.
func (r *AttendanceRepository) Create(ctx context.Context, a *model.Attendance) error {
	return database.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO attendances (session_id, student_id, is_enrolled_class, status, checked_in_at, notes)
		 VALUES ($1, $2, $3, $4::text::attendance_status, $5, $6)
		 RETURNING id, created_at, updated_at`,
		a.SessionID, a.StudentID, a.IsEnrolledClass, string(a.Status), a.CheckedInAt, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// BulkCreate inserts attendances in one batch. Rows that collide with an
// existing (session, student) pair are skipped; only inserted rows are returned.
func (r *AttendanceRepository) BulkCreate(ctx context.Context, list []model.Attendance) ([]model.Attendance, error) {
	if len(list) == 0 {
		return []model.Attendance{}, nil
	}

	batch := &pgx.Batch{}
	for _, a := range list {
		batch.Queue(
			`INSERT INTO attendances (session_id, student_id, is_enrolled_class, status, checked_in_at, notes)
			 VALUES ($1, $2, $3, $4::text::attendance_status, $5, $6)
			 ON CONFLICT (session_id, student_id) DO NOTHING
			 RETURNING id, created_at, updated_at`,
			a.SessionID, a.StudentID, a.IsEnrolledClass, string(a.Status), a.CheckedInAt, a.Notes,
		)
	}

	br := database.Conn(ctx, r.pool).SendBatch(ctx, batch)
	defer br.Close()

	inserted := make([]model.Attendance, 0, len(list))
	for _, a := range list {
		err := br.QueryRow().Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, a)
	}
	return inserted, br.Close()
}

// Update persists the mutable columns of a.
func (r *AttendanceRepository) Update(ctx context.Context, a *model.Attendance) error {
	return database.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE attendances SET status = $1::text::attendance_status, checked_in_at = $2, notes = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING updated_at`,
		string(a.Status), a.CheckedInAt, a.Notes, a.ID,
	).Scan(&a.UpdatedAt)
}

// Delete removes an attendance.
func (r *AttendanceRepository) Delete(ctx context.Context, id int) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
