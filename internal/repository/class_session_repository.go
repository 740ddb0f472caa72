package repository

import (
	"context"

	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClassSessionRepository handles class session persistence.
type ClassSessionRepository struct {
	pool *pgxpool.Pool
}

// NewClassSessionRepository creates a new ClassSessionRepository.
func NewClassSessionRepository(pool *pgxpool.Pool) *ClassSessionRepository {
	return &ClassSessionRepository{pool: pool}
}

var sessionSelect = `SELECT ` + sessionColumns("s") + `, ` + classColumns("c") + `, ` + userColumns("t") + `
	FROM class_sessions s
	JOIN classes c ON c.id = s.class_id
	JOIN users t ON t.id = s.teacher_id`

func scanSession(row pgx.Row) (*model.ClassSession, error) {
	var (
		s       model.ClassSession
		c       model.Class
		teacher userRow
	)
	dest := append(sessionDest(&s), classDest(&c)...)
	if err := row.Scan(append(dest, teacher.dest()...)...); err != nil {
		return nil, err
	}
	t := teacher.user()
	s.Class = &c
	s.Teacher = &t
	return &s, nil
}

// GetByID retrieves a session with its class and teacher.
func (r *ClassSessionRepository) GetByID(ctx context.Context, id int) (*model.ClassSession, error) {
	return scanSession(database.Conn(ctx, r.pool).QueryRow(ctx, sessionSelect+` WHERE s.id = $1`, id))
}

// GetByClassAndDate retrieves the session of classID on date, if any.
func (r *ClassSessionRepository) GetByClassAndDate(ctx context.Context, classID int, date string) (*model.ClassSession, error) {
	return scanSession(database.Conn(ctx, r.pool).QueryRow(ctx,
		sessionSelect+` WHERE s.class_id = $1 AND s.date = $2::text::date`, classID, date))
}

// List retrieves sessions matching f, newest date first. Unset filters are
// left out of the query.
func (r *ClassSessionRepository) List(ctx context.Context, f model.ClassSessionFilter) ([]model.ClassSession, error) {
	query := sessionSelect + ` WHERE TRUE`
	var args []any

	if f.ClassID != nil {
		args = append(args, *f.ClassID)
		query += ` AND s.class_id = ` + placeholder(len(args))
	}
	if f.TeacherID != nil {
		args = append(args, *f.TeacherID)
		query += ` AND s.teacher_id = ` + placeholder(len(args))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		query += ` AND s.date >= ` + placeholder(len(args)) + `::text::date`
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		query += ` AND s.date <= ` + placeholder(len(args)) + `::text::date`
	}
	if !f.IncludeInactive {
		query += ` AND s.is_active = TRUE`
	}
	query += ` ORDER BY s.date DESC, s.id DESC`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.ClassSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ExistsForClass reports whether any session references classID.
func (r *ClassSessionRepository) ExistsForClass(ctx context.Context, classID int) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_sessions WHERE class_id = $1)`, classID,
	).Scan(&exists)
	return exists, err
}

// Create inserts a session. A second session for the same class and date
// fails with a unique violation.
func (r *ClassSessionRepository) Create(ctx context.Context, s *model.ClassSession) error {
	return database.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO class_sessions (date, start_time, end_time, notes, is_active, class_id, teacher_id)
		 VALUES ($1::text::date, $2::text::time, $3::text::time, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		s.Date, s.StartTime, s.EndTime, s.Notes, s.IsActive, s.ClassID, s.TeacherID,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update persists every column of s.
func (r *ClassSessionRepository) Update(ctx context.Context, s *model.ClassSession) error {
	return database.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE class_sessions SET date = $1::text::date, start_time = $2::text::time, end_time = $3::text::time,
		        notes = $4, is_active = $5, class_id = $6, teacher_id = $7, updated_at = NOW()
		 WHERE id = $8
		 RETURNING updated_at`,
		s.Date, s.StartTime, s.EndTime, s.Notes, s.IsActive, s.ClassID, s.TeacherID, s.ID,
	).Scan(&s.UpdatedAt)
}

// Delete removes a session; its attendances cascade.
func (r *ClassSessionRepository) Delete(ctx context.Context, id int) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM class_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
