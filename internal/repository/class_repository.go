package repository

import (
	"context"

	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClassRepository handles classes and their enrollment.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

const classFromTeacher = ` FROM classes c JOIN users t ON t.id = c.teacher_id`

// GetByID retrieves a class with its teacher and enrolled students.
func (r *ClassRepository) GetByID(ctx context.Context, id int) (*model.Class, error) {
	q := database.Conn(ctx, r.pool)

	var (
		c       model.Class
		teacher userRow
	)
	err := q.QueryRow(ctx,
		`SELECT `+classColumns("c")+`, `+userColumns("t")+classFromTeacher+` WHERE c.id = $1`, id,
	).Scan(append(classDest(&c), teacher.dest()...)...)
	if err != nil {
		return nil, err
	}
	t := teacher.user()
	c.Teacher = &t

	enrolled, err := r.enrolledByClass(ctx, q, []int{c.ID})
	if err != nil {
		return nil, err
	}
	c.EnrolledStudents = enrolled[c.ID]
	if c.EnrolledStudents == nil {
		c.EnrolledStudents = []model.User{}
	}
	return &c, nil
}

// List retrieves classes ordered by name. A nil teacherID lists every teacher.
func (r *ClassRepository) List(ctx context.Context, teacherID *int, includeInactive bool) ([]model.Class, error) {
	q := database.Conn(ctx, r.pool)

	query := `SELECT ` + classColumns("c") + `, ` + userColumns("t") + classFromTeacher + ` WHERE TRUE`
	var args []any
	if teacherID != nil {
		args = append(args, *teacherID)
		query += ` AND c.teacher_id = ` + placeholder(len(args))
	}
	if !includeInactive {
		query += ` AND c.is_active = TRUE`
	}
	query += ` ORDER BY c.name, c.id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	classes := []model.Class{}
	ids := []int{}
	for rows.Next() {
		var (
			c       model.Class
			teacher userRow
		)
		if err := rows.Scan(append(classDest(&c), teacher.dest()...)...); err != nil {
			rows.Close()
			return nil, err
		}
		t := teacher.user()
		c.Teacher = &t
		classes = append(classes, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	enrolled, err := r.enrolledByClass(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range classes {
		classes[i].EnrolledStudents = enrolled[classes[i].ID]
		if classes[i].EnrolledStudents == nil {
			classes[i].EnrolledStudents = []model.User{}
		}
	}
	return classes, nil
}

func (r *ClassRepository) enrolledByClass(ctx context.Context, q database.Querier, classIDs []int) (map[int][]model.User, error) {
	out := make(map[int][]model.User, len(classIDs))
	if len(classIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx,
		`SELECT cs.class_id, `+userColumns("u")+`
		 FROM class_students cs JOIN users u ON u.id = cs.student_id
		 WHERE cs.class_id = ANY($1)
		 ORDER BY u.name, u.id`, classIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			classID int
			row     userRow
		)
		if err := rows.Scan(append([]any{&classID}, row.dest()...)...); err != nil {
			return nil, err
		}
		out[classID] = append(out[classID], row.user())
	}
	return out, rows.Err()
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	return database.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO classes (name, days_of_week, start_time, duration, is_active, teacher_id)
		 VALUES ($1, $2, $3::text::time, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.DaysOfWeek, c.StartTime, c.Duration, c.IsActive, c.TeacherID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update persists the scalar columns of c.
func (r *ClassRepository) Update(ctx context.Context, c *model.Class) error {
	return database.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE classes SET name = $1, days_of_week = $2, start_time = $3::text::time, duration = $4,
		        is_active = $5, teacher_id = $6, updated_at = NOW()
		 WHERE id = $7
		 RETURNING updated_at`,
		c.Name, c.DaysOfWeek, c.StartTime, c.Duration, c.IsActive, c.TeacherID, c.ID,
	).Scan(&c.UpdatedAt)
}

// Delete removes a class. Sessions referencing it make this fail with a
// foreign key violation.
func (r *ClassRepository) Delete(ctx context.Context, id int) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddStudent enrolls studentID. A repeated enrollment fails with a unique violation.
func (r *ClassRepository) AddStudent(ctx context.Context, classID, studentID int) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO class_students (class_id, student_id) VALUES ($1, $2)`, classID, studentID)
	return err
}

// RemoveStudent unenrolls studentID and reports whether a membership existed.
func (r *ClassRepository) RemoveStudent(ctx context.Context, classID, studentID int) (bool, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IsEnrolled reports whether studentID is enrolled in classID.
func (r *ClassRepository) IsEnrolled(ctx context.Context, classID, studentID int) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2)`,
		classID, studentID,
	).Scan(&exists)
	return exists, err
}
