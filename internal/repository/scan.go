package repository

import (
	"fmt"

	"github.com/FrancoisMichell/seirin-sub000/internal/model"
)

// userColumns projects a users row aliased as alias, roles included.
func userColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.name, %[1]s.registry, %[1]s.password_hash, %[1]s.belt::text,
		%[1]s.birthday::text, %[1]s.training_since::text, %[1]s.is_active, %[1]s.instructor_id,
		%[1]s.created_at, %[1]s.updated_at,
		COALESCE((SELECT array_agg(ur.role::text ORDER BY ur.role) FROM user_roles ur WHERE ur.user_id = %[1]s.id), '{}')`, alias)
}

type userRow struct {
	u     model.User
	belt  string
	roles []string
}

func (r *userRow) dest() []any {
	return []any{
		&r.u.ID, &r.u.Name, &r.u.Registry, &r.u.PasswordHash, &r.belt,
		&r.u.Birthday, &r.u.TrainingSince, &r.u.IsActive, &r.u.InstructorID,
		&r.u.CreatedAt, &r.u.UpdatedAt, &r.roles,
	}
}

func (r *userRow) user() model.User {
	u := r.u
	u.Belt = model.Belt(r.belt)
	u.Roles = make([]model.Role, 0, len(r.roles))
	for _, role := range r.roles {
		u.Roles = append(u.Roles, model.Role(role))
	}
	return u
}

// classColumns projects a classes row aliased as alias, without relations.
func classColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.name, %[1]s.days_of_week, %[1]s.start_time::text, %[1]s.duration,
		%[1]s.is_active, %[1]s.teacher_id, %[1]s.created_at, %[1]s.updated_at`, alias)
}

func classDest(c *model.Class) []any {
	return []any{&c.ID, &c.Name, &c.DaysOfWeek, &c.StartTime, &c.Duration, &c.IsActive, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt}
}

// sessionColumns projects a class_sessions row aliased as alias, without relations.
func sessionColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.date::text, %[1]s.start_time::text, %[1]s.end_time::text, %[1]s.notes,
		%[1]s.is_active, %[1]s.class_id, %[1]s.teacher_id, %[1]s.created_at, %[1]s.updated_at`, alias)
}

func sessionDest(s *model.ClassSession) []any {
	return []any{&s.ID, &s.Date, &s.StartTime, &s.EndTime, &s.Notes, &s.IsActive, &s.ClassID, &s.TeacherID, &s.CreatedAt, &s.UpdatedAt}
}
