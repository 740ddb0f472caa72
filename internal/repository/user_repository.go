package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles users and their roles.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by ID. Returns pgx.ErrNoRows when absent.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	return r.getOne(ctx, `u.id = $1`, id)
}

// GetByRegistry retrieves a user by registry.
func (r *UserRepository) GetByRegistry(ctx context.Context, registry string) (*model.User, error) {
	return r.getOne(ctx, `u.registry = $1`, registry)
}

func (r *UserRepository) getOne(ctx context.Context, where string, args ...any) (*model.User, error) {
	var row userRow
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns("u")+` FROM users u WHERE `+where, args...,
	).Scan(row.dest()...)
	if err != nil {
		return nil, err
	}
	u := row.user()
	return &u, nil
}

// ListByRole retrieves every user holding role, ordered by name.
func (r *UserRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+userColumns("u")+`
		 FROM users u
		 WHERE EXISTS (SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = $1::text::user_role)
		 ORDER BY u.name, u.id`, string(role))
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// ListStudentsPaginated returns one page of students and the total count.
func (r *UserRepository) ListStudentsPaginated(ctx context.Context, includeInactive bool, limit, offset int) ([]model.User, int, error) {
	q := database.Conn(ctx, r.pool)

	where := ` WHERE EXISTS (SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = 'student')`
	if !includeInactive {
		where += ` AND u.is_active = TRUE`
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+userColumns("u")+` FROM users u`+where+
			` ORDER BY u.name, u.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Create inserts a user and its roles. Callers wrap it in a transaction.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	q := database.Conn(ctx, r.pool)
	err := q.QueryRow(ctx,
		`INSERT INTO users (name, registry, password_hash, belt, birthday, training_since, is_active, instructor_id)
		 VALUES ($1, $2, $3, $4::text::belt, $5::text::date, $6::text::date, $7, $8)
		 RETURNING id, created_at, updated_at`,
		u.Name, u.Registry, u.PasswordHash, string(u.Belt), u.Birthday, u.TrainingSince, u.IsActive, u.InstructorID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return err
	}
	return r.replaceRoles(ctx, q, u.ID, u.Roles)
}

// Update persists every column of u, roles included.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	q := database.Conn(ctx, r.pool)
	err := q.QueryRow(ctx,
		`UPDATE users SET name = $1, registry = $2, password_hash = $3, belt = $4::text::belt,
		        birthday = $5::text::date, training_since = $6::text::date, is_active = $7,
		        instructor_id = $8, updated_at = NOW()
		 WHERE id = $9
		 RETURNING updated_at`,
		u.Name, u.Registry, u.PasswordHash, string(u.Belt), u.Birthday, u.TrainingSince, u.IsActive, u.InstructorID, u.ID,
	).Scan(&u.UpdatedAt)
	if err != nil {
		return err
	}
	return r.replaceRoles(ctx, q, u.ID, u.Roles)
}

func (r *UserRepository) replaceRoles(ctx context.Context, q database.Querier, userID int, roles []model.Role) error {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	if _, err := q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	_, err := q.Exec(ctx,
		`INSERT INTO user_roles (user_id, role)
		 SELECT $1, unnest($2::text[])::user_role
		 ON CONFLICT DO NOTHING`, userID, names)
	return err
}

// BulkCreate inserts many users in one batch. Registries already taken are
// skipped and reported by index in skipped.
func (r *UserRepository) BulkCreate(ctx context.Context, users []*model.User) (skipped []int, err error) {
	q := database.Conn(ctx, r.pool)

	batch := &pgx.Batch{}
	for _, u := range users {
		batch.Queue(
			`INSERT INTO users (name, registry, password_hash, belt, birthday, training_since, is_active, instructor_id)
			 VALUES ($1, $2, $3, $4::text::belt, $5::text::date, $6::text::date, $7, $8)
			 ON CONFLICT (registry) DO NOTHING
			 RETURNING id, created_at, updated_at`,
			u.Name, u.Registry, u.PasswordHash, string(u.Belt), u.Birthday, u.TrainingSince, u.IsActive, u.InstructorID,
		)
	}

	br := q.SendBatch(ctx, batch)
	for i, u := range users {
		err := br.QueryRow().Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			skipped = append(skipped, i)
			continue
		}
		if err != nil {
			br.Close()
			return nil, err
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}

	for i, u := range users {
		if containsIndex(skipped, i) {
			continue
		}
		if err := r.replaceRoles(ctx, q, u.ID, u.Roles); err != nil {
			return nil, err
		}
	}
	return skipped, nil
}

func containsIndex(list []int, i int) bool {
	for _, v := range list {
		if v == i {
			return true
		}
	}
	return false
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		var row userRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, err
		}
		users = append(users, row.user())
	}
	return users, rows.Err()
}

// placeholder returns "$n".
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
