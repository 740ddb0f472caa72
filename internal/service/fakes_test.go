package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// memDB mirrors the relational schema closely enough for service tests:
// unique and foreign key violations surface as *pgconn.PgError, session
// deletes cascade to attendances.
type memDB struct {
	mu          sync.Mutex
	seq         int
	tick        time.Time
	users       map[int]model.User
	classes     map[int]model.Class
	enrolled    map[int]map[int]bool
	sessions    map[int]model.ClassSession
	attendances map[int]model.Attendance
}

func newMemDB() *memDB {
	return &memDB{
		tick:        time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		users:       map[int]model.User{},
		classes:     map[int]model.Class{},
		enrolled:    map[int]map[int]bool{},
		sessions:    map[int]model.ClassSession{},
		attendances: map[int]model.Attendance{},
	}
}

func (db *memDB) nextID() int {
	db.seq++
	return db.seq
}

func (db *memDB) stamp() time.Time {
	db.tick = db.tick.Add(time.Second)
	return db.tick
}

func pgErr(code string) error {
	return &pgconn.PgError{Code: code}
}

// ─── users ──────────────────────────────────────────────────────────

type memUserStore struct{ db *memDB }

func (s memUserStore) GetByID(_ context.Context, id int) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (s memUserStore) GetByRegistry(_ context.Context, registry string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Registry != nil && *u.Registry == registry {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s memUserStore) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.User{}
	for _, u := range s.db.users {
		if u.HasRole(role) {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out, nil
}

func (s memUserStore) ListStudentsPaginated(_ context.Context, includeInactive bool, limit, offset int) ([]model.User, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	all := []model.User{}
	for _, u := range s.db.users {
		if u.HasRole(model.RoleStudent) && (includeInactive || u.IsActive) {
			all = append(all, u)
		}
	}
	sortUsers(all)
	return pageOf(all, limit, offset), len(all), nil
}

func (s memUserStore) registryTaken(registry *string, selfID int) bool {
	if registry == nil {
		return false
	}
	for id, u := range s.db.users {
		if id != selfID && u.Registry != nil && *u.Registry == *registry {
			return true
		}
	}
	return false
}

func (s memUserStore) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.registryTaken(u.Registry, 0) {
		return pgErr(database.CodeUniqueViolation)
	}
	u.ID = s.db.nextID()
	u.CreatedAt = s.db.stamp()
	u.UpdatedAt = u.CreatedAt
	s.db.users[u.ID] = *u
	return nil
}

func (s memUserStore) Update(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	if s.registryTaken(u.Registry, u.ID) {
		return pgErr(database.CodeUniqueViolation)
	}
	u.UpdatedAt = s.db.stamp()
	s.db.users[u.ID] = *u
	return nil
}

func (s memUserStore) BulkCreate(ctx context.Context, users []*model.User) ([]int, error) {
	var skipped []int
	for i, u := range users {
		if err := s.Create(ctx, u); err != nil {
			skipped = append(skipped, i)
		}
	}
	return skipped, nil
}

func sortUsers(users []model.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
}

func pageOf[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// ─── classes ────────────────────────────────────────────────────────

type memClassStore struct{ db *memDB }

func (s memClassStore) load(c model.Class) model.Class {
	teacher := s.db.users[c.TeacherID]
	c.Teacher = &teacher
	c.EnrolledStudents = []model.User{}
	for studentID := range s.db.enrolled[c.ID] {
		c.EnrolledStudents = append(c.EnrolledStudents, s.db.users[studentID])
	}
	sortUsers(c.EnrolledStudents)
	return c
}

func (s memClassStore) GetByID(_ context.Context, id int) (*model.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.classes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c = s.load(c)
	return &c, nil
}

func (s memClassStore) List(_ context.Context, teacherID *int, includeInactive bool) ([]model.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Class{}
	for _, c := range s.db.classes {
		if teacherID != nil && c.TeacherID != *teacherID {
			continue
		}
		if !includeInactive && !c.IsActive {
			continue
		}
		out = append(out, s.load(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memClassStore) Create(_ context.Context, c *model.Class) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[c.TeacherID]; !ok {
		return pgErr(database.CodeForeignKeyViolation)
	}
	c.ID = s.db.nextID()
	c.CreatedAt = s.db.stamp()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	stored.Teacher, stored.EnrolledStudents = nil, nil
	s.db.classes[c.ID] = stored
	return nil
}

func (s memClassStore) Update(_ context.Context, c *model.Class) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.classes[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	c.UpdatedAt = s.db.stamp()
	stored := *c
	stored.Teacher, stored.EnrolledStudents = nil, nil
	s.db.classes[c.ID] = stored
	return nil
}

func (s memClassStore) Delete(_ context.Context, id int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.classes[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, sess := range s.db.sessions {
		if sess.ClassID == id {
			return pgErr(database.CodeForeignKeyViolation)
		}
	}
	delete(s.db.classes, id)
	delete(s.db.enrolled, id)
	return nil
}

func (s memClassStore) AddStudent(_ context.Context, classID, studentID int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.enrolled[classID][studentID] {
		return pgErr(database.CodeUniqueViolation)
	}
	if s.db.enrolled[classID] == nil {
		s.db.enrolled[classID] = map[int]bool{}
	}
	s.db.enrolled[classID][studentID] = true
	return nil
}

func (s memClassStore) RemoveStudent(_ context.Context, classID, studentID int) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if !s.db.enrolled[classID][studentID] {
		return false, nil
	}
	delete(s.db.enrolled[classID], studentID)
	return true, nil
}

func (s memClassStore) IsEnrolled(_ context.Context, classID, studentID int) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.enrolled[classID][studentID], nil
}

// ─── class sessions ─────────────────────────────────────────────────

type memSessionStore struct{ db *memDB }

func (s memSessionStore) load(sess model.ClassSession) model.ClassSession {
	class := s.db.classes[sess.ClassID]
	teacher := s.db.users[sess.TeacherID]
	sess.Class = &class
	sess.Teacher = &teacher
	return sess
}

func (s memSessionStore) GetByID(_ context.Context, id int) (*model.ClassSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sess, ok := s.db.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	sess = s.load(sess)
	return &sess, nil
}

func (s memSessionStore) GetByClassAndDate(_ context.Context, classID int, date string) (*model.ClassSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, sess := range s.db.sessions {
		if sess.ClassID == classID && sess.Date == date {
			sess = s.load(sess)
			return &sess, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s memSessionStore) List(_ context.Context, f model.ClassSessionFilter) ([]model.ClassSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.ClassSession{}
	for _, sess := range s.db.sessions {
		switch {
		case f.ClassID != nil && sess.ClassID != *f.ClassID,
			f.TeacherID != nil && sess.TeacherID != *f.TeacherID,
			f.StartDate != nil && sess.Date < *f.StartDate,
			f.EndDate != nil && sess.Date > *f.EndDate,
			!f.IncludeInactive && !sess.IsActive:
			continue
		}
		out = append(out, s.load(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s memSessionStore) ExistsForClass(_ context.Context, classID int) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, sess := range s.db.sessions {
		if sess.ClassID == classID {
			return true, nil
		}
	}
	return false, nil
}

func (s memSessionStore) conflicts(sess *model.ClassSession) bool {
	for id, other := range s.db.sessions {
		if id != sess.ID && other.ClassID == sess.ClassID && other.Date == sess.Date {
			return true
		}
	}
	return false
}

func (s memSessionStore) Create(_ context.Context, sess *model.ClassSession) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.conflicts(sess) {
		return pgErr(database.CodeUniqueViolation)
	}
	sess.ID = s.db.nextID()
	sess.CreatedAt = s.db.stamp()
	sess.UpdatedAt = sess.CreatedAt
	stored := *sess
	stored.Class, stored.Teacher = nil, nil
	s.db.sessions[sess.ID] = stored
	return nil
}

func (s memSessionStore) Update(_ context.Context, sess *model.ClassSession) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.sessions[sess.ID]; !ok {
		return pgx.ErrNoRows
	}
	if s.conflicts(sess) {
		return pgErr(database.CodeUniqueViolation)
	}
	sess.UpdatedAt = s.db.stamp()
	stored := *sess
	stored.Class, stored.Teacher = nil, nil
	s.db.sessions[sess.ID] = stored
	return nil
}

func (s memSessionStore) Delete(_ context.Context, id int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.sessions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.db.sessions, id)
	for aid, a := range s.db.attendances {
		if a.SessionID == id {
			delete(s.db.attendances, aid)
		}
	}
	return nil
}

// ─── attendances ────────────────────────────────────────────────────

type memAttendanceStore struct {
	db *memDB
	// bulkErr, when set, fails the next BulkCreate call.
	bulkErr error
}

func (s *memAttendanceStore) load(a model.Attendance) model.Attendance {
	sess := s.db.sessions[a.SessionID]
	class := s.db.classes[sess.ClassID]
	sess.Class = &class
	student := s.db.users[a.StudentID]
	a.Session = &sess
	a.Student = &student
	return a
}

func (s *memAttendanceStore) GetByID(_ context.Context, id int) (*model.Attendance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attendances[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	a = s.load(a)
	return &a, nil
}

func (s *memAttendanceStore) ExistsForStudent(_ context.Context, sessionID, studentID int) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.exists(sessionID, studentID), nil
}

func (s *memAttendanceStore) exists(sessionID, studentID int) bool {
	for _, a := range s.db.attendances {
		if a.SessionID == sessionID && a.StudentID == studentID {
			return true
		}
	}
	return false
}

func (s *memAttendanceStore) filtered(keep func(model.Attendance) bool, newestFirst bool) []model.Attendance {
	out := []model.Attendance{}
	for _, a := range s.db.attendances {
		if keep(a) {
			out = append(out, s.load(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt) != newestFirst
		}
		return (out[i].ID < out[j].ID) != newestFirst
	})
	return out
}

func (s *memAttendanceStore) List(_ context.Context, f model.AttendanceFilter) ([]model.Attendance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.filtered(func(a model.Attendance) bool {
		switch {
		case f.SessionID != nil && a.SessionID != *f.SessionID,
			f.StudentID != nil && a.StudentID != *f.StudentID,
			f.Status != nil && a.Status != *f.Status,
			f.IsEnrolledClass != nil && a.IsEnrolledClass != *f.IsEnrolledClass:
			return false
		}
		return true
	}, true), nil
}

func (s *memAttendanceStore) ListBySession(_ context.Context, sessionID int) ([]model.Attendance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.filtered(func(a model.Attendance) bool { return a.SessionID == sessionID }, false), nil
}

func (s *memAttendanceStore) ListByStudentPaginated(_ context.Context, studentID, limit, offset int) ([]model.Attendance, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	all := s.filtered(func(a model.Attendance) bool { return a.StudentID == studentID }, true)
	return pageOf(all, limit, offset), len(all), nil
}

func (s *memAttendanceStore) insert(a *model.Attendance) error {
	if s.exists(a.SessionID, a.StudentID) {
		return pgErr(database.CodeUniqueViolation)
	}
	a.ID = s.db.nextID()
	a.CreatedAt = s.db.stamp()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	stored.Session, stored.Student = nil, nil
	s.db.attendances[a.ID] = stored
	return nil
}

func (s *memAttendanceStore) Create(_ context.Context, a *model.Attendance) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.insert(a)
}

func (s *memAttendanceStore) BulkCreate(_ context.Context, list []model.Attendance) ([]model.Attendance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.bulkErr != nil {
		err := s.bulkErr
		s.bulkErr = nil
		return nil, err
	}
	out := []model.Attendance{}
	for _, a := range list {
		if err := s.insert(&a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memAttendanceStore) Update(_ context.Context, a *model.Attendance) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.attendances[a.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = a.Status
	stored.CheckedInAt = a.CheckedInAt
	stored.Notes = a.Notes
	stored.UpdatedAt = s.db.stamp()
	a.UpdatedAt = stored.UpdatedAt
	s.db.attendances[a.ID] = stored
	return nil
}

func (s *memAttendanceStore) Delete(_ context.Context, id int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.attendances[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.db.attendances, id)
	return nil
}

// ─── infrastructure ─────────────────────────────────────────────────

type fakeTx struct{ calls int }

func (t *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fakeRevoker struct {
	revoked map[string]time.Duration
	err     error
}

func (r *fakeRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if r.err != nil {
		return r.err
	}
	if r.revoked == nil {
		r.revoked = map[string]time.Duration{}
	}
	r.revoked[jti] = ttl
	return nil
}

func (r *fakeRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := r.revoked[jti]
	return ok, nil
}

// testEnv wires every service over one memDB.
type testEnv struct {
	db          *memDB
	tx          *fakeTx
	attendStore *memAttendanceStore
	users       *UserService
	classes     *ClassService
	sessions    *ClassSessionService
	attendances *AttendanceService
	now         time.Time
}

func newTestEnv(publisher EventPublisher) *testEnv {
	db := newMemDB()
	log := zerolog.New(io.Discard)
	env := &testEnv{
		db:          db,
		tx:          &fakeTx{},
		attendStore: &memAttendanceStore{db: db},
		now:         time.Date(2026, 3, 2, 21, 15, 30, 0, time.UTC),
	}
	hasher := PasswordHasher{Cost: bcrypt.MinCost}
	env.users = NewUserService(memUserStore{db}, env.tx, hasher, log)
	env.classes = NewClassService(memClassStore{db}, memSessionStore{db}, env.users, log)
	env.sessions = NewClassSessionService(memSessionStore{db}, env.classes, env.users, nil, time.UTC, log)
	env.sessions.now = func() time.Time { return env.now }
	env.attendances = NewAttendanceService(env.attendStore, env.sessions, env.classes, env.users, env.tx, publisher, nil, log)
	env.attendances.now = func() time.Time { return env.now }
	return env
}

func strPtr(s string) *string { return &s }

func (e *testEnv) mustUser(name, registry string, roles ...model.Role) *model.User {
	req := model.CreateUserRequest{Name: name}
	if registry != "" {
		req.Registry = strPtr(registry)
		req.Password = strPtr("secret123")
	}
	u, err := e.users.Create(context.Background(), req, roles)
	if err != nil {
		panic(err)
	}
	return u
}

func (e *testEnv) mustClass(teacherID int) *model.Class {
	c, err := e.classes.Create(context.Background(), model.CreateClassRequest{
		Name:       "Kids Judo",
		DaysOfWeek: []string{"monday", "wednesday"},
		StartTime:  "18:00:00",
		Duration:   60,
		TeacherID:  teacherID,
	})
	if err != nil {
		panic(err)
	}
	return c
}

func (e *testEnv) mustSession(classID, teacherID int, date string) *model.ClassSession {
	s, err := e.sessions.Create(context.Background(), model.CreateClassSessionRequest{
		ClassID:   classID,
		TeacherID: teacherID,
		Date:      date,
	})
	if err != nil {
		panic(err)
	}
	return s
}

func (e *testEnv) mustEnroll(classID int, studentIDs ...int) {
	for _, id := range studentIDs {
		if _, err := e.classes.EnrollStudent(context.Background(), classID, id); err != nil {
			panic(err)
		}
	}
}
