package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FrancoisMichell/seirin-sub000/internal/config"
	"github.com/FrancoisMichell/seirin-sub000/internal/handler"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type tokens map[string]*service.Claims

func (t tokens) ValidateToken(_ context.Context, token string) (*service.Claims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid")
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	auth := tokens{
		"student": {UserID: 2, Roles: []model.Role{model.RoleStudent}},
	}
	handlers := &Handlers{
		Auth:         handler.NewAuthHandler(nil, nil),
		Student:      handler.NewStudentHandler(nil),
		Class:        handler.NewClassHandler(nil),
		ClassSession: handler.NewClassSessionHandler(nil),
		Attendance:   handler.NewAttendanceHandler(nil),
		LiveBoard:    handler.NewLiveBoardHandler(nil, nil, nil, nil, zerolog.Nop(), nil),
	}
	cfg := &config.Config{GinMode: gin.TestMode, LoginRateLimit: 5}
	return SetupRouter(ctx, auth, handlers, nil, zerolog.Nop(), cfg)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"read without token", http.MethodGet, "/classes", "", http.StatusUnauthorized},
		{"create class as student", http.MethodPost, "/classes", "student", http.StatusForbidden},
		{"start session as student", http.MethodPatch, "/class-sessions/1/start", "student", http.StatusForbidden},
		{"bulk attendance as student", http.MethodPost, "/attendances/bulk/1", "student", http.StatusForbidden},
		{"mark present as student", http.MethodPatch, "/attendances/1/mark-present", "student", http.StatusForbidden},
		{"enroll as student", http.MethodPost, "/classes/1/enroll/2", "student", http.StatusForbidden},
		{"me without token", http.MethodGet, "/teacher/me", "", http.StatusUnauthorized},
		{"live board without token", http.MethodGet, "/ws/class-sessions/1/attendance", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLoginIsNotCached(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/teacher/login", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
