package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalDistinguishesAbsentNullAndValue(t *testing.T) {
	var req UpdateClassSessionRequest

	require.NoError(t, json.Unmarshal([]byte(`{"startTime":null,"notes":"bring gi"}`), &req))

	assert.True(t, req.StartTime.Set)
	assert.Nil(t, req.StartTime.Value)
	assert.True(t, req.Notes.Set)
	assert.Equal(t, "bring gi", *req.Notes.Value)
	assert.False(t, req.EndTime.Set)
}

func TestOptionalApply(t *testing.T) {
	existing := "18:00:00"
	dst := &existing

	Optional[string]{}.Apply(&dst)
	assert.Equal(t, "18:00:00", *dst)

	Null[string]().Apply(&dst)
	assert.Nil(t, dst)

	Some("19:00:00").Apply(&dst)
	assert.Equal(t, "19:00:00", *dst)
}

func TestAttendanceStatus(t *testing.T) {
	checkedIn := map[AttendanceStatus]bool{
		AttendancePending: false,
		AttendancePresent: true,
		AttendanceLate:    true,
		AttendanceAbsent:  false,
		AttendanceExcused: false,
	}
	for status, want := range checkedIn {
		assert.True(t, status.Valid(), status)
		assert.Equal(t, want, status.IsCheckedIn(), status)
	}
	assert.False(t, AttendanceStatus("").Valid())
	assert.False(t, AttendanceStatus("").IsCheckedIn())
}

func TestSessionState(t *testing.T) {
	start, end := "18:00:00", "19:30:00"
	s := ClassSession{}
	assert.Equal(t, SessionScheduled, s.State())
	s.StartTime = &start
	assert.Equal(t, SessionStarted, s.State())
	s.EndTime = &end
	assert.Equal(t, SessionEnded, s.State())
}

func TestNewPageMeta(t *testing.T) {
	assert.Equal(t, PageMeta{Total: 2, Page: 2, Limit: 1, TotalPages: 2}, NewPageMeta(2, 2, 1))
	assert.Equal(t, 3, NewPageMeta(21, 1, 10).TotalPages)
	assert.Equal(t, 0, NewPageMeta(0, 1, 10).TotalPages)
}

func TestUserHasRole(t *testing.T) {
	u := User{Roles: []Role{RoleStudent, RoleTeacher}}
	assert.True(t, u.HasRole(RoleTeacher))
	assert.False(t, (&User{Roles: []Role{RoleStudent}}).HasRole(RoleTeacher))
	assert.True(t, BeltBrown.Valid())
	assert.False(t, Belt("Red").Valid())
}
