package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/view"
)

func serveUsers(t *testing.T, repo *stubRepo, userID string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	sm := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := NewHandler(nil, NewService(repo), templates, shared.NewCSRFManager("csrfsecret"))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser(userID)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	handler.ListUsersForTest(rr, req)
	return rr, sess
}

func TestListUsersForAdmin(t *testing.T) {
	repo := &stubRepo{users: map[int64]User{
		1: {ID: 1, Username: "admin", IsActive: true, IsSuperuser: true},
		2: {ID: 2, Username: "sam", Email: "sam@example.com", IsActive: true, DepartmentName: SecurityDepartment},
	}}

	rr, _ := serveUsers(t, repo, "1")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "sam@example.com")
	assert.Contains(t, body, "Superuser")
	assert.Contains(t, body, `href="/users"`)
}

func TestListUsersRejectsMembers(t *testing.T) {
	repo := &stubRepo{users: map[int64]User{
		2: {ID: 2, Username: "sam", IsActive: true, DepartmentName: SecurityDepartment},
	}}

	rr, sess := serveUsers(t, repo, "2")

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
}
