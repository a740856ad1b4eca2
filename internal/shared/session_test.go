package shared

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
)

func newTestSessions(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestFlashSurvivesRedirect(t *testing.T) {
	sm := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/issues/new", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: "error", Message: "denied"})
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	next := httptest.NewRequest(http.MethodGet, "/issues", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "denied", flash.Message)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), next, loaded))

	again, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Nil(t, again.PopFlash(), "flash is shown once")
}

func TestSessionUserID(t *testing.T) {
	var nilSession *Session
	_, ok := nilSession.UserID()
	assert.False(t, ok)

	sess := &Session{}
	sess.SetUser("42")
	id, ok := sess.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	sess.SetUser("not-a-number")
	_, ok = sess.UserID()
	assert.False(t, ok)

	ctx := ContextWithSession(context.Background(), &Session{userID: "9"})
	assert.Equal(t, int64(9), CurrentUserID(ctx))
	assert.Equal(t, int64(0), CurrentUserID(context.Background()))
}

func TestDestroyClearsCookie(t *testing.T) {
	sm := newTestSessions(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Destroy(sess)
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
