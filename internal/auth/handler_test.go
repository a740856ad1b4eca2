package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grcdash/grcdash/internal/auth"
	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/view"
	_ "github.com/grcdash/grcdash/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
	created  []auth.NewAccount
	hashes   []string
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) CreateAccount(ctx context.Context, acct auth.NewAccount, passwordHash string) (*auth.User, error) {
	s.created = append(s.created, acct)
	s.hashes = append(s.hashes, passwordHash)
	return &auth.User{ID: int64(len(s.created)), Username: acct.Username, PasswordHash: passwordHash, IsActive: true}, nil
}

func (s *stubRepo) SetPassword(ctx context.Context, userID int64, passwordHash string) error {
	s.hashes = append(s.hashes, passwordHash)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := auth.NewHandler(nil, auth.NewService(repo), templates, sessionManager, csrfManager)
	return handler, sessionManager
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// primeSession issues a GET so the session and CSRF token exist.
func primeSession(t *testing.T, handler *auth.Handler, sm *shared.SessionManager) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	return sess
}

func postLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, sess *shared.Session, form url.Values) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	form.Set(shared.CSRFFormField, sess.Get(shared.CSRFSessionKey))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})

	loaded, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), loaded)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	require.NoError(t, sm.Commit(ctx, res, req, loaded))
	return res, loaded
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login?next=/issues", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	require.NoError(t, sessionManager.Commit(ctx, res, req, sess))

	assert.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `name="username"`)
	assert.Contains(t, body, `value="/issues"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Username: "alice", PasswordHash: hashed(t, "correctpass"), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)
	require.NotEmpty(t, sess.Get(shared.CSRFSessionKey))

	res, loaded := postLogin(t, handler, sessionManager, sess, url.Values{"username": {"alice"}, "password": {"wrongpass"}})

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Please enter a correct username and password.")
	assert.Empty(t, loaded.User())
	assert.Empty(t, repo.sessions)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Username: "alice", PasswordHash: hashed(t, "correctpass")}}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)

	res, loaded := postLogin(t, handler, sessionManager, sess, url.Values{"username": {"alice"}, "password": {"correctpass"}})

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, loaded.User())
}

func TestLoginMissingFields(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})
	sess := primeSession(t, handler, sessionManager)

	res, _ := postLogin(t, handler, sessionManager, sess, url.Values{})

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "This field is required.")
}

func TestLoginSuccessRedirectsToNext(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 7, Username: "alice", PasswordHash: hashed(t, "correctpass"), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)

	res, loaded := postLogin(t, handler, sessionManager, sess, url.Values{
		"username": {"alice"},
		"password": {"correctpass"},
		"next":     {"/issues"},
	})

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/issues", res.Header().Get("Location"))
	assert.Equal(t, "7", loaded.User())
	assert.Equal(t, int64(7), repo.sessions[loaded.ID])
}

func TestLoginRejectsExternalNext(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 7, Username: "alice", PasswordHash: hashed(t, "correctpass"), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)

	res, _ := postLogin(t, handler, sessionManager, sess, url.Values{
		"username": {"alice"},
		"password": {"correctpass"},
		"next":     {"//evil.example"},
	})

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
}

func TestCreateAccountHashesPassword(t *testing.T) {
	repo := &stubRepo{}
	svc := auth.NewService(repo)
	dept := int64(3)

	user, err := svc.CreateAccount(context.Background(), auth.NewAccount{Username: " bob ", Password: "longenough", DepartmentID: &dept})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	require.Len(t, repo.created, 1)
	assert.Equal(t, &dept, repo.created[0].DepartmentID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[0]), []byte("longenough")))

	_, err = svc.CreateAccount(context.Background(), auth.NewAccount{Username: "carol", Password: "short"})
	assert.Error(t, err)
	assert.Len(t, repo.created, 1)
}
