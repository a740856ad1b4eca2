package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcdash/grcdash/internal/shared"
)

type stubRepo struct {
	users    map[int64]User
	err      error
	profiles []Profile
}

func (s *stubRepo) ListUsers(context.Context) ([]User, error) {
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, s.err
}

func (s *stubRepo) GetUser(_ context.Context, id int64) (User, error) {
	if s.err != nil {
		return User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) EnsureProfile(_ context.Context, userID int64, departmentID *int64) (Profile, error) {
	p := Profile{ID: int64(len(s.profiles) + 1), UserID: userID, DepartmentID: departmentID}
	s.profiles = append(s.profiles, p)
	return p, nil
}

func TestServicePrincipal(t *testing.T) {
	repo := &stubRepo{users: map[int64]User{
		1: {ID: 1, Username: "alice", IsActive: true, DepartmentName: "Security"},
		2: {ID: 2, Username: "bob", IsActive: false, IsSuperuser: true},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.Principal(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Username)

	u, err = svc.Principal(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, u, "inactive accounts are anonymous")

	u, err = svc.Principal(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = svc.Principal(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestServiceAuthorizePOAM(t *testing.T) {
	repo := &stubRepo{users: map[int64]User{
		1: {ID: 1, IsActive: true, DepartmentName: "Security"},
		2: {ID: 2, IsActive: true, DepartmentName: "Finance"},
	}}
	svc := NewService(repo)

	d, err := svc.AuthorizePOAM(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = svc.AuthorizePOAM(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, POAMDeniedMessage, d.Message)

	d, err = svc.AuthorizePOAM(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)

	repo.err = errors.New("db down")
	_, err = svc.AuthorizePOAM(context.Background(), 1)
	assert.Error(t, err)
}

func TestServiceAssignDepartment(t *testing.T) {
	repo := &stubRepo{}
	dept := int64(4)
	p, err := NewService(repo).AssignDepartment(context.Background(), 7, &dept)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)
	require.NotNil(t, p.DepartmentID)
	assert.Equal(t, dept, *p.DepartmentID)
}
