package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	u, err := svc.Create(ctx, NewUser{Username: "alice", Email: "alice@example.com", Password: "s3cret"})
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	require.NotEqual(t, "s3cret", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	u, err := svc.Create(ctx, NewUser{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	repo.mu.Lock()
	repo.byID[u.ID].IsActive = false
	repo.mu.Unlock()

	_, err = svc.Authenticate(ctx, "bob", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.Create(context.Background(), NewUser{Username: " ", Password: "pw"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(context.Background(), NewUser{Username: "carol"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	_, err := svc.Create(ctx, NewUser{Username: "dave", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewUser{Username: "dave", Password: "pw2"})
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUpdateProfile(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	u, err := svc.Create(ctx, NewUser{Username: "erin", Email: "e@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewUser{Username: "frank", Password: "pw"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{FirstName: strPtr("Erin"), LastName: strPtr("Smith")})
	require.NoError(t, err)
	require.Equal(t, "Erin", updated.FirstName)
	require.Equal(t, "e@example.com", updated.Email)

	_, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: strPtr("frank")})
	require.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: strPtr("")})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateProfile(ctx, 999, ProfileUpdate{})
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestSummaries(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	u, err := svc.Create(ctx, NewUser{Username: "gina", Email: "g@example.com", Password: "pw"})
	require.NoError(t, err)

	got, err := svc.Summaries(ctx, []int64{u.ID, 404})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "gina", got[u.ID].Username)
}
