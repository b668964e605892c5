package accountservice

import (
	"context"
	"testing"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *AccountService {
	t.Helper()
	return New(testutil.OpenTestDB(t), zap.NewNop())
}

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	account, err := svc.Create(ctx, CreateAccountParams{
		Username: "ops",
		Password: "s3cret",
		Email:    "ops@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, account.PasswordHash)

	authed, err := svc.Authenticate(ctx, "ops", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, account.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "ops", "wrong")
	assert.Error(t, err)
	_, err = svc.Authenticate(ctx, "nobody", "s3cret")
	assert.Error(t, err)
}

func TestCreateDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Create(ctx, CreateAccountParams{Username: "ops", Password: "a"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateAccountParams{Username: "ops", Password: "b"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}
