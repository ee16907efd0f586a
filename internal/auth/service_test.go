package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/innsuite/innsuite/internal/auth"
	"github.com/innsuite/innsuite/internal/shared"
)

type uaRepo struct {
	stubRepo
	lastUA string
}

func (r *uaRepo) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	r.lastUA = ua
	return nil
}

func TestAuthenticateNormalizesEmail(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{ID: uuid.New(), Email: "chef@bistro.test", PasswordHash: string(hashed), IsActive: true}}
	svc := auth.NewService(repo)

	user, err := svc.Authenticate(context.Background(), "  Chef@Bistro.TEST ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, repo.user.ID, user.ID)

	_, err = svc.Authenticate(context.Background(), "chef@bistro.test", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), " ", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{ID: uuid.New(), Email: "old@bistro.test", PasswordHash: string(hashed)}}

	_, err = auth.NewService(repo).Authenticate(context.Background(), "old@bistro.test", "pw")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterSessionCapsUserAgent(t *testing.T) {
	repo := &uaRepo{}
	svc := auth.NewService(repo)

	err := svc.RegisterSession(context.Background(), "sid", uuid.New(), time.Now().Add(time.Hour), "127.0.0.1", strings.Repeat("x", 2000))
	require.NoError(t, err)
	assert.Len(t, repo.lastUA, 512)
}
