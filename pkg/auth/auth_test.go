package auth

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
)

func testService() *Service {
	s := NewService("jwt-secret", "master-secret")
	s.bcryptCost = bcrypt.MinCost
	return s
}

func TestHMACKey(t *testing.T) {
	s := testService()

	key := s.GenerateHMACKey("acme.events")
	name, err := s.VerifyHMACKey(key)
	require.NoError(t, err)
	assert.Equal(t, "acme.events", name)

	_, err = NewService("jwt-secret", "other-secret").VerifyHMACKey(key)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	for _, bad := range []string{"", "nodot", ".sig", "name."} {
		_, err = s.VerifyHMACKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKeyFormat, bad)
	}
}

func TestToken(t *testing.T) {
	s := testService()

	token, err := s.CreateToken("admin")
	require.NoError(t, err)

	claims, err := s.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = NewService("other", "master-secret").VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_Expired(t *testing.T) {
	s := testService()
	s.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	token, err := s.CreateToken("admin")
	require.NoError(t, err)

	_, err = testService().VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := testService().HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestKeyPreview(t *testing.T) {
	assert.Equal(t, "****", KeyPreview("short"))
	assert.Equal(t, "acm...cdef", KeyPreview("acme.0123456789abcdef"))
}

func TestEnsureAdminExists(t *testing.T) {
	db, err := database.Open("", filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	s := testService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, s.EnsureAdminExists(db, "root", "pw", logger))
	require.NoError(t, s.EnsureAdminExists(db, "other", "pw", logger))

	var users []database.MasterUser
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)
	assert.True(t, CheckPasswordHash("pw", users[0].PasswordHash))
}
