package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestStaticAdminVerifier(t *testing.T) {
	v, err := NewStaticAdminVerifier("Admin@Example.com", "hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotContains(t, v.hash, "hunter2")

	tests := []struct {
		name     string
		email    string
		password string
		want     domain.Role
	}{
		{name: "admin credentials", email: "admin@example.com", password: "hunter2", want: domain.RoleAdmin},
		{name: "email case and spaces ignored", email: "  ADMIN@example.com ", password: "hunter2", want: domain.RoleAdmin},
		{name: "wrong password", email: "admin@example.com", password: "nope", want: domain.RoleUser},
		{name: "other email", email: "someone@example.com", password: "hunter2", want: domain.RoleUser},
		{name: "empty", email: "", password: "", want: domain.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(context.Background(), tt.email, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticAdminVerifier_NoAdminConfigured(t *testing.T) {
	v, err := NewStaticAdminVerifier("admin@example.com", "", bcrypt.MinCost)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), "admin@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, exp, err := tm.GenerateToken("admin@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "admin@example.com", claims.Subject)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, _, err := tm.GenerateToken("x", domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager("secret", 5)
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = expired.ParseToken(token)
	assert.Error(t, err, "expired")

	_, err = tm.ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordMatches(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := PasswordMatches(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = PasswordMatches(hash, "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = PasswordMatches("not-a-hash", "hunter2")
	assert.Error(t, err)
}
