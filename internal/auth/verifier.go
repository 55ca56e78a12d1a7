package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CredentialVerifier decides which role a set of credentials maps to.
// Unknown or wrong credentials are not an error; they map to RoleUser.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (domain.Role, error)
}

// StaticAdminVerifier recognises a single configured admin account. The
// password is held only as a bcrypt hash.
type StaticAdminVerifier struct {
	email string
	hash  string
}

// NewStaticAdminVerifier hashes the admin password once at start-up. With an
// empty email or password every caller is treated as a user.
func NewStaticAdminVerifier(email, password string, cost int) (*StaticAdminVerifier, error) {
	v := &StaticAdminVerifier{email: normalizeEmail(email)}
	if v.email == "" || password == "" {
		return v, nil
	}
	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	v.hash = hash
	return v, nil
}

// Verify returns RoleAdmin when both email and password match.
func (v *StaticAdminVerifier) Verify(_ context.Context, email, password string) (domain.Role, error) {
	if v.hash == "" {
		return domain.RoleUser, nil
	}
	emailMatch := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(v.email)) == 1
	// always run bcrypt so timing does not reveal whether the email matched
	ok, err := PasswordMatches(v.hash, password)
	if err != nil {
		return "", err
	}
	if ok && emailMatch {
		return domain.RoleAdmin, nil
	}
	return domain.RoleUser, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
