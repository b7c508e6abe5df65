package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	authservice "rfp-radar/internal/service/auth"
)

// BasicAuthProvider validates the single admin account against the
// ADMIN_USER / ADMIN_USER_PASSWORD environment variables. The radar has no
// user table; one operator account is enough for the admin API.
type BasicAuthProvider struct {
	minPasswordLength int
	weakPasswords     []string
}

// NewBasicAuthProvider returns a provider with the given password policy.
func NewBasicAuthProvider(minPasswordLength int, weakPasswords []string) *BasicAuthProvider {
	return &BasicAuthProvider{
		minPasswordLength: minPasswordLength,
		weakPasswords:     weakPasswords,
	}
}

// ValidateCredentials checks the submitted credentials against the policy
// and then against the environment. All comparisons with the stored values
// are constant-time.
func (p *BasicAuthProvider) ValidateCredentials(ctx context.Context, creds authservice.Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("credentials must not be empty")
	}
	if len(creds.Password) < p.minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", p.minPasswordLength)
	}
	for _, weak := range p.weakPasswords {
		if creds.Password == weak || strings.HasPrefix(creds.Password, weak) {
			return fmt.Errorf("weak password detected")
		}
	}

	// タイミング攻撃対策として定数時間比較を使う
	userMatch := constantTimeEquals(creds.Username, os.Getenv("ADMIN_USER"))
	passMatch := constantTimeEquals(creds.Password, os.Getenv("ADMIN_USER_PASSWORD"))
	if !userMatch || !passMatch {
		return fmt.Errorf("invalid credentials")
	}

	return nil
}

// GetRequirements returns the password policy this provider enforces.
func (p *BasicAuthProvider) GetRequirements() authservice.CredentialRequirements {
	return authservice.CredentialRequirements{
		MinPasswordLength: p.minPasswordLength,
		WeakPasswords:     p.weakPasswords,
	}
}

// Name returns the provider name.
func (p *BasicAuthProvider) Name() string {
	return "basic"
}

// IdentifyUser maps an email address to a role. Only the admin account
// exists, so anything other than ADMIN_USER is "user not found".
func (p *BasicAuthProvider) IdentifyUser(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("email must not be empty")
	}
	if constantTimeEquals(email, os.Getenv("ADMIN_USER")) {
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("user not found")
}

func constantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
