// Package auth holds the transport-agnostic authentication service. The
// HTTP handler layer wraps it; the same service could back a CLI login.
package auth

import (
	"context"
	"strings"
)

// Credentials is a username/password pair as submitted by a client.
type Credentials struct {
	Username string
	Password string
}

// CredentialRequirements is the password policy a provider enforces.
type CredentialRequirements struct {
	MinPasswordLength int
	WeakPasswords     []string
}

// AuthProvider abstracts the credential store. The only implementation
// today reads the admin account from environment variables, but the
// interface leaves room for an IdP-backed one.
type AuthProvider interface {
	// ValidateCredentials validates user credentials.
	ValidateCredentials(ctx context.Context, creds Credentials) error

	// GetRequirements returns the credential requirements for this provider.
	GetRequirements() CredentialRequirements

	// IdentifyUser resolves the role for an authenticated identity.
	IdentifyUser(ctx context.Context, email string) (string, error)

	// Name returns the name of this provider.
	Name() string
}

// AuthService is the authentication entry point for the handler layer.
type AuthService struct {
	provider        AuthProvider
	publicEndpoints []string
}

// NewAuthService wires a provider with the list of paths that skip auth.
func NewAuthService(provider AuthProvider, publicEndpoints []string) *AuthService {
	return &AuthService{
		provider:        provider,
		publicEndpoints: publicEndpoints,
	}
}

// ValidateCredentials delegates to the configured provider.
func (s *AuthService) ValidateCredentials(ctx context.Context, creds Credentials) error {
	return s.provider.ValidateCredentials(ctx, creds)
}

// IsPublicEndpoint reports whether a path matches any configured public
// endpoint prefix.
func (s *AuthService) IsPublicEndpoint(path string) bool {
	for _, endpoint := range s.publicEndpoints {
		if strings.HasPrefix(path, endpoint) {
			return true
		}
	}
	return false
}

// GetProvider returns the active provider.
func (s *AuthService) GetProvider() AuthProvider {
	return s.provider
}
