package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// writeConfigFile drops a YAML fixture into a per-test temp dir.
func writeConfigFile(t *testing.T, yaml string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

// securityYAML renders a config fixture. Empty strings and zero values make
// the corresponding field fail validation.
func securityYAML(provider string, minPasswordLength int, secretEnv string, expiryHours int) string {
	return fmt.Sprintf(`security:
  auth:
    provider: %q
    basic:
      min_password_length: %d
  public_endpoints:
    - "/health"
  jwt:
    secret_env: %q
    expiry_hours: %d
`, provider, minPasswordLength, secretEnv, expiryHours)
}

func TestLoadSecurityConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		configPath := writeConfigFile(t, `security:
  auth:
    provider: "basic"
    basic:
      min_password_length: 12
      weak_passwords:
        - "admin"
        - "password"
  public_endpoints:
    - "/health"
    - "/metrics"
  jwt:
    secret_env: "JWT_SECRET"
    expiry_hours: 24
`)

		config, err := LoadSecurityConfig(configPath)
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if config.Security.Auth.Provider != "basic" {
			t.Errorf("expected provider 'basic', got '%s'", config.Security.Auth.Provider)
		}
		if config.Security.Auth.Basic.MinPasswordLength != 12 {
			t.Errorf("expected min_password_length 12, got %d", config.Security.Auth.Basic.MinPasswordLength)
		}
		if len(config.Security.Auth.Basic.WeakPasswords) != 2 {
			t.Errorf("expected 2 weak passwords, got %d", len(config.Security.Auth.Basic.WeakPasswords))
		}
		if len(config.Security.PublicEndpoints) != 2 {
			t.Errorf("expected 2 public endpoints, got %d", len(config.Security.PublicEndpoints))
		}
		if config.Security.JWT.SecretEnv != "JWT_SECRET" {
			t.Errorf("expected secret_env 'JWT_SECRET', got '%s'", config.Security.JWT.SecretEnv)
		}
		if config.Security.JWT.ExpiryHours != 24 {
			t.Errorf("expected expiry_hours 24, got %d", config.Security.JWT.ExpiryHours)
		}
	})

	t.Run("empty weak passwords and public endpoints are allowed", func(t *testing.T) {
		configPath := writeConfigFile(t, `security:
  auth:
    provider: "basic"
    basic:
      min_password_length: 12
      weak_passwords: []
  public_endpoints: []
  jwt:
    secret_env: "JWT_SECRET"
    expiry_hours: 24
`)

		config, err := LoadSecurityConfig(configPath)
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if len(config.Security.Auth.Basic.WeakPasswords) != 0 {
			t.Errorf("expected 0 weak passwords, got %d", len(config.Security.Auth.Basic.WeakPasswords))
		}
		if len(config.Security.PublicEndpoints) != 0 {
			t.Errorf("expected 0 public endpoints, got %d", len(config.Security.PublicEndpoints))
		}
	})

	invalid := []struct {
		name     string
		yaml     string
		errorMsg string
	}{
		{"missing provider", securityYAML("", 12, "JWT_SECRET", 24), "auth provider is required"},
		{"zero min_password_length", securityYAML("basic", 0, "JWT_SECRET", 24), "min_password_length must be positive"},
		{"min_password_length too short", securityYAML("basic", 6, "JWT_SECRET", 24), "min_password_length must be at least 8"},
		{"missing jwt secret_env", securityYAML("basic", 12, "", 24), "jwt secret_env is required"},
		{"zero jwt expiry_hours", securityYAML("basic", 12, "JWT_SECRET", 0), "jwt expiry_hours must be positive"},
		{"negative jwt expiry_hours", securityYAML("basic", 12, "JWT_SECRET", -1), "jwt expiry_hours must be positive"},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfigFile(t, tt.yaml)

			_, err := LoadSecurityConfig(configPath)
			if err == nil {
				t.Fatal("expected error but got nil")
			}
			if want := "config validation failed: " + tt.errorMsg; err.Error() != want {
				t.Errorf("expected error '%s', got '%s'", want, err.Error())
			}
		})
	}
}

func TestLoadSecurityConfig_FileNotFound(t *testing.T) {
	if _, err := LoadSecurityConfig("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoadSecurityConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfigFile(t, `
security:
  auth:
    provider: "basic"
    basic:
      min_password_length: invalid
`)

	if _, err := LoadSecurityConfig(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSecurityConfig_Getters(t *testing.T) {
	configPath := writeConfigFile(t, `security:
  auth:
    provider: "basic"
    basic:
      min_password_length: 15
      weak_passwords:
        - "admin"
        - "password"
        - "123456"
  public_endpoints:
    - "/health"
    - "/health/ai"
    - "/metrics"
  jwt:
    secret_env: "MY_JWT_SECRET"
    expiry_hours: 48
`)

	config, err := LoadSecurityConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if config.GetAuthProvider() != "basic" {
		t.Errorf("expected provider 'basic', got '%s'", config.GetAuthProvider())
	}
	if config.GetMinPasswordLength() != 15 {
		t.Errorf("expected min password length 15, got %d", config.GetMinPasswordLength())
	}

	weakPasswords := config.GetWeakPasswords()
	if len(weakPasswords) != 3 || weakPasswords[0] != "admin" {
		t.Errorf("expected weak passwords starting with 'admin', got %v", weakPasswords)
	}

	publicEndpoints := config.GetPublicEndpoints()
	if len(publicEndpoints) != 3 || publicEndpoints[0] != "/health" {
		t.Errorf("expected public endpoints starting with '/health', got %v", publicEndpoints)
	}

	if config.GetJWTSecretEnv() != "MY_JWT_SECRET" {
		t.Errorf("expected secret env 'MY_JWT_SECRET', got '%s'", config.GetJWTSecretEnv())
	}
	if config.GetJWTExpiryHours() != 48 {
		t.Errorf("expected expiry hours 48, got %d", config.GetJWTExpiryHours())
	}
}

func TestValidateSecurityConfig_ProviderSpecificRules(t *testing.T) {
	jwt := JWTSection{SecretEnv: "JWT_SECRET", ExpiryHours: 24}

	t.Run("valid basic provider", func(t *testing.T) {
		err := validateSecurityConfig(&SecurityConfig{
			Security: SecuritySection{
				Auth: AuthSection{Provider: "basic", Basic: BasicAuthSection{MinPasswordLength: 12}},
				JWT:  jwt,
			},
		})
		if err != nil {
			t.Errorf("expected no error but got: %v", err)
		}
	})

	t.Run("non-basic provider skips password policy validation", func(t *testing.T) {
		// basic 以外のプロバイダーには basic セクションの検証は掛からない
		err := validateSecurityConfig(&SecurityConfig{
			Security: SecuritySection{
				Auth: AuthSection{Provider: "oauth"},
				JWT:  jwt,
			},
		})
		if err != nil {
			t.Errorf("expected no error but got: %v", err)
		}
	})
}
