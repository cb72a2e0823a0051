package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"report-workflow-service/models"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		expected   string
	}{
		{
			name:       "valid bearer token",
			authHeader: "Bearer test-token-123",
			expected:   "test-token-123",
		},
		{
			name:       "missing bearer prefix",
			authHeader: "test-token-123",
			expected:   "",
		},
		{
			name:       "empty header",
			authHeader: "",
			expected:   "",
		},
		{
			name:       "bearer with empty token",
			authHeader: "Bearer ",
			expected:   "",
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic dXNlcjpwYXNz",
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractToken(tt.authHeader)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestParseActor(t *testing.T) {
	const secret = "test-secret"

	t.Run("admin token", func(t *testing.T) {
		tokenString := signToken(t, secret, jwt.MapClaims{
			"sub":  "admin-1",
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		actor, err := parseActor(tokenString, []byte(secret))
		if err != nil {
			t.Fatalf("parseActor failed: %v", err)
		}
		if actor.ID != "admin-1" || actor.Role != models.RoleAdmin {
			t.Errorf("unexpected actor: %+v", actor)
		}
	})

	t.Run("unknown role defaults to citizen", func(t *testing.T) {
		tokenString := signToken(t, secret, jwt.MapClaims{
			"sub":  "user-1",
			"role": "superuser",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		actor, err := parseActor(tokenString, []byte(secret))
		if err != nil {
			t.Fatalf("parseActor failed: %v", err)
		}
		if actor.Role != models.RoleCitizen {
			t.Errorf("unexpected role escalation: %+v", actor)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		tokenString := signToken(t, secret, jwt.MapClaims{
			"sub":  "user-1",
			"role": "citizen",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})

		if _, err := parseActor(tokenString, []byte(secret)); err == nil {
			t.Error("expected error for expired token")
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		tokenString := signToken(t, "other-secret", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		if _, err := parseActor(tokenString, []byte(secret)); err == nil {
			t.Error("expected error for wrong signature")
		}
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		tokenString := signToken(t, secret, jwt.MapClaims{
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		if _, err := parseActor(tokenString, []byte(secret)); err == nil {
			t.Error("expected error for missing subject")
		}
	})
}
