package auth

import (
	"testing"
	"time"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv("TASKNEST_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidate(t *testing.T) {
	setSecret(t)

	token, err := GenerateAccessToken("42", "user", 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("Subject = %q, want 42", claims.Subject)
	}
	if claims.Role != "USER" {
		t.Fatalf("Role = %q, want USER (normalized)", claims.Role)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("TokenType = %q", claims.TokenType)
	}
}

func TestGenerateRequiresSubjectAndTTL(t *testing.T) {
	setSecret(t)

	if _, err := GenerateAccessToken("  ", "user", time.Minute); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := GenerateAccessToken("42", "user", 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	setSecret(t)

	token, err := GenerateAccessToken("42", "user", time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	setSecret(t)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAndValidate(tok); err != ErrInvalidToken {
			t.Fatalf("token %q error = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	setSecret(t)
	token, err := GenerateAccessToken("42", "user", time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	t.Setenv("TASKNEST_AUTH_SECRET", "different-secret")
	ResetSecretForTests()

	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("mismatched secret error = %v, want ErrInvalidToken", err)
	}
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("TASKNEST_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateAccessToken("42", "user", time.Minute); err == nil {
		t.Fatal("expected error without configured secret")
	}
}
