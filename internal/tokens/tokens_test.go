package tokens

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("test-secret-32-bytes-should-be-long-enough")

func TestGenerateVerificationToken_RoundTrip(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	tok, err := GenerateVerificationToken(secret, "a@example.com", "jti-1", issued, time.Hour)
	if err != nil {
		t.Fatalf("GenerateVerificationToken error: %v", err)
	}
	claims, err := ParseVerificationToken(secret, tok)
	if err != nil {
		t.Fatalf("ParseVerificationToken error: %v", err)
	}
	if claims.Subject != "a@example.com" || claims.ID != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(issued.Add(time.Hour)) {
		t.Fatalf("exp = %v, want %v", claims.ExpiresAt.Time, issued.Add(time.Hour))
	}
}

func TestParseVerificationToken_ExpiredStillParses(t *testing.T) {
	tok, err := GenerateVerificationToken(secret, "a@example.com", "jti-2", time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("GenerateVerificationToken error: %v", err)
	}
	if _, err := ParseVerificationToken(secret, tok); err != nil {
		t.Fatalf("expired token should parse so its record can be checked: %v", err)
	}
}

func TestParseVerificationToken_WrongSecretFails(t *testing.T) {
	tok, _ := GenerateVerificationToken(secret, "a@example.com", "jti", time.Now(), time.Hour)
	_, err := ParseVerificationToken([]byte("different-secret-xxxxxxxxxxxxxxxx"), tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseVerificationToken_Malformed(t *testing.T) {
	if _, err := ParseVerificationToken(secret, "not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

// Rejected when alg=none (unsigned token)
func TestParseVerificationToken_AlgNoneRejected(t *testing.T) {
	headerEnc := new(jwt.Token).EncodeSegment([]byte(`{"alg":"none"}`))
	payloadEnc := new(jwt.Token).EncodeSegment([]byte(`{"sub":"a@example.com","jti":"x","purpose":"email_verification"}`))
	if _, err := ParseVerificationToken(secret, headerEnc+"."+payloadEnc+"."); err == nil {
		t.Fatalf("expected parse to reject alg=none token")
	}
}

func TestParseVerificationToken_TamperedPayload(t *testing.T) {
	tok, _ := GenerateVerificationToken(secret, "user@example.com", "jti-t", time.Now(), time.Hour)
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payload, _ := jwt.NewParser().DecodeSegment(parts[1])
	parts[1] = new(jwt.Token).EncodeSegment([]byte(strings.Replace(string(payload), "user@example.com", "attacker@example.com", 1)))
	if _, err := ParseVerificationToken(secret, strings.Join(parts, ".")); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}

func TestParseVerificationToken_WrongPurpose(t *testing.T) {
	claims := jwt.MapClaims{"sub": "a@example.com", "jti": "x", "purpose": "password_reset"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseVerificationToken(secret, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateVerificationToken_EmptySecret(t *testing.T) {
	if _, err := GenerateVerificationToken(nil, "a@example.com", "x", time.Now(), time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
