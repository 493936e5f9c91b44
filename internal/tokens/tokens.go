// Package tokens signs and parses the email verification tokens sent to
// users. A token only proves it was issued by this server; whether it is
// still usable is decided by the stored verification record.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PurposeEmailVerification is the only purpose accepted by ParseVerificationToken.
const PurposeEmailVerification = "email_verification"

var ErrInvalidToken = errors.New("invalid verification token")

// VerificationClaims carries the bound email in sub and the record id in jti.
type VerificationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateVerificationToken creates a signed HS256 token for email.
func GenerateVerificationToken(secret []byte, email, jti string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("verification secret is empty")
	}
	claims := VerificationClaims{
		Purpose: PurposeEmailVerification,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseVerificationToken checks the signature and purpose. Time-based
// claims are deliberately not validated here so an expired token can still
// be matched to its record and reported as expired rather than unknown.
func ParseVerificationToken(secret []byte, token string) (*VerificationClaims, error) {
	var claims VerificationClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Purpose != PurposeEmailVerification || claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	return &claims, nil
}
