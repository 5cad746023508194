package otp

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The registration token is a signed, time-bounded envelope carrying
// the same fields as the pending registration row, so verification
// can proceed even when the persistent store lost the row (ephemeral
// storage restart). The client treats it as opaque and must echo it
// back unmodified on verify and resend. It embeds only hashes, never
// the plaintext code or password.

// registrationClaims is the signed claim set inside a registration
// token.
type registrationClaims struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"pwd"`
	OTPHash      string `json:"otp"`
	jwt.RegisteredClaims
}

var errBadToken = errors.New("invalid registration token")

// mintRegistrationToken signs an HS256 envelope expiring together
// with the code it carries.
func mintRegistrationToken(secret, name, email, passwordHash, otpHash string, expiresAt time.Time) (string, error) {
	claims := registrationClaims{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		OTPHash:      otpHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// parseRegistrationToken validates the signature and embedded expiry
// and checks that the token was minted for the presented email. The
// expiry check uses the caller's clock, not the wall clock, so the
// whole state machine moves on one notion of time. Any failure
// returns errBadToken; callers fall back to the persisted pending
// row.
func parseRegistrationToken(secret, token, email string, now func() time.Time) (*registrationClaims, error) {
	var claims registrationClaims
	tok, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadToken
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(now))
	if err != nil || !tok.Valid {
		return nil, errBadToken
	}
	if claims.Email != strings.ToLower(strings.TrimSpace(email)) {
		return nil, errBadToken
	}
	if claims.OTPHash == "" || claims.PasswordHash == "" {
		return nil, errBadToken
	}
	return &claims, nil
}
