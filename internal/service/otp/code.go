package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"math/big"
)

var ten = big.NewInt(10)

// GenerateCode returns a cryptographically random numeric code of the
// given length. Each digit is drawn independently so the code is
// uniform over the full numeric space, leading zeros included.
func GenerateCode(length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// HashCode returns the SHA-256 hex digest of a code or token. Only
// this digest is ever persisted.
//
// Known limitation, carried over deliberately: a single unsalted
// SHA-256 round over a 6-digit space is brute-forceable offline if
// the digest leaks. The short TTL and single-use consumption are the
// compensating controls.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyCodeHash compares a presented code against a stored digest in
// constant time, so response timing reveals nothing about how close a
// guess was.
func VerifyCodeHash(code, storedHash string) bool {
	computed := HashCode(code)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// NewOpaqueToken returns a URL-safe random token used as the
// single-use password-reset verification token.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// allDigits reports whether s consists solely of ASCII digits.
func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
