package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes a chosen password with the configured
// cost. The cost is clamped into bcrypt's valid range so a
// misconfigured BCRYPT_COST degrades to the library default instead
// of erroring on every registration.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt
// hash. A malformed hash and a mismatch are both just a failed
// verification.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
