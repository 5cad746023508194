package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	h, err := HashPassword("secret123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(h, "secret123") {
		t.Error("matching password rejected")
	}
	if VerifyPassword(h, "secret124") {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("not-a-bcrypt-hash", "secret123") {
		t.Error("malformed hash verified")
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	// out-of-range costs fall back to the default instead of failing
	for _, cost := range []int{-1, 0, bcrypt.MaxCost + 1} {
		h, err := HashPassword("secret123", cost)
		if err != nil {
			t.Fatalf("cost %d: %v", cost, err)
		}
		got, err := bcrypt.Cost([]byte(h))
		if err != nil {
			t.Fatalf("cost %d: reading hash cost: %v", cost, err)
		}
		if got != bcrypt.DefaultCost {
			t.Errorf("cost %d: expected default cost %d, got %d", cost, bcrypt.DefaultCost, got)
		}
	}
}
