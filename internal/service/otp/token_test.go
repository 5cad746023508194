package otp

import (
	"strings"
	"testing"
	"time"
)

func TestRegistrationTokenRoundTrip(t *testing.T) {
	exp := time.Now().UTC().Add(5 * time.Minute)
	tok, err := mintRegistrationToken("secret", "Arun", "Arun@Example.com", "bcrypt-hash", "otp-hash", exp)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := parseRegistrationToken("secret", tok, "arun@example.com", time.Now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Name != "Arun" || claims.Email != "arun@example.com" {
		t.Errorf("identity mangled: %+v", claims)
	}
	if claims.PasswordHash != "bcrypt-hash" || claims.OTPHash != "otp-hash" {
		t.Errorf("hashes mangled: %+v", claims)
	}
}

func TestRegistrationTokenTamper(t *testing.T) {
	exp := time.Now().UTC().Add(5 * time.Minute)
	tok, err := mintRegistrationToken("secret", "Arun", "arun@example.com", "pwd", "otp", exp)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// flip a character in the payload segment
	parts := strings.SplitN(tok, ".", 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := parseRegistrationToken("secret", tampered, "arun@example.com", time.Now); err == nil {
		t.Error("tampered token accepted")
	}
}

func TestRegistrationTokenWrongSecret(t *testing.T) {
	exp := time.Now().UTC().Add(5 * time.Minute)
	tok, _ := mintRegistrationToken("secret", "Arun", "arun@example.com", "pwd", "otp", exp)

	if _, err := parseRegistrationToken("other-secret", tok, "arun@example.com", time.Now); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestRegistrationTokenExpired(t *testing.T) {
	exp := time.Now().UTC().Add(-time.Minute)
	tok, _ := mintRegistrationToken("secret", "Arun", "arun@example.com", "pwd", "otp", exp)

	if _, err := parseRegistrationToken("secret", tok, "arun@example.com", time.Now); err == nil {
		t.Error("expired token accepted")
	}
}

// Expiry must be judged against the caller's clock, never the wall
// clock, so a service running on an injected clock (and any replayed
// traffic in tests) agrees with itself about token validity.
func TestRegistrationTokenExpiryUsesCallerClock(t *testing.T) {
	clock := newClock()
	exp := clock.Now().Add(5 * time.Minute)
	tok, err := mintRegistrationToken("secret", "Arun", "arun@example.com", "pwd", "otp", exp)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// valid per the caller's clock, even though exp is long past in
	// wall time
	if _, err := parseRegistrationToken("secret", tok, "arun@example.com", clock.Now); err != nil {
		t.Errorf("token rejected against caller clock: %v", err)
	}

	// and expired once the caller's clock passes exp
	clock.Advance(5*time.Minute + time.Second)
	if _, err := parseRegistrationToken("secret", tok, "arun@example.com", clock.Now); err == nil {
		t.Error("token accepted past expiry on caller clock")
	}
}

func TestRegistrationTokenEmailMismatch(t *testing.T) {
	exp := time.Now().UTC().Add(5 * time.Minute)
	tok, _ := mintRegistrationToken("secret", "Arun", "arun@example.com", "pwd", "otp", exp)

	if _, err := parseRegistrationToken("secret", tok, "other@example.com", time.Now); err == nil {
		t.Error("token accepted for a different email")
	}
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode(6)
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != 6 || !allDigits(code) {
			t.Fatalf("malformed code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("codes do not vary")
	}
}

func TestVerifyCodeHash(t *testing.T) {
	h := HashCode("482913")
	if !VerifyCodeHash("482913", h) {
		t.Error("matching code rejected")
	}
	if VerifyCodeHash("482914", h) {
		t.Error("wrong code accepted")
	}
	if VerifyCodeHash("", h) {
		t.Error("empty code accepted")
	}
}
