package model

import "time"

// OTP flow identifiers stored in pending_otps.flow. Registration and
// password reset are independent flows with separate pending records.
const (
	FlowRegistration  = "registration"
	FlowPasswordReset = "password_reset"
)

// PendingOTP is one outstanding one-time code for an (email, flow)
// pair, mirroring the `pending_otps` table. The plaintext code is
// never stored; OTPHash holds its SHA-256 hex digest. For the
// registration flow the row also carries the chosen display name and
// a bcrypt hash of the chosen password, because no account exists yet.
//
// After a successful password-reset verification the OTPHash column
// is overwritten with the hash of a single-use verification token,
// repurposing the row so the original code can never be replayed.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – email the code was issued for (lower-cased).
//  Flow         – "registration" or "password_reset".
//  Name         – chosen display name (registration only, nullable).
//  PasswordHash – bcrypt hash of the chosen password (registration only).
//  OTPHash      – SHA-256 hex digest of the code or verification token.
//  ExpiresAt    – absolute expiry timestamp (creation + TTL).
//  Used         – set once consumed or invalidated; used rows never verify.
//  IPAddress    – origin IP recorded for auditing (nullable).
//  CreatedAt    – timestamp of creation.
type PendingOTP struct {
	ID           uint64    // pending_otps.id
	Email        string    // pending_otps.email
	Flow         string    // pending_otps.flow
	Name         *string   // pending_otps.name (nullable)
	PasswordHash *string   // pending_otps.password_hash (nullable)
	OTPHash      string    // pending_otps.otp_hash
	ExpiresAt    time.Time // pending_otps.expires_at
	Used         bool      // pending_otps.used
	IPAddress    *string   // pending_otps.ip_address (nullable)
	CreatedAt    time.Time // pending_otps.created_at
}

// RateLimitWindow is a per-email fixed-window counter for OTP
// issuance, mirroring the `otp_rate_limits` table. At most N requests
// are allowed per window; the row is reset when the window elapses
// and deleted when a flow completes successfully.
type RateLimitWindow struct {
	ID           uint64    // otp_rate_limits.id
	Email        string    // otp_rate_limits.email
	RequestCount int       // otp_rate_limits.request_count
	WindowStart  time.Time // otp_rate_limits.window_start
	LastRequest  time.Time // otp_rate_limits.last_request
}
