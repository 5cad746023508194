// Package otp implements the one-time-code state machine behind
// registration and password reset. It issues rate-limited, hashed,
// short-lived codes, verifies them with constant-time comparison, and
// consumes them single-use. Registration state additionally travels
// in a signed client-held token so the flow survives a restart of
// ephemeral storage.
package otp

import (
	"context"
	"database/sql"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// PendingStore is the slice of the OTP repository the state machine
// drives. Each method maps to one transactional logical operation.
type PendingStore interface {
	ReplacePending(ctx context.Context, rec *model.PendingOTP) error
	ActivePending(ctx context.Context, email, flow string) (model.PendingOTP, error)
	RefreshPending(ctx context.Context, id uint64, otpHash string, expiresAt time.Time) error
	MarkUsed(ctx context.Context, id uint64) error
	StoreVerification(ctx context.Context, id uint64, verificationHash string) error
	PendingByVerification(ctx context.Context, email, verificationHash string) (model.PendingOTP, error)
	PromoteRegistration(ctx context.Context, name, email, passwordHash string) (uint64, error)
	CompleteReset(ctx context.Context, userID uint64, email, passwordHash string) error
	TakeWindow(ctx context.Context, email string, cap int, window time.Duration) (bool, time.Duration, int, error)
}

// UserStore is the slice of the user repository the state machine
// consults.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
}

// Sender delivers a plaintext code to its recipient. Implementations
// must never persist the code. A non-nil error is surfaced as the
// distinct delivery-failed outcome, separate from every validation
// failure.
type Sender interface {
	SendOTP(ctx context.Context, email, name, code, flow string) error
}

// Config carries the tunable parameters of the state machine.
type Config struct {
	CodeLength  int           // digits per code
	CodeTTL     time.Duration // code lifetime
	WindowCap   int           // max issuances per email per window
	Window      time.Duration // issuance window length
	TokenSecret string        // HS256 secret for registration tokens
	BcryptCost  int           // cost for hashing chosen passwords
	DevMode     bool          // expose plaintext codes in results (never in prod)
}

// IssueResult reports a successful (or masked) code issuance.
type IssueResult struct {
	Email             string
	ExpiresIn         time.Duration
	RequestsRemaining int
	RegistrationToken string // registration flow only
	DevCode           string // populated only in dev mode
	Masked            bool   // reset for an unknown email: pretend success
}

// Service is the OTP state machine. It is stateless between calls;
// everything lives in the store or in the client-held token.
type Service struct {
	store  PendingStore
	users  UserStore
	sender Sender
	cfg    Config
	now    func() time.Time
}

func NewService(store PendingStore, users UserStore, sender Sender, cfg Config) *Service {
	return &Service{store: store, users: users, sender: sender, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestRegistration starts the registration flow: validates the
// chosen identity, rate-limits issuance, persists a hashed pending
// record, mints the signed fallback token, and hands the plaintext
// code to the mailer.
func (s *Service) RequestRegistration(ctx context.Context, name, email, password, ip string) (IssueResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	if len(name) < 2 {
		return IssueResult{}, invalidf("name must be at least 2 characters")
	}
	if email == "" {
		return IssueResult{}, invalidf("email is required")
	}
	if !emailPattern.MatchString(email) {
		return IssueResult{}, invalidf("invalid email format")
	}
	if len(password) < 6 {
		return IssueResult{}, invalidf("password must be at least 6 characters")
	}
	if len(password) > 128 {
		return IssueResult{}, invalidf("password too long")
	}

	registered, err := s.users.EmailRegistered(ctx, email)
	if err != nil {
		log.Printf("otp: email lookup failed for %s: %v", email, err)
		return IssueResult{}, ErrDelivery
	}
	if registered {
		return IssueResult{}, ErrAlreadyRegistered
	}

	remaining, err := s.takeWindow(ctx, email)
	if err != nil {
		return IssueResult{}, err
	}

	passwordHash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		log.Printf("otp: password hash failed for %s: %v", email, err)
		return IssueResult{}, ErrDelivery
	}

	code, codeHash, expiresAt, err := s.newCode()
	if err != nil {
		return IssueResult{}, ErrDelivery
	}

	rec := model.PendingOTP{
		Email:        email,
		Flow:         model.FlowRegistration,
		Name:         &name,
		PasswordHash: &passwordHash,
		OTPHash:      codeHash,
		ExpiresAt:    expiresAt,
	}
	if ip != "" {
		rec.IPAddress = &ip
	}
	if err := s.store.ReplacePending(ctx, &rec); err != nil {
		// Storage loss during issuance must not crash the request; it
		// surfaces as a delivery failure the client can retry.
		log.Printf("otp: storing pending registration for %s failed: %v", email, err)
		return IssueResult{}, ErrDelivery
	}

	token, err := mintRegistrationToken(s.cfg.TokenSecret, name, email, passwordHash, codeHash, expiresAt)
	if err != nil {
		log.Printf("otp: minting registration token for %s failed: %v", email, err)
		return IssueResult{}, ErrDelivery
	}

	if err := s.deliver(ctx, email, name, code, model.FlowRegistration); err != nil {
		return IssueResult{}, err
	}

	log.Printf("otp: registration code issued for %s (expires %s)", email, expiresAt.Format(time.RFC3339))
	return s.issueResult(email, remaining, token, code), nil
}

// RequestReset starts the password-reset flow. Unknown emails produce
// a masked success so the endpoint cannot be used to enumerate
// accounts.
func (s *Service) RequestReset(ctx context.Context, email, ip string) (IssueResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return IssueResult{}, invalidf("email is required")
	}
	if !emailPattern.MatchString(email) {
		return IssueResult{}, invalidf("invalid email format")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err == sql.ErrNoRows || err == repository.ErrNotFound {
		log.Printf("otp: reset requested for unknown email %s, masking", email)
		return IssueResult{Email: email, Masked: true}, nil
	}
	if err != nil {
		log.Printf("otp: user lookup failed for %s: %v", email, err)
		return IssueResult{}, ErrDelivery
	}
	if !user.IsActive {
		return IssueResult{}, ErrAccountInactive
	}

	remaining, err := s.takeWindow(ctx, email)
	if err != nil {
		return IssueResult{}, err
	}

	code, codeHash, expiresAt, err := s.newCode()
	if err != nil {
		return IssueResult{}, ErrDelivery
	}

	rec := model.PendingOTP{
		Email:     email,
		Flow:      model.FlowPasswordReset,
		OTPHash:   codeHash,
		ExpiresAt: expiresAt,
	}
	if ip != "" {
		rec.IPAddress = &ip
	}
	if err := s.store.ReplacePending(ctx, &rec); err != nil {
		log.Printf("otp: storing pending reset for %s failed: %v", email, err)
		return IssueResult{}, ErrDelivery
	}

	if err := s.deliver(ctx, email, user.Name, code, model.FlowPasswordReset); err != nil {
		return IssueResult{}, err
	}

	log.Printf("otp: reset code issued for %s (expires %s)", email, expiresAt.Format(time.RFC3339))
	return s.issueResult(email, remaining, "", code), nil
}

// pendingRegistration is the unified view over the two sources of
// registration state: the persisted row and the signed token. rowID
// is zero when the state came from the token alone.
type pendingRegistration struct {
	rowID        uint64
	name         string
	email        string
	passwordHash string
	otpHash      string
	expiresAt    time.Time
}

// resolvePendingRegistration prefers a valid token for this email and
// falls back to the persisted row, so both paths share one
// verification body.
func (s *Service) resolvePendingRegistration(ctx context.Context, email, token string) (pendingRegistration, error) {
	if token != "" {
		if claims, err := parseRegistrationToken(s.cfg.TokenSecret, token, email, s.now); err == nil {
			return pendingRegistration{
				name:         claims.Name,
				email:        claims.Email,
				passwordHash: claims.PasswordHash,
				otpHash:      claims.OTPHash,
				expiresAt:    claims.ExpiresAt.Time,
			}, nil
		}
		log.Printf("otp: registration token for %s rejected, falling back to store", email)
	}
	p, err := s.store.ActivePending(ctx, email, model.FlowRegistration)
	if err == repository.ErrNotFound {
		return pendingRegistration{}, ErrNoPending
	}
	if err != nil {
		log.Printf("otp: pending lookup failed for %s: %v", email, err)
		return pendingRegistration{}, ErrNoPending
	}
	reg := pendingRegistration{
		rowID:     p.ID,
		email:     p.Email,
		otpHash:   p.OTPHash,
		expiresAt: p.ExpiresAt,
	}
	if p.Name != nil {
		reg.name = *p.Name
	}
	if p.PasswordHash != nil {
		reg.passwordHash = *p.PasswordHash
	}
	return reg, nil
}

// VerifyRegistration checks the code against the pending state and,
// on success, creates the account and consumes everything pending for
// the email. The password hash computed at request time is stored
// verbatim, never re-hashed.
func (s *Service) VerifyRegistration(ctx context.Context, email, code, token string) (uint64, string, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return 0, "", invalidf("email and code are required")
	}
	if len(code) != s.cfg.CodeLength || !allDigits(code) {
		return 0, "", invalidf("invalid code format")
	}

	reg, err := s.resolvePendingRegistration(ctx, email, token)
	if err != nil {
		return 0, "", err
	}

	if !VerifyCodeHash(code, reg.otpHash) {
		log.Printf("otp: registration code mismatch for %s", email)
		return 0, "", ErrInvalidCode
	}
	if s.now().After(reg.expiresAt) {
		if reg.rowID != 0 {
			_ = s.store.MarkUsed(ctx, reg.rowID)
		}
		log.Printf("otp: expired registration code presented for %s", email)
		return 0, "", ErrExpiredCode
	}

	userID, err := s.store.PromoteRegistration(ctx, reg.name, email, reg.passwordHash)
	if err == repository.ErrEmailExists {
		// Registered through another path while the code was pending.
		return 0, "", ErrAlreadyRegistered
	}
	if err != nil {
		log.Printf("otp: promoting registration for %s failed: %v", email, err)
		return 0, "", ErrDelivery
	}

	log.Printf("otp: account %d created for %s", userID, email)
	return userID, reg.name, nil
}

// VerifyReset checks a reset code and, on success, mints the
// single-use verification token required by ResetPassword, swapping
// its hash onto the pending row so the code cannot be replayed.
func (s *Service) VerifyReset(ctx context.Context, email, code string) (string, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", invalidf("email and code are required")
	}
	if len(code) != s.cfg.CodeLength || !allDigits(code) {
		return "", invalidf("invalid code format")
	}

	p, err := s.store.ActivePending(ctx, email, model.FlowPasswordReset)
	if err == repository.ErrNotFound {
		log.Printf("otp: reset verify for %s with no active code", email)
		return "", ErrNoPending
	}
	if err != nil {
		log.Printf("otp: pending lookup failed for %s: %v", email, err)
		return "", ErrNoPending
	}

	if !VerifyCodeHash(code, p.OTPHash) {
		log.Printf("otp: reset code mismatch for %s", email)
		return "", ErrInvalidCode
	}
	if s.now().After(p.ExpiresAt) {
		_ = s.store.MarkUsed(ctx, p.ID)
		log.Printf("otp: expired reset code presented for %s", email)
		return "", ErrExpiredCode
	}

	token, err := NewOpaqueToken()
	if err != nil {
		return "", ErrDelivery
	}
	if err := s.store.StoreVerification(ctx, p.ID, HashCode(token)); err != nil {
		log.Printf("otp: storing verification token for %s failed: %v", email, err)
		return "", ErrDelivery
	}

	log.Printf("otp: reset code verified for %s", email)
	return token, nil
}

// ResendRegistration issues a fresh code for an in-flight
// registration without requiring the old code. The identity (name and
// password hash) is preserved from the pending row, or recovered from
// the signed token when the row is gone.
func (s *Service) ResendRegistration(ctx context.Context, email, token string) (IssueResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return IssueResult{}, invalidf("email is required")
	}

	reg, err := s.resolvePendingRegistration(ctx, email, token)
	if err != nil {
		return IssueResult{}, err
	}

	remaining, err := s.takeWindow(ctx, email)
	if err != nil {
		return IssueResult{}, err
	}

	code, codeHash, expiresAt, err := s.newCode()
	if err != nil {
		return IssueResult{}, ErrDelivery
	}

	if reg.rowID != 0 {
		err = s.store.RefreshPending(ctx, reg.rowID, codeHash, expiresAt)
	} else {
		// Row was lost; rebuild it from the token so the store and the
		// refreshed token agree again.
		rec := model.PendingOTP{
			Email:        email,
			Flow:         model.FlowRegistration,
			Name:         &reg.name,
			PasswordHash: &reg.passwordHash,
			OTPHash:      codeHash,
			ExpiresAt:    expiresAt,
		}
		err = s.store.ReplacePending(ctx, &rec)
	}
	if err != nil {
		log.Printf("otp: refreshing pending registration for %s failed: %v", email, err)
		return IssueResult{}, ErrDelivery
	}

	fresh, err := mintRegistrationToken(s.cfg.TokenSecret, reg.name, email, reg.passwordHash, codeHash, expiresAt)
	if err != nil {
		return IssueResult{}, ErrDelivery
	}

	if err := s.deliver(ctx, email, reg.name, code, model.FlowRegistration); err != nil {
		return IssueResult{}, err
	}

	log.Printf("otp: registration code reissued for %s", email)
	return s.issueResult(email, remaining, fresh, code), nil
}

// ResetPassword is the only operation that mutates account
// credentials. It requires the single-use verification token from a
// successful VerifyReset, applies the new password, and clears every
// pending record and the rate window for the email.
func (s *Service) ResetPassword(ctx context.Context, email, verificationToken, newPassword string) error {
	email = normalizeEmail(email)
	verificationToken = strings.TrimSpace(verificationToken)
	newPassword = strings.TrimSpace(newPassword)

	if email == "" || verificationToken == "" || newPassword == "" {
		return invalidf("email, verification token and new password are required")
	}
	if len(newPassword) < 6 {
		return invalidf("password must be at least 6 characters")
	}
	if len(newPassword) > 128 {
		return invalidf("password too long")
	}

	p, err := s.store.PendingByVerification(ctx, email, HashCode(verificationToken))
	if err == repository.ErrNotFound {
		log.Printf("otp: reset attempt for %s with invalid verification token", email)
		return ErrNoPending
	}
	if err != nil {
		log.Printf("otp: verification lookup failed for %s: %v", email, err)
		return ErrNoPending
	}
	if s.now().After(p.ExpiresAt) {
		_ = s.store.MarkUsed(ctx, p.ID)
		return ErrExpiredCode
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return repository.ErrNotFound
	}

	passwordHash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return ErrDelivery
	}
	if err := s.store.CompleteReset(ctx, user.ID, email, passwordHash); err != nil {
		log.Printf("otp: completing reset for %s failed: %v", email, err)
		return ErrDelivery
	}

	log.Printf("otp: password reset completed for %s", email)
	return nil
}

// takeWindow consults the issuance window, mapping exhaustion to a
// RateLimitError with a positive retry-after.
func (s *Service) takeWindow(ctx context.Context, email string) (int, error) {
	allowed, retryAfter, remaining, err := s.store.TakeWindow(ctx, email, s.cfg.WindowCap, s.cfg.Window)
	if err != nil {
		log.Printf("otp: rate window check failed for %s: %v", email, err)
		return 0, ErrDelivery
	}
	if !allowed {
		log.Printf("otp: rate limit hit for %s, retry in %s", email, retryAfter)
		return 0, &RateLimitError{RetryAfter: retryAfter}
	}
	return remaining, nil
}

func (s *Service) newCode() (code, hash string, expiresAt time.Time, err error) {
	code, err = GenerateCode(s.cfg.CodeLength)
	if err != nil {
		log.Printf("otp: code generation failed: %v", err)
		return "", "", time.Time{}, err
	}
	return code, HashCode(code), s.now().Add(s.cfg.CodeTTL), nil
}

func (s *Service) deliver(ctx context.Context, email, name, code, flow string) error {
	if err := s.sender.SendOTP(ctx, email, name, code, flow); err != nil {
		log.Printf("otp: delivery to %s failed: %v", email, err)
		return ErrDelivery
	}
	return nil
}

func (s *Service) issueResult(email string, remaining int, token, code string) IssueResult {
	res := IssueResult{
		Email:             email,
		ExpiresIn:         s.cfg.CodeTTL,
		RequestsRemaining: remaining,
		RegistrationToken: token,
	}
	if s.cfg.DevMode {
		res.DevCode = code
	}
	return res
}
