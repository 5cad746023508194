package otp

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/utils"
)

// testClock lets tests move time forward deterministically.
type testClock struct {
	t time.Time
}

func newClock() *testClock                   { return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)} }
func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// memStore reimplements the pending-OTP persistence contract in
// memory, including the fixed-window issuance counter.
type memStore struct {
	clock   *testClock
	nextID  uint64
	rows    []*model.PendingOTP
	windows map[string]*model.RateLimitWindow
	users   *memUsers

	failReplace bool // simulate storage loss during issuance
}

func newMemStore(clock *testClock, users *memUsers) *memStore {
	return &memStore{clock: clock, nextID: 1, windows: map[string]*model.RateLimitWindow{}, users: users}
}

func (m *memStore) ReplacePending(_ context.Context, rec *model.PendingOTP) error {
	if m.failReplace {
		return errors.New("storage unavailable")
	}
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.Email == rec.Email && r.Flow == rec.Flow && !r.Used {
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	rec.ID = m.nextID
	m.nextID++
	cp := *rec
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memStore) ActivePending(_ context.Context, email, flow string) (model.PendingOTP, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.Email == email && r.Flow == flow && !r.Used {
			return *r, nil
		}
	}
	return model.PendingOTP{}, repository.ErrNotFound
}

func (m *memStore) RefreshPending(_ context.Context, id uint64, otpHash string, expiresAt time.Time) error {
	for _, r := range m.rows {
		if r.ID == id {
			r.OTPHash = otpHash
			r.ExpiresAt = expiresAt
			r.Used = false
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) MarkUsed(_ context.Context, id uint64) error {
	for _, r := range m.rows {
		if r.ID == id {
			r.Used = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) StoreVerification(_ context.Context, id uint64, verificationHash string) error {
	for _, r := range m.rows {
		if r.ID == id {
			r.OTPHash = verificationHash
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) PendingByVerification(_ context.Context, email, verificationHash string) (model.PendingOTP, error) {
	for _, r := range m.rows {
		if r.Email == email && r.Flow == model.FlowPasswordReset && !r.Used &&
			r.OTPHash == verificationHash && r.ExpiresAt.After(m.clock.Now()) {
			return *r, nil
		}
	}
	return model.PendingOTP{}, repository.ErrNotFound
}

func (m *memStore) PromoteRegistration(_ context.Context, name, email, passwordHash string) (uint64, error) {
	if _, ok := m.users.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	id := m.users.add(name, email, passwordHash, true)
	m.dropEmail(email, model.FlowRegistration)
	delete(m.windows, email)
	return id, nil
}

func (m *memStore) CompleteReset(_ context.Context, userID uint64, email, passwordHash string) error {
	u, ok := m.users.byEmail[email]
	if !ok || u.ID != userID {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.dropEmail(email, "")
	delete(m.windows, email)
	return nil
}

// dropEmail removes pending rows for the email, optionally restricted
// to one flow.
func (m *memStore) dropEmail(email, flow string) {
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.Email == email && (flow == "" || r.Flow == flow) {
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
}

func (m *memStore) TakeWindow(_ context.Context, email string, cap int, window time.Duration) (bool, time.Duration, int, error) {
	now := m.clock.Now()
	w, ok := m.windows[email]
	if !ok {
		m.windows[email] = &model.RateLimitWindow{Email: email, RequestCount: 1, WindowStart: now, LastRequest: now}
		return true, 0, cap - 1, nil
	}
	elapsed := now.Sub(w.WindowStart)
	if elapsed >= window {
		w.RequestCount = 1
		w.WindowStart = now
		w.LastRequest = now
		return true, 0, cap - 1, nil
	}
	if w.RequestCount >= cap {
		return false, window - elapsed, 0, nil
	}
	w.RequestCount++
	w.LastRequest = now
	return true, 0, cap - w.RequestCount, nil
}

// memUsers is an in-memory user account table.
type memUsers struct {
	nextID  uint64
	byEmail map[string]*model.User
}

func newMemUsers() *memUsers { return &memUsers{nextID: 1, byEmail: map[string]*model.User{}} }

func (m *memUsers) add(name, email, passwordHash string, active bool) uint64 {
	id := m.nextID
	m.nextID++
	m.byEmail[email] = &model.User{ID: id, Name: name, Email: email, PasswordHash: passwordHash, Role: model.RoleUser, IsActive: active}
	return id
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return *u, nil
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUsers) EmailRegistered(_ context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

// memSender records delivered codes instead of emailing them.
type memSender struct {
	sent []sentCode
	err  error
}

type sentCode struct {
	email, code, flow string
}

func (m *memSender) SendOTP(_ context.Context, email, _, code, flow string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{email: email, code: code, flow: flow})
	return nil
}

func (m *memSender) last() sentCode {
	if len(m.sent) == 0 {
		return sentCode{}
	}
	return m.sent[len(m.sent)-1]
}

// harness bundles a service with its fakes.
type harness struct {
	svc    *Service
	store  *memStore
	users  *memUsers
	sender *memSender
	clock  *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := newClock()
	users := newMemUsers()
	store := newMemStore(clock, users)
	sender := &memSender{}
	svc := NewService(store, users, sender, Config{
		CodeLength:  6,
		CodeTTL:     5 * time.Minute,
		WindowCap:   3,
		Window:      10 * time.Minute,
		TokenSecret: "test-secret",
		BcryptCost:  4, // minimum cost keeps the tests fast
		DevMode:     false,
	})
	svc.now = clock.Now
	return &harness{svc: svc, store: store, users: users, sender: sender, clock: clock}
}

func ctxb() context.Context { return context.Background() }

// ----- registration flow -----

func TestRegistrationHappyPath(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", "10.0.0.1")
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	if res.RegistrationToken == "" {
		t.Error("expected a registration token")
	}
	if res.RequestsRemaining != 2 {
		t.Errorf("expected 2 requests remaining, got %d", res.RequestsRemaining)
	}
	code := h.sender.last().code
	if len(code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", code)
	}

	uid, name, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, "")
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}
	if uid == 0 || name != "Arun" {
		t.Errorf("unexpected result: uid=%d name=%q", uid, name)
	}

	u, err := h.users.GetByEmail(ctxb(), "arun@example.com")
	if err != nil {
		t.Fatalf("account was not created: %v", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, "secret123") {
		t.Error("stored hash does not match the chosen password")
	}
	if len(h.store.windows) != 0 {
		t.Error("rate window should be cleared after successful registration")
	}
}

func TestRegistrationWrongThenRightCode(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", ""); err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	code := h.sender.last().code

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", wrong, ""); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	// a failed attempt must not consume the code
	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, ""); err != nil {
		t.Fatalf("correct code rejected after a failed attempt: %v", err)
	}
}

func TestNewCodeInvalidatesOld(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", ""); err != nil {
		t.Fatalf("first request: %v", err)
	}
	oldCode := h.sender.last().code

	res, err := h.svc.ResendRegistration(ctxb(), "arun@example.com", "")
	if err != nil {
		t.Fatalf("ResendRegistration: %v", err)
	}
	newCode := h.sender.last().code
	if newCode == oldCode {
		t.Fatal("resend produced the same code")
	}

	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", oldCode, ""); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("old code should be invalid after resend, got %v", err)
	}
	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", newCode, res.RegistrationToken); err != nil {
		t.Errorf("fresh code rejected: %v", err)
	}
}

func TestRegistrationReplayRejected(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", ""); err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	code := h.sender.last().code
	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, ""); err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	// Same code again: all pending state was consumed, and the email
	// now belongs to an account.
	_, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, "")
	if !errors.Is(err, ErrNoPending) && !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("replay should be rejected, got %v", err)
	}
}

func TestRegistrationCodeExpiry(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", ""); err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	code := h.sender.last().code

	h.clock.Advance(5*time.Minute + time.Second)

	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, ""); !errors.Is(err, ErrExpiredCode) {
		t.Fatalf("expected ErrExpiredCode, got %v", err)
	}
	// the expired row was consumed; a second attempt finds nothing
	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, ""); !errors.Is(err, ErrNoPending) {
		t.Errorf("expected ErrNoPending after expiry consumption, got %v", err)
	}
}

func TestRegistrationTokenSurvivesStorageLoss(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", "")
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	code := h.sender.last().code

	// simulate an ephemeral store restart
	h.store.rows = nil

	uid, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, res.RegistrationToken)
	if err != nil {
		t.Fatalf("token fallback failed: %v", err)
	}
	if uid == 0 {
		t.Error("expected a created account")
	}
}

func TestResendRebuildsLostRowFromToken(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", "")
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	h.store.rows = nil

	fresh, err := h.svc.ResendRegistration(ctxb(), "arun@example.com", res.RegistrationToken)
	if err != nil {
		t.Fatalf("ResendRegistration after storage loss: %v", err)
	}
	code := h.sender.last().code

	// row is back: verification works without any token at all
	if _, _, err := h.svc.VerifyRegistration(ctxb(), "arun@example.com", code, ""); err != nil {
		t.Errorf("verify against rebuilt row failed: %v", err)
	}
	if fresh.RegistrationToken == "" {
		t.Error("resend should mint a fresh token")
	}
}

func TestRegistrationDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.users.add("Existing", "taken@example.com", "x", true)

	_, err := h.svc.RequestRegistration(ctxb(), "Arun", "taken@example.com", "secret123", "")
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegistrationValidation(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name, uname, email, password string
	}{
		{"short name", "A", "a@example.com", "secret123"},
		{"bad email", "Arun", "not-an-email", "secret123"},
		{"short password", "Arun", "a@example.com", "12345"},
	}
	for _, tc := range cases {
		_, err := h.svc.RequestRegistration(ctxb(), tc.uname, tc.email, tc.password, "")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestStorageFailureSurfacesAsDelivery(t *testing.T) {
	h := newHarness(t)
	h.store.failReplace = true

	_, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", "")
	if !errors.Is(err, ErrDelivery) {
		t.Errorf("expected ErrDelivery on storage loss, got %v", err)
	}
}

// ----- rate limiting -----

func TestIssuanceRateLimit(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		if _, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", ""); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	_, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", "")
	var rerr *RateLimitError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RateLimitError on 4th request, got %v", err)
	}
	if rerr.RetryAfterMinutes() < 1 {
		t.Errorf("retry-after should be at least a minute, got %d", rerr.RetryAfterMinutes())
	}

	// the window rolls over and requests are allowed again
	h.clock.Advance(10*time.Minute + time.Second)
	if _, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", ""); err != nil {
		t.Errorf("request after window rollover: %v", err)
	}
}

func TestRateWindowSharedAcrossFlows(t *testing.T) {
	h := newHarness(t)
	h.users.add("Arun", "arun@example.com", "x", true)

	// the window counts per email, not per flow
	for i := 0; i < 3; i++ {
		if _, err := h.svc.RequestReset(ctxb(), "arun@example.com", ""); err != nil {
			t.Fatalf("reset request %d: %v", i+1, err)
		}
	}
	_, err := h.svc.RequestReset(ctxb(), "arun@example.com", "")
	var rerr *RateLimitError
	if !errors.As(err, &rerr) {
		t.Errorf("expected RateLimitError, got %v", err)
	}
}

// ----- password reset flow -----

func TestResetHappyPath(t *testing.T) {
	h := newHarness(t)
	oldHash, _ := utils.HashPassword("oldpassword", 4)
	h.users.add("Arun", "arun@example.com", oldHash, true)

	if _, err := h.svc.RequestReset(ctxb(), "arun@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	code := h.sender.last().code
	if h.sender.last().flow != model.FlowPasswordReset {
		t.Errorf("expected password_reset flow, got %q", h.sender.last().flow)
	}

	token, err := h.svc.VerifyReset(ctxb(), "arun@example.com", code)
	if err != nil {
		t.Fatalf("VerifyReset: %v", err)
	}
	if token == "" {
		t.Fatal("expected a verification token")
	}

	if err := h.svc.ResetPassword(ctxb(), "arun@example.com", token, "brandnewpass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	u, _ := h.users.GetByEmail(ctxb(), "arun@example.com")
	if utils.VerifyPassword(u.PasswordHash, "oldpassword") {
		t.Error("old password still verifies after reset")
	}
	if !utils.VerifyPassword(u.PasswordHash, "brandnewpass") {
		t.Error("new password does not verify")
	}
	if len(h.store.windows) != 0 {
		t.Error("rate window should be cleared after a completed reset")
	}
}

func TestResetCodeCannotBeReplayedAfterVerify(t *testing.T) {
	h := newHarness(t)
	h.users.add("Arun", "arun@example.com", "x", true)

	if _, err := h.svc.RequestReset(ctxb(), "arun@example.com", ""); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	code := h.sender.last().code
	if _, err := h.svc.VerifyReset(ctxb(), "arun@example.com", code); err != nil {
		t.Fatalf("VerifyReset: %v", err)
	}

	// the row now holds the verification-token hash, not the code hash
	if _, err := h.svc.VerifyReset(ctxb(), "arun@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("code replay should fail, got %v", err)
	}
}

func TestVerificationTokenSingleUse(t *testing.T) {
	h := newHarness(t)
	h.users.add("Arun", "arun@example.com", "x", true)

	if _, err := h.svc.RequestReset(ctxb(), "arun@example.com", ""); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	token, err := h.svc.VerifyReset(ctxb(), "arun@example.com", h.sender.last().code)
	if err != nil {
		t.Fatalf("VerifyReset: %v", err)
	}
	if err := h.svc.ResetPassword(ctxb(), "arun@example.com", token, "brandnewpass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	err = h.svc.ResetPassword(ctxb(), "arun@example.com", token, "anotherpass")
	if !errors.Is(err, ErrNoPending) {
		t.Errorf("second use of verification token should fail, got %v", err)
	}
}

func TestResetMasksUnknownEmail(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.RequestReset(ctxb(), "nobody@example.com", "")
	if err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if !res.Masked {
		t.Error("expected a masked result for an unknown email")
	}
	if len(h.sender.sent) != 0 {
		t.Error("no code should be sent for an unknown email")
	}
}

func TestResetInactiveAccount(t *testing.T) {
	h := newHarness(t)
	h.users.add("Gone", "gone@example.com", "x", false)

	_, err := h.svc.RequestReset(ctxb(), "gone@example.com", "")
	if !errors.Is(err, ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive, got %v", err)
	}
}

func TestResetCodeExpiry(t *testing.T) {
	h := newHarness(t)
	h.users.add("Arun", "arun@example.com", "x", true)

	if _, err := h.svc.RequestReset(ctxb(), "arun@example.com", ""); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	code := h.sender.last().code

	h.clock.Advance(5*time.Minute + time.Second)

	if _, err := h.svc.VerifyReset(ctxb(), "arun@example.com", code); !errors.Is(err, ErrExpiredCode) {
		t.Errorf("expected ErrExpiredCode, got %v", err)
	}
}

func TestVerifyResetWithoutRequest(t *testing.T) {
	h := newHarness(t)
	h.users.add("Arun", "arun@example.com", "x", true)

	if _, err := h.svc.VerifyReset(ctxb(), "arun@example.com", "123456"); !errors.Is(err, ErrNoPending) {
		t.Errorf("expected ErrNoPending, got %v", err)
	}
}

// ----- dev mode -----

func TestDevModeExposesCode(t *testing.T) {
	h := newHarness(t)
	h.svc.cfg.DevMode = true

	res, err := h.svc.RequestRegistration(ctxb(), "Arun", "arun@example.com", "secret123", "")
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	if res.DevCode != h.sender.last().code {
		t.Errorf("dev code should match the delivered code")
	}

	h.svc.cfg.DevMode = false
	res, err = h.svc.ResendRegistration(ctxb(), "arun@example.com", "")
	if err != nil {
		t.Fatalf("ResendRegistration: %v", err)
	}
	if res.DevCode != "" {
		t.Error("plaintext code must not leak outside dev mode")
	}
}
