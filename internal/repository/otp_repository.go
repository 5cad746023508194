package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
)

// OTPRepo persists pending one-time codes and the per-email issuance
// rate-limit windows. Only hashes are ever stored: the otp_hash
// column holds the SHA-256 digest of the code and, after a verified
// password reset, the digest of the single-use verification token
// that replaces it.
//
// Every multi-statement logical operation (replace, promote, reset)
// runs inside a single transaction so a crash between statements
// cannot leave half-updated state.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// ReplacePending removes any unused pending code for (email, flow)
// and inserts the new record, making the fresh code the only
// authoritative one. The generated ID is populated on rec.
func (r *OTPRepo) ReplacePending(ctx context.Context, rec *model.PendingOTP) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM pending_otps WHERE email=? AND flow=? AND used=0",
		rec.Email, rec.Flow); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO pending_otps (email, flow, name, password_hash, otp_hash, expires_at, used, ip_address)
		VALUES (?,?,?,?,?,?,0,?)`,
		rec.Email, rec.Flow, rec.Name, rec.PasswordHash, rec.OTPHash, rec.ExpiresAt.UTC(), rec.IPAddress)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return tx.Commit()
}

// ActivePending returns the latest unused pending record for
// (email, flow), or ErrNotFound. Expiry is not checked here; callers
// decide how an expired record is surfaced and invalidated.
func (r *OTPRepo) ActivePending(ctx context.Context, email, flow string) (model.PendingOTP, error) {
	var p model.PendingOTP
	err := r.DB.QueryRowContext(ctx, `
		SELECT id,email,flow,name,password_hash,otp_hash,expires_at,used,ip_address,created_at
		FROM pending_otps
		WHERE email=? AND flow=? AND used=0
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)), flow).
		Scan(&p.ID, &p.Email, &p.Flow, &p.Name, &p.PasswordHash, &p.OTPHash,
			&p.ExpiresAt, &p.Used, &p.IPAddress, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// RefreshPending installs a new code hash and expiry on an existing
// pending record, preserving the registration identity (name and
// password hash) captured at request time.
func (r *OTPRepo) RefreshPending(ctx context.Context, id uint64, otpHash string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE pending_otps SET otp_hash=?, expires_at=?, created_at=NOW() WHERE id=? AND used=0",
		otpHash, expiresAt.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkUsed invalidates a pending record so it can never verify again.
// Used both on successful consumption and when an expired code is
// presented (passive invalidation).
func (r *OTPRepo) MarkUsed(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE pending_otps SET used=1 WHERE id=?", id)
	return err
}

// StoreVerification swaps the verified code's hash for the hash of a
// single-use verification token on the same row. Repurposing the row
// prevents replay of the original code while expressing "OTP proven,
// password not yet changed".
func (r *OTPRepo) StoreVerification(ctx context.Context, id uint64, verificationHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE pending_otps SET otp_hash=? WHERE id=? AND used=0",
		verificationHash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingByVerification finds the unused, unexpired reset record whose
// hash matches the presented verification token.
func (r *OTPRepo) PendingByVerification(ctx context.Context, email, verificationHash string) (model.PendingOTP, error) {
	var p model.PendingOTP
	err := r.DB.QueryRowContext(ctx, `
		SELECT id,email,flow,name,password_hash,otp_hash,expires_at,used,ip_address,created_at
		FROM pending_otps
		WHERE email=? AND flow=? AND otp_hash=? AND used=0 AND expires_at > UTC_TIMESTAMP()
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)), model.FlowPasswordReset, verificationHash).
		Scan(&p.ID, &p.Email, &p.Flow, &p.Name, &p.PasswordHash, &p.OTPHash,
			&p.ExpiresAt, &p.Used, &p.IPAddress, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// PromoteRegistration creates the real account from a verified
// registration (row- or token-backed), deletes the pending records
// and clears the rate-limit window for the email, all in one
// transaction. The password hash computed at request time is stored
// verbatim. Returns ErrEmailExists when the email was registered
// while the code was pending.
func (r *OTPRepo) PromoteRegistration(ctx context.Context, name, email, passwordHash string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, passwordHash, model.RoleUser)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM pending_otps WHERE email=? AND flow=?", email, model.FlowRegistration); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM otp_rate_limits WHERE email=?", email); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CompleteReset updates the account's password hash, deletes every
// pending record for the email regardless of flow, and
// clears the rate-limit window, all in one transaction.
func (r *OTPRepo) CompleteReset(ctx context.Context, userID uint64, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", passwordHash, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM pending_otps WHERE email=?", email); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM otp_rate_limits WHERE email=?", email); err != nil {
		return err
	}
	return tx.Commit()
}

// TakeWindow consults and advances the fixed-window issuance counter
// for an email. It returns whether another request is allowed, how
// long the caller must wait when it is not, and how many requests
// remain in the window when it is.
func (r *OTPRepo) TakeWindow(ctx context.Context, email string, cap int, window time.Duration) (allowed bool, retryAfter time.Duration, remaining int, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id          uint64
		count       int
		windowStart time.Time
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, request_count, window_start FROM otp_rate_limits WHERE email=? LIMIT 1",
		email).Scan(&id, &count, &windowStart)
	switch {
	case err == sql.ErrNoRows:
		// First request in a fresh window.
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO otp_rate_limits (email, request_count, window_start, last_request) VALUES (?,1,?,?)",
			email, now, now); err != nil {
			return false, 0, 0, err
		}
		return true, 0, cap - 1, tx.Commit()
	case err != nil:
		return false, 0, 0, err
	}

	if elapsed := now.Sub(windowStart); elapsed >= window {
		// Window elapsed, start over.
		if _, err := tx.ExecContext(ctx,
			"UPDATE otp_rate_limits SET request_count=1, window_start=?, last_request=? WHERE id=?",
			now, now, id); err != nil {
			return false, 0, 0, err
		}
		return true, 0, cap - 1, tx.Commit()
	} else if count >= cap {
		return false, window - elapsed, 0, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE otp_rate_limits SET request_count=request_count+1, last_request=? WHERE id=?",
		now, id); err != nil {
		return false, 0, 0, err
	}
	return true, 0, cap - count - 1, tx.Commit()
}

// ClearWindow drops the rate-limit row for an email.
func (r *OTPRepo) ClearWindow(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM otp_rate_limits WHERE email=?", strings.ToLower(strings.TrimSpace(email)))
	return err
}
