package otp

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors for the distinct outcomes of the OTP state machine.
// Handlers translate these into HTTP statuses and user-facing
// messages; the specific cause is logged server-side while clients
// see deliberately generic wording for the code-related failures.
var (
	// ErrInvalidCode covers hash mismatches and, toward the client,
	// doubles as the generic "invalid or expired" outcome.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrExpiredCode is returned when a correct code is presented past
	// its TTL. The presented record is invalidated so it cannot be
	// retried.
	ErrExpiredCode = errors.New("verification code has expired")

	// ErrNoPending is returned when no pending record exists for the
	// email and flow.
	ErrNoPending = errors.New("no pending verification found")

	// ErrAlreadyRegistered is returned when a registration is requested
	// (or completed) for an email that already has an account.
	ErrAlreadyRegistered = errors.New("email is already registered")

	// ErrAccountInactive is returned on reset requests for deactivated
	// accounts.
	ErrAccountInactive = errors.New("account is deactivated")

	// ErrDelivery is returned when the code could not be handed to the
	// outbound mailer, or when storage failed during issuance. It is
	// distinct from every validation outcome so clients can offer a
	// retry instead of blaming the input.
	ErrDelivery = errors.New("could not send verification email")
)

// ValidationError reports malformed input with a specific, actionable
// message that is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RateLimitError reports that the issuance cap for an email was hit.
// RetryAfter is always positive.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, please try again in %d minutes", e.RetryAfterMinutes())
}

// RetryAfterMinutes rounds the wait up to whole minutes for the
// user-facing message and the Retry-After style response field.
func (e *RateLimitError) RetryAfterMinutes() int {
	m := int(math.Ceil(e.RetryAfter.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}
