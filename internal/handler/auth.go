package handler

import (
	"context"      // context with cancellation for DB calls
	"database/sql" // sentinel sql.ErrNoRows on login lookups
	"errors"       // errors.As for typed service errors
	"net/http"     // HTTP status codes
	"strings"      // trimming and case helpers
	"time"         // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/config"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/service/assignment"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/service/otp"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints. Registration
// and password reset go through the OTP service; login and password
// change hit the user repository directly. The resolver supplies an
// admin's route assignments for the profile view.
type AuthHandler struct {
	Cfg      config.Config
	OTP      *otp.Service
	Users    *repository.UserRepo
	Resolver *assignment.Resolver
}

func NewAuthHandler(cfg config.Config, o *otp.Service, u *repository.UserRepo, res *assignment.Resolver) *AuthHandler {
	if o == nil || u == nil || res == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, OTP: o, Users: u, Resolver: res}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type verifyRegisterReq struct {
	Email             string `json:"email"`
	OTP               string `json:"otp"`
	RegistrationToken string `json:"registration_token"`
}
type resendReq struct {
	Email             string `json:"email"`
	RegistrationToken string `json:"registration_token"`
}
type requestOTPReq struct {
	Email string `json:"email"`
}
type verifyOTPReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
type resetPasswordReq struct {
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
	NewPassword       string `json:"new_password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// issueResp is the response body for every endpoint that sends a code.
type issueResp struct {
	Message           string `json:"message"`
	Email             string `json:"email"`
	ExpiresInMinutes  int    `json:"expires_in_minutes"`
	RequestsRemaining int    `json:"requests_remaining"`
	RegistrationToken string `json:"registration_token,omitempty"`
	DevOTP            string `json:"dev_otp,omitempty"`
}

func issueBody(msg string, res otp.IssueResult) issueResp {
	return issueResp{
		Message:           msg,
		Email:             res.Email,
		ExpiresInMinutes:  int(res.ExpiresIn / time.Minute),
		RequestsRemaining: res.RequestsRemaining,
		RegistrationToken: res.RegistrationToken,
		DevOTP:            res.DevCode,
	}
}

// writeOTPError maps OTP service errors onto HTTP responses. Invalid
// and expired codes share deliberately vague wording so the response
// does not reveal which check failed beyond what the client needs.
func writeOTPError(c echo.Context, err error) error {
	var verr *otp.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Message})
	}
	var rerr *otp.RateLimitError
	if errors.As(err, &rerr) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":       "too many requests",
			"retry_after": rerr.RetryAfterMinutes(),
		})
	}
	switch {
	case errors.Is(err, otp.ErrAlreadyRegistered):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, otp.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
	case errors.Is(err, otp.ErrExpiredCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code has expired, request a new one"})
	case errors.Is(err, otp.ErrNoPending):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no pending verification for this email"})
	case errors.Is(err, otp.ErrAccountInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
	case errors.Is(err, otp.ErrDelivery):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send verification code"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// ----- Registration flow -----

// Register starts a registration: no account is created yet, only a
// pending record plus an emailed code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.OTP.RequestRegistration(ctx, req.Name, req.Email, req.Password, c.RealIP())
	if err != nil {
		return writeOTPError(c, err)
	}
	return c.JSON(http.StatusOK, issueBody("verification code sent", res))
}

// VerifyRegister consumes the emailed code, creates the account and
// returns an access token so the client is logged in immediately.
func (h *AuthHandler) VerifyRegister(c echo.Context) error {
	var req verifyRegisterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, name, err := h.OTP.VerifyRegistration(ctx, req.Email, req.OTP, req.RegistrationToken)
	if err != nil {
		return writeOTPError(c, err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, "user", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusCreated, authResp{
		User:   userPart{ID: uid, Name: name, Email: strings.ToLower(strings.TrimSpace(req.Email)), Role: "user"},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// ResendRegister issues a fresh code for an in-flight registration.
func (h *AuthHandler) ResendRegister(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.OTP.ResendRegistration(ctx, req.Email, req.RegistrationToken)
	if err != nil {
		return writeOTPError(c, err)
	}
	return c.JSON(http.StatusOK, issueBody("verification code re-sent", res))
}

// ----- Password reset flow -----

// RequestOTP starts a password reset. The response is identical
// whether or not the email belongs to an account.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req requestOTPReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.OTP.RequestReset(ctx, req.Email, c.RealIP())
	if err != nil {
		return writeOTPError(c, err)
	}
	if res.Masked {
		return c.JSON(http.StatusOK, echo.Map{
			"message": "if the email is registered, a verification code has been sent",
			"email":   res.Email,
		})
	}
	return c.JSON(http.StatusOK, issueBody("verification code sent", res))
}

// VerifyOTP checks a reset code and returns the single-use
// verification token that authorizes the actual password change.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	token, err := h.OTP.VerifyReset(ctx, req.Email, req.OTP)
	if err != nil {
		return writeOTPError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":            "code verified",
		"verification_token": token,
	})
}

// ResetPassword sets the new password after the code was verified.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.OTP.ResetPassword(ctx, req.Email, req.VerificationToken, req.NewPassword); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no pending verification for this email"})
		}
		return writeOTPError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password has been reset"})
}

// ----- Session -----

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err == sql.ErrNoRows || (err == nil && !utils.VerifyPassword(u.PasswordHash, req.Password)) {
		// same answer for unknown email and wrong password
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:   userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// ChangePassword lets an authenticated user rotate their password by
// proving knowledge of the current one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.NewPassword) < 6 || len(req.NewPassword) > 128 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password must be 6-128 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Profile returns the authenticated user's account. Admins also see
// the routes currently assigned to them.
func (h *AuthHandler) Profile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	body := echo.Map{"user": userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}}
	if u.Role == model.RoleAdmin {
		routes, err := h.Resolver.RoutesForAdmin(ctx, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
		}
		body["assigned_routes"] = routes
	}
	return c.JSON(http.StatusOK, body)
}
