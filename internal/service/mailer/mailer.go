// Package mailer delivers one-time codes over SMTP. The concrete
// sender is injected into the OTP service so tests can substitute a
// fake and so development environments can log instead of send.
package mailer

import (
	"context"
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/config"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
)

// SMTPSender sends OTP emails through an SMTP relay using gomail.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender { return &SMTPSender{cfg: cfg} }

// subjectFor picks the subject line per flow.
func subjectFor(flow string) string {
	if flow == model.FlowRegistration {
		return "Verify your SERVONIX registration"
	}
	return "Your SERVONIX password reset code"
}

// bodyFor renders a small HTML body. The code is the only dynamic
// sensitive value and is never logged by this sender.
func bodyFor(name, code, flow string) string {
	action := "reset your password"
	if flow == model.FlowRegistration {
		action = "complete your registration"
	}
	return fmt.Sprintf(
		"<p>Hello %s,</p><p>Use the code below to %s. It expires in 5 minutes.</p><h2>%s</h2><p>If you did not request this, you can ignore this email.</p>",
		name, action, code)
}

// SendOTP hands the plaintext code to the SMTP relay. Context is
// accepted for interface symmetry; gomail's dial-and-send is bounded
// by the relay's own timeouts.
func (s *SMTPSender) SendOTP(_ context.Context, email, name, code, flow string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.Sender, s.cfg.FromName)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subjectFor(flow))
	m.SetBody("text/html", bodyFor(name, code, flow))

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Sender, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", email, err)
	}
	return nil
}

// ConsoleSender is the development-mode sender: it logs that a code
// was issued instead of emailing it. Selected automatically when no
// SMTP password is configured; the OTP service separately refuses to
// expose plaintext codes outside dev environments.
type ConsoleSender struct{}

func (ConsoleSender) SendOTP(_ context.Context, email, name, code, flow string) error {
	log.Printf("mailer (dev): %s code for %s <%s>: %s", flow, name, email, code)
	return nil
}
