package config

// SMTP settings for the outbound mailer.  When no password is
// configured the mailer falls back to development mode and logs the
// message instead of sending it; request-code handlers additionally
// refuse to surface plaintext codes outside of dev environments.

import "os"

// SMTPConfig carries everything needed to connect to an SMTP relay.
type SMTPConfig struct {
    Host     string // SMTP server hostname
    Port     int    // SMTP server port (587 for STARTTLS)
    Sender   string // envelope/from address
    FromName string // display name shown in the inbox
    Password string // SMTP password; empty enables development mode
}

// LoadSMTPConfig reads mailer settings from environment variables.
// All values are optional; the defaults match a typical Gmail relay
// and an unset password selects development mode.
func LoadSMTPConfig() SMTPConfig {
    return SMTPConfig{
        Host:     getenv("SMTP_SERVER", "smtp.gmail.com"),
        Port:     atoi(getenv("SMTP_PORT", "587")),
        Sender:   getenv("EMAIL_SENDER", "noreply@servonix.com"),
        FromName: getenv("EMAIL_FROM_NAME", "SERVONIX"),
        Password: os.Getenv("EMAIL_PASSWORD"),
    }
}
