// Package email sends workflow notifications via SMTP. Sends are best
// effort: callers log failures and carry on, since the triggering signoff or
// approval has already committed.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Well-known team addresses. CUS is copied on every notification.
const (
	AddrCUS    = "cus@cfa.harvard.edu"
	AddrArcOps = "arcops@cfa.harvard.edu"
	AddrMP     = "mp@cfa.harvard.edu"
	AddrHRC    = "hrcdude@cfa.harvard.edu"
	AddrACIS   = "acisdude@cfa.harvard.edu"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// Send delivers a plain text message. CUS is always copied, whether or not
// the caller listed it.
func (s *Service) Send(to []string, subject, body string, cc []string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	cc = withCUS(cc, to)

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	if len(cc) > 0 {
		fmt.Fprintf(&msg, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n%s", body)

	envelope := append(append([]string{}, to...), cc...)
	return smtp.SendMail(s.server, s.auth, s.config.From, envelope, []byte(msg.String()))
}

// withCUS ensures AddrCUS appears in the cc list unless it is already a
// direct recipient.
func withCUS(cc, to []string) []string {
	for _, addr := range to {
		if strings.EqualFold(addr, AddrCUS) {
			return cc
		}
	}
	for _, addr := range cc {
		if strings.EqualFold(addr, AddrCUS) {
			return cc
		}
	}
	return append(append([]string{}, cc...), AddrCUS)
}
