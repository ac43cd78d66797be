package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"

	"gopkg.in/gomail.v2"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

var mailTmpl = template.Must(template.ParseFS(emailTemplates, "templates/email/*.html"))

// MailSender delivers a single HTML message.
type MailSender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{from: from, dialer: gomail.NewDialer(host, port, user, pass)}
}

func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// MailService renders campus emails and sends them in the background.
// A nil sender disables mail.
type MailService struct {
	sender MailSender
	wg     sync.WaitGroup
}

func NewMailService(sender MailSender) *MailService {
	if sender == nil {
		slog.Warn("mail service disabled: SMTP_HOST not set")
	}
	return &MailService{sender: sender}
}

func (s *MailService) Enabled() bool {
	return s != nil && s.sender != nil
}

func (s *MailService) sendAsync(to, subject, body string) {
	if !s.Enabled() || to == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sender.Send(to, subject, body); err != nil {
			slog.Error("failed to send email", "to", to, "subject", subject, "error", err)
			return
		}
		slog.Info("email sent", "to", to, "subject", subject)
	}()
}

// Wait blocks until queued messages have been handed to the relay.
func (s *MailService) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := mailTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *MailService) SendVerifyEmail(email, name, code string) {
	if !s.Enabled() {
		return
	}
	body, err := render("verify.html", map[string]string{"Name": name, "Code": code})
	if err != nil {
		slog.Error("error rendering verify email", "error", err)
		return
	}
	s.sendAsync(email, "Verify your campus account", body)
}

func (s *MailService) SendLeaveDecision(email, name string, approved bool, departure, ret, reason string) {
	if !s.Enabled() {
		return
	}
	body, err := render("leave_decision.html", map[string]any{
		"Name":      name,
		"Approved":  approved,
		"Departure": departure,
		"Return":    ret,
		"Reason":    reason,
	})
	if err != nil {
		slog.Error("error rendering leave decision email", "error", err)
		return
	}
	subject := "Your hostel leave was rejected"
	if approved {
		subject = "Your hostel leave was approved"
	}
	s.sendAsync(email, subject, body)
}

func (s *MailService) SendIssueResolved(email, name, title string) {
	if !s.Enabled() {
		return
	}
	body, err := render("issue_resolved.html", map[string]string{"Name": name, "Title": title})
	if err != nil {
		slog.Error("error rendering issue resolved email", "error", err)
		return
	}
	s.sendAsync(email, "Your reported issue has been resolved", body)
}
