// Package mail delivers transactional email. Delivery failures are returned
// to the caller so flows like password reset can roll back state they wrote
// before sending.
package mail

import (
	"context"
	"log"
	"strings"
)

// Recipient is the addressee of a message.
type Recipient struct {
	Name  string
	Email string
}

// FirstName is used in greetings.
func (r Recipient) FirstName() string {
	if i := strings.IndexByte(r.Name, ' '); i > 0 {
		return r.Name[:i]
	}
	return r.Name
}

// Sender performs delivery of a templated message.
type Sender interface {
	Send(ctx context.Context, to Recipient, subject, template string, data map[string]any) error
}

// SendWelcome greets a new account, pointing at their profile page.
func SendWelcome(ctx context.Context, s Sender, to Recipient, url string) error {
	return s.Send(ctx, to, "Welcome to the Natours Family!", "welcome", map[string]any{
		"FirstName": to.FirstName(),
		"URL":       url,
	})
}

// SendPasswordReset delivers the one-time reset link.
func SendPasswordReset(ctx context.Context, s Sender, to Recipient, url string) error {
	return s.Send(ctx, to, "Your password reset token (valid for only 10 minutes)", "passwordReset", map[string]any{
		"FirstName": to.FirstName(),
		"URL":       url,
	})
}

// LogSender is the development sender: it logs instead of delivering.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to Recipient, subject, template string, data map[string]any) error {
	log.Printf("[mail] to=%s subject=%q template=%s data=%v", to.Email, subject, template, data)
	return nil
}
