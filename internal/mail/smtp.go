package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templateFS embed.FS

// SMTPSender delivers mail through a plain SMTP relay (Mailtrap in
// development, a real relay in production).
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	templates *template.Template
}

func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &SMTPSender{
		Host:      host,
		Port:      port,
		Username:  username,
		Password:  password,
		From:      from,
		templates: tmpl,
	}, nil
}

func (s *SMTPSender) Send(_ context.Context, to Recipient, subject, name string, data map[string]any) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, name+".html", data); err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	return smtp.SendMail(addr, auth, s.From, []string{to.Email}, msg.Bytes())
}
