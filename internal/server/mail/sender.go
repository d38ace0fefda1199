package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers a single message synchronously.
type Sender interface {
	Send(m Message) error
}

// SMTPSender delivers mail through a plain SMTP endpoint. smtp.SendMail
// upgrades the connection with STARTTLS when the server offers it.
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

func NewSMTPSender(host string, port int, user string, password string, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, password: password, from: from}
}

func (s *SMTPSender) Send(m Message) error {
	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, []string{m.To}, buildMessage(s.from, m)); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	return nil
}

func buildMessage(from string, m Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTML)
	return []byte(b.String())
}
