// Package mail provides outgoing email composition and delivery. Delivery
// runs on a background dispatcher so request handlers never wait on SMTP.
package mail

import "fmt"

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// VerificationMessage builds the account verification email pointing at
// the given confirmation link.
func VerificationMessage(to string, link string) Message {
	return Message{
		To:      to,
		Subject: "Verify Your Email",
		HTML: fmt.Sprintf(
			`<html><body><h3>Welcome to Contactbook!</h3><p>Please confirm your email address by following <a href="%s">this link</a>.</p><p>If you did not create an account, you can ignore this message.</p></body></html>`,
			link),
	}
}
