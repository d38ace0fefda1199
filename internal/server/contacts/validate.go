package contacts

import (
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLength  = 50
	MaxEmailLength = 100
	MaxPhoneLength = 20
	MaxInfoLength  = 255
)

// ValidationError lists every contact field that failed validation, using
// the wire names (first_name, email, ...).
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

// validateContact checks a fully merged contact. today bounds the birthday:
// dates after it are rejected.
func validateContact(c *Contact, today time.Time) *ValidationError {
	var fields []string

	if strings.TrimSpace(c.FirstName) == "" || utf8.RuneCountInString(c.FirstName) > MaxNameLength {
		fields = append(fields, "first_name")
	}
	if strings.TrimSpace(c.LastName) == "" || utf8.RuneCountInString(c.LastName) > MaxNameLength {
		fields = append(fields, "last_name")
	}
	if !isValidContactEmail(c.Email) {
		fields = append(fields, "email")
	}
	if strings.TrimSpace(c.PhoneNumber) == "" || utf8.RuneCountInString(c.PhoneNumber) > MaxPhoneLength {
		fields = append(fields, "phone_number")
	}
	if c.Birthday.IsZero() || c.Birthday.After(today) {
		fields = append(fields, "birthday")
	}
	if utf8.RuneCountInString(c.AdditionalInfo) > MaxInfoLength {
		fields = append(fields, "additional_info")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func isValidContactEmail(email string) bool {
	if email == "" || utf8.RuneCountInString(email) > MaxEmailLength {
		return false
	}
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}
