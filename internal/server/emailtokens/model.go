package emailtokens

import "time"

// VerificationToken is a single-use email verification token. Only the
// SHA-256 digest of the emailed token is stored; Consumed is nil until the
// token is redeemed.
type VerificationToken struct {
	ID        string
	AccountID string
	TokenHash string
	Expires   time.Time
	Consumed  *time.Time
}
