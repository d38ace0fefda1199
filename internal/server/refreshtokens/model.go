package refreshtokens

import "time"

type RefreshToken struct {
	ID        string
	AccountID string
	Token     string
	Expires   time.Time
}
