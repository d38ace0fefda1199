package accounts

import "time"

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	IsVerified   bool
	AvatarURL    string
	CreatedAt    time.Time
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
