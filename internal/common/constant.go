// Package common contains shared constants and sentinel errors used across
// contactbook components.
package common

const (
	// AuthorizationHeaderName is the HTTP header carrying the access token.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix is the expected scheme prefix of the Authorization header.
	BearerPrefix = "Bearer "
)
