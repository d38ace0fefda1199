package httpapi

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/server/accounts"
	"github.com/dmitrijs2005/contactbook/internal/server/contacts"
)

// Date is a calendar date carried as "2006-01-02" on the wire.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	t, err := time.ParseInLocation(dateLayout, s[1:len(s)-1], time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %s: expected YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type accountResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type contactCreateRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	Birthday       Date   `json:"birthday"`
	AdditionalInfo string `json:"additional_info"`
}

// contactUpdateRequest is a partial update: absent fields keep their value.
type contactUpdateRequest struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
	PhoneNumber    *string `json:"phone_number"`
	Birthday       *Date   `json:"birthday"`
	AdditionalInfo *string `json:"additional_info"`
}

type contactResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	Birthday       Date      `json:"birthday"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newTokenResponse(pair *accounts.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	}
}

func newAccountResponse(a *accounts.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Email:      a.Email,
		IsVerified: a.IsVerified,
		AvatarURL:  a.AvatarURL,
		CreatedAt:  a.CreatedAt,
	}
}

func newContactResponse(c *contacts.Contact) contactResponse {
	return contactResponse{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		PhoneNumber:    c.PhoneNumber,
		Birthday:       Date{c.Birthday},
		AdditionalInfo: c.AdditionalInfo,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func newContactListResponse(list []*contacts.Contact) []contactResponse {
	result := make([]contactResponse, len(list))
	for i, c := range list {
		result[i] = newContactResponse(c)
	}
	return result
}
