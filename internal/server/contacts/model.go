package contacts

import "time"

// Contact is an address-book entry owned by a single account. Birthday
// carries a calendar date only; the time part is always UTC midnight.
type Contact struct {
	ID             string
	OwnerID        string
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       time.Time
	AdditionalInfo string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateParams carries the fields of a new contact.
type CreateParams struct {
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       time.Time
	AdditionalInfo string
}

// UpdateParams carries a partial update. Nil fields keep their current value.
type UpdateParams struct {
	FirstName      *string
	LastName       *string
	Email          *string
	PhoneNumber    *string
	Birthday       *time.Time
	AdditionalInfo *string
}
