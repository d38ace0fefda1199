package contacts

import "context"

type Repository interface {
	Create(ctx context.Context, c *Contact) (*Contact, error)
	GetByID(ctx context.Context, ownerID string, id string) (*Contact, error)
	List(ctx context.Context, ownerID string, skip int, limit int) ([]*Contact, error)
	Update(ctx context.Context, c *Contact) (*Contact, error)
	Delete(ctx context.Context, ownerID string, id string) error
	Search(ctx context.Context, ownerID string, query string) ([]*Contact, error)

	// ListByBirthdayMonth returns the owner's contacts whose birthday falls in
	// one of the two given months, plus Feb 29 birthdays, which may surface in
	// March in non-leap years. Callers compute exact day distances.
	ListByBirthdayMonth(ctx context.Context, ownerID string, m1 int, m2 int) ([]*Contact, error)
}
