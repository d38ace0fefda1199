package contacts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100

	// birthdayWindowDays is the inclusive upper bound of the upcoming-birthday
	// window: day 7 is in, day 8 is out.
	birthdayWindowDays = 7
)

// Service provides owner-scoped contact operations. Every call takes the
// owning account id; a contact belonging to someone else is indistinguishable
// from a missing one.
type Service struct {
	repo Repository

	// now is the request clock, replaceable in tests
	now func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, ownerID string, params CreateParams) (*Contact, error) {
	c := &Contact{
		OwnerID:        ownerID,
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		Email:          params.Email,
		PhoneNumber:    params.PhoneNumber,
		Birthday:       dateOnly(params.Birthday),
		AdditionalInfo: params.AdditionalInfo,
	}
	if verr := validateContact(c, dateOnly(s.now())); verr != nil {
		return nil, verr
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("error creating contact: %v", err)
	}
	return created, nil
}

// List returns a page of the owner's contacts in creation order. Negative
// skip is treated as 0, limit is clamped to [1, MaxListLimit], 0 means the
// default page size.
func (s *Service) List(ctx context.Context, ownerID string, skip int, limit int) ([]*Contact, error) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case limit == 0:
		limit = DefaultListLimit
	case limit < 1:
		limit = 1
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	result, err := s.repo.List(ctx, ownerID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing contacts: %v", err)
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, ownerID string, id string) (*Contact, error) {
	c, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading contact: %v", err)
	}
	return c, nil
}

// Update applies a partial update: nil params keep the stored value. The
// merged contact is validated as a whole before it is written.
func (s *Service) Update(ctx context.Context, ownerID string, id string, params UpdateParams) (*Contact, error) {
	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if params.FirstName != nil {
		merged.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		merged.LastName = *params.LastName
	}
	if params.Email != nil {
		merged.Email = *params.Email
	}
	if params.PhoneNumber != nil {
		merged.PhoneNumber = *params.PhoneNumber
	}
	if params.Birthday != nil {
		merged.Birthday = dateOnly(*params.Birthday)
	}
	if params.AdditionalInfo != nil {
		merged.AdditionalInfo = *params.AdditionalInfo
	}

	if verr := validateContact(&merged, dateOnly(s.now())); verr != nil {
		return nil, verr
	}

	updated, err := s.repo.Update(ctx, &merged)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating contact: %v", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, ownerID string, id string) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting contact: %v", err)
	}
	return nil
}

// Search matches query as a case-insensitive substring of first name, last
// name or email. A blank query returns an empty result without touching the
// database.
func (s *Service) Search(ctx context.Context, ownerID string, query string) ([]*Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Contact{}, nil
	}

	result, err := s.repo.Search(ctx, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("error searching contacts: %v", err)
	}
	return result, nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday (month and
// day, year ignored) occurs within the next seven days, today inclusive.
// The result is ordered by day distance, then contact id.
func (s *Service) UpcomingBirthdays(ctx context.Context, ownerID string) ([]*Contact, error) {
	today := dateOnly(s.now())

	// окно покрывает максимум два календарных месяца
	m1 := int(today.Month())
	m2 := int(today.AddDate(0, 0, birthdayWindowDays).Month())

	candidates, err := s.repo.ListByBirthdayMonth(ctx, ownerID, m1, m2)
	if err != nil {
		return nil, fmt.Errorf("error listing birthdays: %v", err)
	}

	type scored struct {
		c *Contact
		d int
	}
	upcoming := []scored{}
	for _, c := range candidates {
		if d := daysUntilBirthday(today, c.Birthday); d <= birthdayWindowDays {
			upcoming = append(upcoming, scored{c: c, d: d})
		}
	}

	sort.Slice(upcoming, func(i, j int) bool {
		if upcoming[i].d != upcoming[j].d {
			return upcoming[i].d < upcoming[j].d
		}
		return upcoming[i].c.ID < upcoming[j].c.ID
	})

	result := make([]*Contact, len(upcoming))
	for i, u := range upcoming {
		result[i] = u.c
	}
	return result, nil
}

// daysUntilBirthday counts the days from today to the next occurrence of the
// birthday's month and day. Feb 29 rolls over to Mar 1 in non-leap years via
// time.Date normalization. Both arguments must be UTC midnights.
func daysUntilBirthday(today time.Time, birthday time.Time) int {
	next := time.Date(today.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(today) {
		next = time.Date(today.Year()+1, birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(next.Sub(today) / (24 * time.Hour))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
