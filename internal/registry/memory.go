package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/models"
)

// InMemoryStore implements Store with in-process maps. Used when no
// database is configured and throughout the unit tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	clubs   map[string]models.Club
	members map[string][]models.Member // keyed by club id
}

// NewInMemoryStore creates a new in-memory registry store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		clubs:   make(map[string]models.Club),
		members: make(map[string][]models.Member),
	}
}

// AddClub seeds a club, for tests and the no-database mode.
func (s *InMemoryStore) AddClub(c models.Club) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clubs[c.ID] = c
}

// AddMember seeds a member.
func (s *InMemoryStore) AddMember(m models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ClubID] = append(s.members[m.ClubID], m)
}

func (s *InMemoryStore) ListClubs(ctx context.Context) ([]models.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clubs := make([]models.Club, 0, len(s.clubs))
	for _, c := range s.clubs {
		clubs = append(clubs, c)
	}
	sort.Slice(clubs, func(i, j int) bool { return clubs[i].ID < clubs[j].ID })
	return clubs, nil
}

func (s *InMemoryStore) GetClub(ctx context.Context, id string) (*models.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clubs[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) ListMembers(ctx context.Context, clubID string) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Member(nil), s.members[clubID]...), nil
}

func (s *InMemoryStore) ListSubscribedMembers(ctx context.Context) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Member
	for _, ms := range s.members {
		for _, m := range ms {
			if m.SubscriptionID != "" {
				result = append(result, m)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ClubID != result[j].ClubID {
			return result[i].ClubID < result[j].ClubID
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *InMemoryStore) SetStripeCustomerID(ctx context.Context, clubID, memberID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.members[clubID] {
		if m.ID == memberID {
			s.members[clubID][i].StripeCustomerID = customerID
			return nil
		}
	}
	return errors.ErrNotFound
}

func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
