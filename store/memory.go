package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the store interfaces with
// the same observable semantics as MongoStore: one user per email, lazily
// evicted verification codes, catalog items keyed by id. It is used by
// tests and is safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*User // keyed by userId
	verifications map[string]*VerificationEmail
	catalog       map[int]*CatalogItem

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*User),
		verifications: make(map[string]*VerificationEmail),
		catalog:       make(map[int]*CatalogItem),
		now:           time.Now,
	}
}

// SetClock overrides the store's notion of time. Tests use it to step past
// verification-code expiries.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func cloneUser(u *User) *User {
	c := *u
	c.LikedIDs = append([]int(nil), u.LikedIDs...)
	c.SavedIDs = append([]int(nil), u.SavedIDs...)
	return &c
}

// CreateUser inserts a new user, enforcing email uniqueness.
func (s *MemoryStore) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	s.users[user.UserID] = cloneUser(user)
	return nil
}

// FindUserByEmail returns the user with the given email.
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// FindUserByID returns the user with the given opaque id.
func (s *MemoryStore) FindUserByID(_ context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

// UpdatePassword replaces the password hash of the user with the given email.
func (s *MemoryStore) UpdatePassword(_ context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	// Matching Mongo's UpdateOne: updating a missing document is not an
	// error, it just matches nothing.
	return nil
}

// AddToSet adds id to the named favorite set.
func (s *MemoryStore) AddToSet(_ context.Context, userID string, set FavoriteSet, id int) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	ids := u.favoriteSet(set)
	for _, existing := range *ids {
		if existing == id {
			return cloneUser(u), nil
		}
	}
	*ids = append(*ids, id)
	return cloneUser(u), nil
}

// PullFromSet removes id from the named favorite set.
func (s *MemoryStore) PullFromSet(_ context.Context, userID string, set FavoriteSet, id int) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	ids := u.favoriteSet(set)
	kept := (*ids)[:0]
	for _, existing := range *ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	*ids = kept
	return cloneUser(u), nil
}

func (u *User) favoriteSet(set FavoriteSet) *[]int {
	if set == SavedSet {
		return &u.SavedIDs
	}
	return &u.LikedIDs
}

// UpsertCode creates or overwrites the code record for email.
func (s *MemoryStore) UpsertCode(_ context.Context, email, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications[email] = &VerificationEmail{Email: email, Code: code, ExpiresAt: expiresAt}
	return nil
}

// FindCode returns the code record for email. Expired records are evicted
// lazily here, standing in for Mongo's TTL monitor.
func (s *MemoryStore) FindCode(_ context.Context, email string) (*VerificationEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.verifications[email]
	if !ok {
		return nil, ErrNotFound
	}
	if !rec.Valid(s.now()) {
		delete(s.verifications, email)
		return nil, ErrNotFound
	}
	c := *rec
	return &c, nil
}

// UpsertItem creates or replaces the catalog item with the same id.
func (s *MemoryStore) UpsertItem(_ context.Context, item *CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *item
	s.catalog[item.ID] = &c
	return nil
}

// ListItems returns every cached catalog item, ordered by id.
func (s *MemoryStore) ListItems(_ context.Context) ([]CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]CatalogItem, 0, len(s.catalog))
	for _, item := range s.catalog {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// FindItemsByIDs returns the catalog items whose id is in ids.
func (s *MemoryStore) FindItemsByIDs(_ context.Context, ids []int) ([]CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []CatalogItem
	for _, id := range ids {
		if item, ok := s.catalog[id]; ok {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// CountItems returns how many catalog items are cached.
func (s *MemoryStore) CountItems(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.catalog)), nil
}

// Interface conformance.
var (
	_ UserStore         = (*MemoryStore)(nil)
	_ VerificationStore = (*MemoryStore)(nil)
	_ CatalogStore      = (*MemoryStore)(nil)
)
