// Package store is the persistence layer. It defines the three record kinds
// the application keeps in its document database (users, verification
// emails, and the cached catalog) together with the store interfaces the
// services consume. The MongoDB implementation lives in mongo.go; an
// in-memory implementation with the same semantics, used by tests, lives in
// memory.go.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by store implementations. Services translate
// these into the application error taxonomy at their own boundary.
var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a create violates a uniqueness
	// constraint (one user per email, enforced by the storage layer).
	ErrDuplicate = errors.New("store: duplicate record")
)

// User is an account record. LikedIDs and SavedIDs are sets of catalog item
// identifiers; insertion order is irrelevant.
type User struct {
	UserID       string    `bson:"userId" json:"userId"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password" json:"-"`
	LikedIDs     []int     `bson:"likedPokemons" json:"likedPokemons"`
	SavedIDs     []int     `bson:"savedPokemons" json:"savedPokemons"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// VerificationEmail is a short-lived verification code record, keyed by
// email. A code is valid only while the current time is before ExpiresAt;
// expired records are evicted by the storage layer's TTL mechanism.
type VerificationEmail struct {
	Email     string    `bson:"email" json:"email"`
	Code      string    `bson:"code" json:"code"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// Valid reports whether the code can still be consumed.
func (v *VerificationEmail) Valid(now time.Time) bool {
	return now.Before(v.ExpiresAt)
}

// Cries holds the item's cry audio URLs.
type Cries struct {
	Latest string `bson:"latest" json:"latest"`
	Legacy string `bson:"legacy" json:"legacy"`
}

// Stat is a single named base stat.
type Stat struct {
	Name  string `bson:"name" json:"name"`
	Value int    `bson:"value" json:"value"`
}

// CatalogItem is a creature record cached from the third-party catalog API.
// The schema is explicit; the payload is validated when decoded at the API
// boundary, never passed around as untyped maps.
type CatalogItem struct {
	ID        int      `bson:"id" json:"id"`
	Name      string   `bson:"name" json:"name"`
	Sprite    string   `bson:"sprite" json:"sprite"`
	Height    int      `bson:"height" json:"height"`
	Weight    int      `bson:"weight" json:"weight"`
	BaseXP    int      `bson:"base_xp" json:"base_xp"`
	Abilities []string `bson:"abilities" json:"abilities"`
	Types     []string `bson:"types" json:"types"`
	Cries     Cries    `bson:"cries" json:"cries"`
	Stats     []Stat   `bson:"stats" json:"stats"`
}

// FavoriteSet names one of the two per-user favorite sets.
type FavoriteSet string

const (
	// LikedSet is the user's liked-items set.
	LikedSet FavoriteSet = "likedPokemons"
	// SavedSet is the user's saved-items set.
	SavedSet FavoriteSet = "savedPokemons"
)

// UserStore abstracts persistence for User records.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrDuplicate if a user with
	// the same email already exists.
	CreateUser(ctx context.Context, user *User) error
	// FindUserByEmail returns the user with the given email, or ErrNotFound.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// FindUserByID returns the user with the given opaque id, or ErrNotFound.
	FindUserByID(ctx context.Context, userID string) (*User, error)
	// UpdatePassword replaces the password hash of the user with the given
	// email.
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	// AddToSet adds id to one of the user's favorite sets (no-op if already
	// present) and returns the updated user.
	AddToSet(ctx context.Context, userID string, set FavoriteSet, id int) (*User, error)
	// PullFromSet removes id from one of the user's favorite sets and
	// returns the updated user.
	PullFromSet(ctx context.Context, userID string, set FavoriteSet, id int) (*User, error)
}

// VerificationStore abstracts persistence for verification codes.
type VerificationStore interface {
	// UpsertCode creates or overwrites the code record for email.
	UpsertCode(ctx context.Context, email, code string, expiresAt time.Time) error
	// FindCode returns the code record for email, or ErrNotFound. Callers
	// must still check ExpiresAt: TTL eviction is a background process and
	// may lag.
	FindCode(ctx context.Context, email string) (*VerificationEmail, error)
}

// CatalogStore abstracts persistence for the cached catalog.
type CatalogStore interface {
	// UpsertItem creates or replaces the item with the same ID.
	UpsertItem(ctx context.Context, item *CatalogItem) error
	// ListItems returns every cached item.
	ListItems(ctx context.Context) ([]CatalogItem, error)
	// FindItemsByIDs returns the items whose ID is in ids.
	FindItemsByIDs(ctx context.Context, ids []int) ([]CatalogItem, error)
	// CountItems returns the number of cached items.
	CountItems(ctx context.Context) (int64, error)
}
