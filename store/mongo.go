package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the application database.
const (
	usersCollection         = "users"
	verificationsCollection = "verification_emails"
	catalogCollection       = "pokemons"
)

// MongoStore implements UserStore, VerificationStore, and CatalogStore on a
// MongoDB database.
type MongoStore struct {
	users         *mongo.Collection
	verifications *mongo.Collection
	catalog       *mongo.Collection
}

// NewMongoStore creates a MongoStore over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:         db.Collection(usersCollection),
		verifications: db.Collection(verificationsCollection),
		catalog:       db.Collection(catalogCollection),
	}
}

// EnsureIndexes creates the indexes the stores rely on:
//   - a unique index on users.email, so account uniqueness is enforced by
//     the storage layer rather than an application-level pre-check;
//   - a TTL index on verification_emails.expiresAt (expireAfterSeconds: 0),
//     so expired codes are evicted by the database itself;
//   - a unique index on pokemons.id for upserts by catalog id.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating users.email index: %w", err)
	}

	_, err = s.verifications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("creating verification_emails indexes: %w", err)
	}

	_, err = s.catalog.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating pokemons.id index: %w", err)
	}
	return nil
}

// --- UserStore ---

// CreateUser inserts a new user. The unique email index turns a concurrent
// duplicate registration into ErrDuplicate instead of a second account.
func (s *MongoStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindUserByEmail returns the user with the given email.
func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByID returns the user with the given opaque id.
func (s *MongoStore) FindUserByID(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.users.FindOne(ctx, bson.M{"userId": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the password hash of the user with the given email.
func (s *MongoStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	_, err := s.users.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"password": passwordHash}})
	return err
}

// AddToSet adds id to the named favorite set and returns the updated user.
func (s *MongoStore) AddToSet(ctx context.Context, userID string, set FavoriteSet, id int) (*User, error) {
	return s.updateSet(ctx, userID, bson.M{"$addToSet": bson.M{string(set): id}})
}

// PullFromSet removes id from the named favorite set and returns the
// updated user.
func (s *MongoStore) PullFromSet(ctx context.Context, userID string, set FavoriteSet, id int) (*User, error) {
	return s.updateSet(ctx, userID, bson.M{"$pull": bson.M{string(set): id}})
}

func (s *MongoStore) updateSet(ctx context.Context, userID string, update bson.M) (*User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// --- VerificationStore ---

// UpsertCode creates or overwrites the code record for email.
func (s *MongoStore) UpsertCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.verifications.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"code": code, "expiresAt": expiresAt}},
		opts,
	)
	return err
}

// FindCode returns the code record for email.
func (s *MongoStore) FindCode(ctx context.Context, email string) (*VerificationEmail, error) {
	var rec VerificationEmail
	err := s.verifications.FindOne(ctx, bson.M{"email": email}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// --- CatalogStore ---

// UpsertItem creates or replaces the catalog item with the same id.
func (s *MongoStore) UpsertItem(ctx context.Context, item *CatalogItem) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.catalog.ReplaceOne(ctx, bson.M{"id": item.ID}, item, opts)
	return err
}

// ListItems returns every cached catalog item.
func (s *MongoStore) ListItems(ctx context.Context) ([]CatalogItem, error) {
	cursor, err := s.catalog.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []CatalogItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FindItemsByIDs returns the catalog items whose id is in ids.
func (s *MongoStore) FindItemsByIDs(ctx context.Context, ids []int) ([]CatalogItem, error) {
	cursor, err := s.catalog.Find(ctx,
		bson.M{"id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []CatalogItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CountItems returns how many catalog items are cached.
func (s *MongoStore) CountItems(ctx context.Context) (int64, error) {
	return s.catalog.CountDocuments(ctx, bson.M{})
}

// Interface conformance.
var (
	_ UserStore         = (*MongoStore)(nil)
	_ VerificationStore = (*MongoStore)(nil)
	_ CatalogStore      = (*MongoStore)(nil)
)
