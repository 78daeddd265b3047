package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/store"
)

// Service serves the cached catalog.
type Service struct {
	items  store.CatalogStore
	logger *zap.Logger
}

// NewService creates the catalog Service.
func NewService(items store.CatalogStore, logger *zap.Logger) *Service {
	return &Service{items: items, logger: logger}
}

// FetchAll returns the cached catalog with the query applied.
func (s *Service) FetchAll(ctx context.Context, q Query) ([]store.CatalogItem, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("cannot fetch pokemons, server error", err)
	}
	return Apply(items, q), nil
}

// FetchByIDs returns the cached items whose id is in ids, which is how the
// favourites page resolves a user's liked and saved sets into full items.
func (s *Service) FetchByIDs(ctx context.Context, ids []int) ([]store.CatalogItem, error) {
	items, err := s.items.FindItemsByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.NewDatabaseError("cannot fetch pokemons, server error", err)
	}
	return items, nil
}
