package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/pokesphere-go/config"
	"github.com/user/pokesphere-go/store"
)

// progressStep is how many upserts pass between progress broadcasts.
const progressStep = 50

// resyncInterval is how long the worker sleeps between full sync passes.
// The upstream dataset changes rarely, so a daily refresh is plenty.
const resyncInterval = 24 * time.Hour

// Syncer pages through the public catalog API and mirrors it into the
// store. It runs in the background, independently of request handling.
type Syncer struct {
	items       store.CatalogStore
	client      *http.Client
	baseURL     string
	limit       int
	broadcaster *Broadcaster
	logger      *zap.Logger
}

// NewSyncer creates a Syncer against the configured catalog API.
func NewSyncer(items store.CatalogStore, cfg *config.CatalogConfig, broadcaster *Broadcaster, logger *zap.Logger) *Syncer {
	return &Syncer{
		items:       items,
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     cfg.BaseURL,
		limit:       cfg.SyncLimit,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Start launches the background sync loop. One pass runs immediately,
// then the loop sleeps until the next resync or until stopChan closes.
// The returned channel closes once the loop has fully wound down, which
// lets main wait for it during graceful shutdown.
func (s *Syncer) Start(stopChan <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-stopChan
			cancel()
		}()

		ticker := time.NewTicker(resyncInterval)
		defer ticker.Stop()

		if err := s.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("catalog sync failed", zap.Error(err))
		}

		for {
			select {
			case <-ticker.C:
				if err := s.Run(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("catalog sync failed", zap.Error(err))
				}
			case <-stopChan:
				s.logger.Info("catalog sync worker stopping")
				return
			}
		}
	}()

	return done
}

// Run performs one full sync pass: fetch the index, then every detail
// document, upserting each into the store. Progress is broadcast every
// 50 entries and once more at the end.
func (s *Syncer) Run(ctx context.Context) error {
	index, err := s.fetchIndex(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog index: %w", err)
	}

	total := len(index.Results)
	s.logger.Info("catalog sync started", zap.Int("total", total))

	fetched := 0
	for _, entry := range index.Results {
		if err := ctx.Err(); err != nil {
			return err
		}

		detail, err := s.fetchDetail(ctx, entry.Name)
		if err != nil {
			// One bad document should not sink the whole pass.
			s.logger.Warn("skipping catalog entry",
				zap.String("name", entry.Name), zap.Error(err))
			continue
		}

		item, err := detail.toCatalogItem()
		if err != nil {
			s.logger.Warn("skipping malformed catalog entry",
				zap.String("name", entry.Name), zap.Error(err))
			continue
		}

		if err := s.items.UpsertItem(ctx, item); err != nil {
			return fmt.Errorf("upsert catalog item %d: %w", item.ID, err)
		}

		fetched++
		if fetched%progressStep == 0 || fetched == total {
			s.reportProgress(fetched, total, fetched == total)
		}
	}

	if fetched != total {
		// Some entries were skipped; still close out the progress bar.
		s.reportProgress(fetched, total, true)
	}

	s.logger.Info("catalog sync finished",
		zap.Int("fetched", fetched), zap.Int("total", total))
	return nil
}

func (s *Syncer) reportProgress(fetched, total int, done bool) {
	percent := 0
	if total > 0 {
		percent = fetched * 100 / total
	}
	s.broadcaster.Broadcast(ProgressEvent{
		Fetched: fetched,
		Total:   total,
		Percent: percent,
		Done:    done,
	})
	s.logger.Debug("catalog sync progress",
		zap.Int("fetched", fetched), zap.Int("total", total))
}

func (s *Syncer) fetchIndex(ctx context.Context) (*apiIndex, error) {
	endpoint := fmt.Sprintf("%s/pokemon?limit=%d&offset=0", s.baseURL, s.limit)

	var index apiIndex
	if err := s.getJSON(ctx, endpoint, &index); err != nil {
		return nil, err
	}
	return &index, nil
}

func (s *Syncer) fetchDetail(ctx context.Context, name string) (*apiPokemon, error) {
	endpoint := fmt.Sprintf("%s/pokemon/%s", s.baseURL, url.PathEscape(name))

	var detail apiPokemon
	if err := s.getJSON(ctx, endpoint, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *Syncer) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
