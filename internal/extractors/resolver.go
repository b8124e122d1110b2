package extractors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/standupstack/pulse-engine/internal/cache"
	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/providers"
)

// Resolver enriches extracted references with tracker metadata. Lookups are
// best effort: a reference the tracker cannot resolve keeps Resolved nil.
type Resolver struct {
	fetcher providers.WorkItemFetcher
	cache   cache.Provider
	ttl     time.Duration
	limit   int
	logger  *slog.Logger
}

// NewResolver constructs a resolver with bounded lookup concurrency.
func NewResolver(fetcher providers.WorkItemFetcher, cacheProvider cache.Provider, ttl time.Duration, limit int, logger *slog.Logger) *Resolver {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if limit <= 0 {
		limit = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher: fetcher,
		cache:   cacheProvider,
		ttl:     ttl,
		limit:   limit,
		logger:  logger,
	}
}

// Resolve looks up every reference, at most limit lookups in flight, and
// returns the enriched slice in its original order plus the aggregate
// tracker status. An empty input performs no lookups and reports no status.
func (r *Resolver) Resolve(ctx context.Context, refs []models.WorkItemRef) ([]models.WorkItemRef, models.ProviderStatus) {
	if len(refs) == 0 {
		return refs, ""
	}

	resolved := make([]models.WorkItemRef, len(refs))
	copy(resolved, refs)
	statuses := make([]models.ProviderStatus, len(refs))

	sem := make(chan struct{}, r.limit)
	var wg sync.WaitGroup
	for i := range resolved {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ref := &resolved[idx]
			if entry, ok := r.cached(ctx, ref.RawToken); ok {
				ref.Resolved = entry.Metadata
				statuses[idx] = entry.Status
				return
			}

			item := r.fetcher.Fetch(ctx, ref.RawToken, ref.TrackerKind)
			statuses[idx] = item.Status
			if item.Err != nil {
				r.logger.Debug("work item lookup failed",
					slog.String("token", ref.RawToken),
					slog.Any("error", item.Err))
				return
			}
			if item.Found && item.Metadata != nil {
				ref.Resolved = item.Metadata
				r.store(ctx, ref.RawToken, cacheEntry{Status: item.Status, Metadata: item.Metadata})
			}
		}(i)
	}
	wg.Wait()

	return resolved, aggregateStatus(statuses)
}

// cacheEntry carries the metadata together with the status of the lookup
// that produced it, so a cache hit replays mocked as mocked instead of
// promoting synthetic data to ok.
type cacheEntry struct {
	Status   models.ProviderStatus    `json:"status"`
	Metadata *models.WorkItemMetadata `json:"metadata"`
}

func (r *Resolver) cached(ctx context.Context, token string) (cacheEntry, bool) {
	data, err := r.cache.Get(ctx, cacheKey(token))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Debug("work item cache read failed", slog.Any("error", err))
		}
		return cacheEntry{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Metadata == nil {
		return cacheEntry{}, false
	}
	return entry, true
}

func (r *Resolver) store(ctx context.Context, token string, entry cacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(token), data, r.ttl); err != nil {
		r.logger.Debug("work item cache write failed", slog.Any("error", err))
	}
}

func cacheKey(token string) string {
	return "workitem:" + token
}

// aggregateStatus folds per-token outcomes into one tracker status: mocked
// when the mock variant answered, failed when every lookup failed, degraded
// when lookups split, ok otherwise.
func aggregateStatus(statuses []models.ProviderStatus) models.ProviderStatus {
	var okCount, failedCount, mockedCount int
	for _, s := range statuses {
		switch s {
		case models.ProviderStatusFailed:
			failedCount++
		case models.ProviderStatusMocked:
			mockedCount++
		default:
			okCount++
		}
	}
	switch {
	case mockedCount > 0:
		return models.ProviderStatusMocked
	case failedCount > 0 && okCount == 0:
		return models.ProviderStatusFailed
	case failedCount > 0:
		return models.ProviderStatusDegraded
	default:
		return models.ProviderStatusOK
	}
}
