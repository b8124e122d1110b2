package extractors

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/standupstack/pulse-engine/internal/cache"
	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/providers"
)

func TestExtractDedupKeepsFirstOccurrence(t *testing.T) {
	refs := Extract("Working on JIRA-101 and JIRA-101")
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	if refs[0].RawToken != "JIRA-101" || refs[0].TrackerKind != models.TrackerKindJira {
		t.Errorf("unexpected ref %+v", refs[0])
	}
}

func TestExtractMixedPatternsOrdered(t *testing.T) {
	text := "Yesterday I merged PR #42, today OPS-7 and issue #9, then branch: feature/login-retry"
	refs := Extract(text)

	want := []struct {
		token string
		kind  models.TrackerKind
	}{
		{"PR #42", models.TrackerKindGitHub},
		{"OPS-7", models.TrackerKindJira},
		{"Issue #9", models.TrackerKindGitHub},
		{"feature/login-retry", models.TrackerKindUnknown},
	}
	if len(refs) != len(want) {
		t.Fatalf("expected %d refs, got %d: %+v", len(want), len(refs), refs)
	}
	for i, w := range want {
		if refs[i].RawToken != w.token || refs[i].TrackerKind != w.kind {
			t.Errorf("ref %d: got %+v, want %+v", i, refs[i], w)
		}
	}
}

func TestExtractEmptyText(t *testing.T) {
	if refs := Extract("   "); len(refs) != 0 {
		t.Errorf("expected no refs for blank text, got %+v", refs)
	}
	if refs := Extract("nothing to see here"); len(refs) != 0 {
		t.Errorf("expected no refs for plain prose, got %+v", refs)
	}
}

type fakeFetcher struct {
	mu       sync.Mutex
	inFlight int32
	maxSeen  int32
	calls    int
	fetch    func(token string, kind models.TrackerKind) providers.WorkItem
}

func (f *fakeFetcher) Fetch(_ context.Context, token string, kind models.TrackerKind) providers.WorkItem {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fetch != nil {
		return f.fetch(token, kind)
	}
	return providers.WorkItem{
		Outcome: providers.Outcome{Status: models.ProviderStatusOK},
		Found:   true,
		Metadata: &models.WorkItemMetadata{
			Title: "title " + token,
		},
	}
}

type stubCache struct {
	cache.NoopProvider

	mu   sync.Mutex
	data map[string][]byte
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return nil, cache.ErrCacheMiss
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func TestResolverBoundedConcurrency(t *testing.T) {
	fetcher := &fakeFetcher{}
	resolver := NewResolver(fetcher, nil, 0, 2, nil)

	refs := Extract("ABC-1 ABC-2 ABC-3 ABC-4 ABC-5 ABC-6")
	resolved, status := resolver.Resolve(context.Background(), refs)

	if status != models.ProviderStatusOK {
		t.Fatalf("expected ok tracker status, got %s", status)
	}
	if max := atomic.LoadInt32(&fetcher.maxSeen); max > 2 {
		t.Errorf("concurrency limit exceeded: saw %d in flight", max)
	}
	for i, ref := range resolved {
		if ref.Resolved == nil {
			t.Errorf("ref %d not resolved", i)
		}
		if ref.RawToken != refs[i].RawToken {
			t.Errorf("order changed at %d: %s vs %s", i, ref.RawToken, refs[i].RawToken)
		}
	}
}

func TestResolverCacheAside(t *testing.T) {
	fetcher := &fakeFetcher{}
	stub := newStubCache()
	resolver := NewResolver(fetcher, stub, time.Minute, 2, nil)

	refs := Extract("Reviewing DEV-9 today")
	if _, _ = resolver.Resolve(context.Background(), refs); fetcher.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetcher.calls)
	}

	resolved, status := resolver.Resolve(context.Background(), refs)
	if fetcher.calls != 1 {
		t.Errorf("second resolve should hit cache, fetch count %d", fetcher.calls)
	}
	if status != models.ProviderStatusOK {
		t.Errorf("expected ok status from cache hit, got %s", status)
	}
	if resolved[0].Resolved == nil || resolved[0].Resolved.Title != "title DEV-9" {
		t.Errorf("cached metadata missing: %+v", resolved[0].Resolved)
	}
}

func TestResolverCacheHitKeepsMockedStatus(t *testing.T) {
	resolver := NewResolver(providers.MockWorkItemFetcher{}, cache.NewMemoryProvider(), time.Minute, 2, nil)

	refs := Extract("Working on JIRA-101 today")
	first, status := resolver.Resolve(context.Background(), refs)
	if status != models.ProviderStatusMocked {
		t.Fatalf("expected mocked status on first resolve, got %s", status)
	}

	second, status := resolver.Resolve(context.Background(), refs)
	if status != models.ProviderStatusMocked {
		t.Errorf("cache hit must replay mocked status, got %s", status)
	}
	if second[0].Resolved == nil || first[0].Resolved == nil {
		t.Fatalf("expected metadata on both resolves")
	}
	if second[0].Resolved.Title != first[0].Resolved.Title {
		t.Errorf("cached metadata diverged: %q vs %q", second[0].Resolved.Title, first[0].Resolved.Title)
	}
}

func TestResolverUnresolvedRemainNil(t *testing.T) {
	fetcher := &fakeFetcher{fetch: func(token string, _ models.TrackerKind) providers.WorkItem {
		if token == "OPS-1" {
			return providers.WorkItem{Outcome: providers.Outcome{Status: models.ProviderStatusOK}, Found: false}
		}
		return providers.WorkItem{
			Outcome:  providers.Outcome{Status: models.ProviderStatusOK},
			Found:    true,
			Metadata: &models.WorkItemMetadata{Title: token},
		}
	}}
	resolver := NewResolver(fetcher, nil, 0, 4, nil)

	resolved, _ := resolver.Resolve(context.Background(), Extract("OPS-1 and OPS-2"))
	if resolved[0].Resolved != nil {
		t.Errorf("not-found ref must keep nil metadata")
	}
	if resolved[1].Resolved == nil {
		t.Errorf("found ref should be resolved")
	}
}

func TestResolverEmptyInput(t *testing.T) {
	fetcher := &fakeFetcher{}
	resolver := NewResolver(fetcher, nil, 0, 2, nil)

	resolved, status := resolver.Resolve(context.Background(), nil)
	if len(resolved) != 0 || status != "" {
		t.Errorf("empty input must not invoke the tracker, got status %q", status)
	}
	if fetcher.calls != 0 {
		t.Errorf("expected no fetches, got %d", fetcher.calls)
	}
}

func TestAggregateStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []models.ProviderStatus
		want     models.ProviderStatus
	}{
		{"all ok", []models.ProviderStatus{models.ProviderStatusOK, models.ProviderStatusOK}, models.ProviderStatusOK},
		{"any mocked", []models.ProviderStatus{models.ProviderStatusOK, models.ProviderStatusMocked}, models.ProviderStatusMocked},
		{"all failed", []models.ProviderStatus{models.ProviderStatusFailed, models.ProviderStatusFailed}, models.ProviderStatusFailed},
		{"split", []models.ProviderStatus{models.ProviderStatusOK, models.ProviderStatusFailed}, models.ProviderStatusDegraded},
	}
	for _, tc := range cases {
		if got := aggregateStatus(tc.statuses); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}
