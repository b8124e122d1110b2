package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/standupstack/pulse-engine/internal/models"
)

// HTTPWorkItemFetcher resolves tokens against an issue-tracker lookup API.
type HTTPWorkItemFetcher struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
}

// NewHTTPWorkItemFetcher constructs a fetcher against the tracker base URL.
func NewHTTPWorkItemFetcher(baseURL, email, apiToken string, timeout time.Duration) *HTTPWorkItemFetcher {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HTTPWorkItemFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch looks up one token. A token unknown to the tracker is a successful
// lookup with Found false, not a failure.
func (f *HTTPWorkItemFetcher) Fetch(ctx context.Context, token string, kind models.TrackerKind) WorkItem {
	if strings.TrimSpace(token) == "" {
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, KindInvalidInput, errors.New("empty token"))}
	}

	payload := map[string]any{"token": token, "kind": string(kind)}
	body, err := json.Marshal(payload)
	if err != nil {
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, KindInvalidInput, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/lookup", bytes.NewReader(body))
	if err != nil {
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, KindUnavailable, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if f.email != "" || f.apiToken != "" {
		req.SetBasicAuth(f.email, f.apiToken)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, classifyTransport(err), err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return WorkItem{Outcome: okOutcome(), Found: false}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, KindUnavailable, fmt.Errorf("tracker returned %s", resp.Status))}
	case resp.StatusCode != http.StatusOK:
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, KindUnavailable, fmt.Errorf("unexpected status %s", resp.Status))}
	}

	var response struct {
		Found  bool   `json:"found"`
		Title  string `json:"title"`
		Status string `json:"status"`
		URL    string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, KindUnavailable, fmt.Errorf("decode response: %w", err))}
	}
	if !response.Found {
		return WorkItem{Outcome: okOutcome(), Found: false}
	}
	return WorkItem{
		Outcome: okOutcome(),
		Found:   true,
		Metadata: &models.WorkItemMetadata{
			Title:  response.Title,
			Status: response.Status,
			URL:    response.URL,
		},
	}
}

// MockWorkItemFetcher fabricates deterministic tracker metadata for known
// token families. Unknown-kind tokens stay unresolved.
type MockWorkItemFetcher struct{}

var mockStatuses = []string{"To Do", "In Progress", "In Review", "Done"}

// Fetch derives metadata from the token itself so repeat lookups match.
func (MockWorkItemFetcher) Fetch(_ context.Context, token string, kind models.TrackerKind) WorkItem {
	if strings.TrimSpace(token) == "" {
		return WorkItem{Outcome: failedOutcome(models.ProviderTracker, KindInvalidInput, errors.New("empty token"))}
	}
	if kind == models.TrackerKindUnknown {
		return WorkItem{Outcome: mockedOutcome(), Found: false}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	status := mockStatuses[int(h.Sum32())%len(mockStatuses)]

	return WorkItem{
		Outcome: mockedOutcome(),
		Found:   true,
		Metadata: &models.WorkItemMetadata{
			Title:  fmt.Sprintf("Synthetic work item %s", token),
			Status: status,
			URL:    "https://tracker.invalid/" + strings.ReplaceAll(token, " ", ""),
		},
	}
}
