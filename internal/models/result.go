package models

import "time"

// ProviderStatus records the terminal outcome of one adapter invocation.
type ProviderStatus string

const (
	ProviderStatusOK       ProviderStatus = "ok"
	ProviderStatusDegraded ProviderStatus = "degraded"
	ProviderStatusMocked   ProviderStatus = "mocked"
	ProviderStatusFailed   ProviderStatus = "failed"
)

// Provider names used as keys in ProcessingResult.ProviderStatus.
const (
	ProviderTranscriber = "transcriber"
	ProviderSentiment   = "sentiment"
	ProviderSummary     = "summary"
	ProviderTracker     = "tracker"
)

// TrackerKind classifies which issue-tracker family a parsed token belongs to.
type TrackerKind string

const (
	TrackerKindJira    TrackerKind = "jira"
	TrackerKindGitHub  TrackerKind = "github"
	TrackerKindUnknown TrackerKind = "unknown"
)

// WorkItemMetadata holds resolved tracker detail for a reference.
type WorkItemMetadata struct {
	Title  string `json:"title"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

// WorkItemRef is a parsed token believed to identify an external work item.
// Resolution is best effort; unresolved refs keep Resolved nil.
type WorkItemRef struct {
	RawToken    string            `json:"raw_token"`
	TrackerKind TrackerKind       `json:"tracker_kind"`
	Resolved    *WorkItemMetadata `json:"resolved,omitempty"`
}

// ProcessingResult is the merged output of one pipeline run for one
// submission. Written once per run; reprocessing creates a new result with
// its own ID.
type ProcessingResult struct {
	ID             string
	SubmissionID   string
	TeamID         string
	TeamMemberID   string
	Transcript     string
	SentimentScore *float64
	SentimentLabel string
	SummaryText    string
	WorkItemRefs   []WorkItemRef
	ProviderStatus map[string]ProviderStatus
	Duration       time.Duration
	CreatedAt      time.Time
}

// Sentiment score bounds. Scores map the five labels Very Negative (1)
// through Very Positive (5).
const (
	SentimentMin = 1.0
	SentimentMax = 5.0
)
