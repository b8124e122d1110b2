package patterns

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/standupstack/pulse-engine/internal/models"
)

// Store abstracts persistence for mined team patterns.
type Store interface {
	StorePattern(ctx context.Context, pattern models.TeamPattern) error
}

// Miner mines recurring themes and blocker categories from a window of
// processed standup updates.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

const (
	minThemeTermLen     = 4
	minThemeOccurrences = 2
	maxThemes           = 5
)

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]*`)

// Common standup filler that would otherwise dominate the term counts.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "also": {}, "because": {},
	"been": {}, "before": {}, "being": {}, "between": {}, "currently": {},
	"doing": {}, "done": {}, "finished": {}, "forward": {}, "from": {},
	"going": {}, "have": {}, "into": {}, "just": {}, "more": {},
	"need": {}, "other": {}, "over": {}, "some": {}, "still": {},
	"synthetic": {}, "summary": {}, "that": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "time": {},
	"today": {}, "tomorrow": {}, "transcript": {}, "went": {}, "were": {},
	"will": {}, "with": {}, "work": {}, "worked": {}, "working": {},
	"yesterday": {},
}

// Keyword families for classifying what kind of blockers a team keeps
// hitting.
var blockerCategories = map[string][]string{
	"technical":  {"bug", "error", "broken", "failing", "crash", "regression"},
	"dependency": {"waiting", "blocked by", "depends", "upstream", "vendor"},
	"resource":   {"capacity", "bandwidth", "short-staffed", "overloaded"},
	"knowledge":  {"unfamiliar", "unclear", "documentation", "how to", "unsure"},
	"process":    {"approval", "review", "sign-off", "meeting", "handoff"},
}

// Mine aggregates one window of results into a TeamPattern. Text is read
// from summaries when present, falling back to transcripts. An empty window
// yields an empty pattern, not an error.
func (m *Miner) Mine(ctx context.Context, teamID string, window models.Window, results []models.ProcessingResult) (models.TeamPattern, error) {
	pattern := models.TeamPattern{
		ID:                uuid.NewString(),
		TeamID:            teamID,
		WindowStart:       window.Start,
		WindowEnd:         window.End,
		BlockerCategories: make(map[string]int),
		MinedAt:           time.Now().UTC(),
	}
	if len(results) == 0 {
		return pattern, nil
	}

	termCounts := make(map[string]int)
	for _, result := range results {
		text := result.SummaryText
		if text == "" {
			text = result.Transcript
		}
		lowered := strings.ToLower(text)

		for _, word := range wordPattern.FindAllString(lowered, -1) {
			if len(word) < minThemeTermLen {
				continue
			}
			if _, skip := stopwords[word]; skip {
				continue
			}
			termCounts[word]++
		}

		for category, keywords := range blockerCategories {
			for _, kw := range keywords {
				if strings.Contains(lowered, kw) {
					pattern.BlockerCategories[category]++
					break
				}
			}
		}
	}

	pattern.Themes = topThemes(termCounts, maxThemes)

	if m.store != nil {
		if err := m.store.StorePattern(ctx, pattern); err != nil {
			m.logger.Warn("pattern store failed", slog.Any("error", err))
		}
	}
	return pattern, nil
}

func topThemes(counts map[string]int, limit int) []models.RecurringTheme {
	themes := make([]models.RecurringTheme, 0, len(counts))
	for term, count := range counts {
		if count < minThemeOccurrences {
			continue
		}
		themes = append(themes, models.RecurringTheme{Term: term, Occurrences: count})
	}
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Occurrences != themes[j].Occurrences {
			return themes[i].Occurrences > themes[j].Occurrences
		}
		return themes[i].Term < themes[j].Term
	})
	if len(themes) > limit {
		themes = themes[:limit]
	}
	return themes
}
