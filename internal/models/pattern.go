package models

import "time"

// RecurringTheme is a term that keeps appearing across a team's recent
// updates.
type RecurringTheme struct {
	Term        string `json:"term"`
	Occurrences int    `json:"occurrences"`
}

// TeamPattern aggregates recurring themes and blocker categories mined from
// a window of processing results.
type TeamPattern struct {
	ID                string
	TeamID            string
	WindowStart       time.Time
	WindowEnd         time.Time
	Themes            []RecurringTheme
	BlockerCategories map[string]int
	MinedAt           time.Time
}
