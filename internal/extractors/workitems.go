package extractors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/standupstack/pulse-engine/internal/models"
)

// Token patterns per tracker family. Branch-like references are kept but
// stay unclassified.
var (
	jiraPattern   = regexp.MustCompile(`\b[A-Z]{2,10}-\d+\b`)
	prPattern     = regexp.MustCompile(`(?i)\b(?:PR|pull request)\s*#?(\d+)\b`)
	issuePattern  = regexp.MustCompile(`(?i)\b(?:issue|bug|ticket)\s*#(\d+)\b`)
	branchPattern = regexp.MustCompile(`(?i)\b(?:branch|feature|hotfix|bugfix)[:/\s]+([A-Za-z0-9][A-Za-z0-9._/-]*)`)
)

type candidate struct {
	pos   int
	token string
	kind  models.TrackerKind
}

// Extract parses free text for work-item references. The returned slice is
// ordered by first occurrence and duplicate tokens collapse to their first
// occurrence. Text with no references yields an empty slice, never an error.
func Extract(text string) []models.WorkItemRef {
	if strings.TrimSpace(text) == "" {
		return []models.WorkItemRef{}
	}

	candidates := make([]candidate, 0, 8)

	for _, m := range jiraPattern.FindAllStringIndex(text, -1) {
		candidates = append(candidates, candidate{
			pos:   m[0],
			token: text[m[0]:m[1]],
			kind:  models.TrackerKindJira,
		})
	}
	for _, m := range prPattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, candidate{
			pos:   m[0],
			token: fmt.Sprintf("PR #%s", text[m[2]:m[3]]),
			kind:  models.TrackerKindGitHub,
		})
	}
	for _, m := range issuePattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, candidate{
			pos:   m[0],
			token: fmt.Sprintf("Issue #%s", text[m[2]:m[3]]),
			kind:  models.TrackerKindGitHub,
		})
	}
	for _, m := range branchPattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, candidate{
			pos:   m[0],
			token: text[m[2]:m[3]],
			kind:  models.TrackerKindUnknown,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].pos < candidates[j].pos
	})

	seen := make(map[string]struct{}, len(candidates))
	refs := make([]models.WorkItemRef, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c.token)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, models.WorkItemRef{RawToken: c.token, TrackerKind: c.kind})
	}
	return refs
}
