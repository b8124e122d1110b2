package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/standupstack/pulse-engine/internal/models"
)

type scanFunc func(dest ...any) error

type fakeRows struct {
	scans []scanFunc
	idx   int
	err   error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.scans) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeRows) Scan(dest ...any) error { return r.scans[r.idx-1](dest...) }
func (r *fakeRows) Values() ([]any, error) { return nil, nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

type fakeRow struct {
	scan scanFunc
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeQuerier struct {
	execSQL   string
	execArgs  []any
	execErr   error
	queryRows *fakeRows
	queryErr  error
	row       fakeRow
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.execSQL = sql
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRows, nil
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func TestSaveResultEncodesJSONColumns(t *testing.T) {
	q := &fakeQuerier{}
	s := NewPostgresWithQuerier(q, nil)

	score := 4.0
	result := models.ProcessingResult{
		ID:             "res-1",
		SubmissionID:   "sub-1",
		TeamID:         "team-a",
		TeamMemberID:   "member-1",
		SentimentScore: &score,
		WorkItemRefs: []models.WorkItemRef{
			{RawToken: "OPS-1", TrackerKind: models.TrackerKindJira},
		},
		ProviderStatus: map[string]models.ProviderStatus{
			models.ProviderSentiment: models.ProviderStatusOK,
		},
		Duration:  1500 * time.Millisecond,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveResult(context.Background(), result); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !strings.Contains(q.execSQL, "INSERT INTO processing_results") {
		t.Errorf("unexpected sql: %s", q.execSQL)
	}
	if len(q.execArgs) != 12 {
		t.Fatalf("expected 12 args, got %d", len(q.execArgs))
	}

	var refs []models.WorkItemRef
	if err := json.Unmarshal(q.execArgs[8].([]byte), &refs); err != nil || len(refs) != 1 || refs[0].RawToken != "OPS-1" {
		t.Errorf("work item refs not encoded as json: %v %v", refs, err)
	}
	if ms := q.execArgs[10].(int64); ms != 1500 {
		t.Errorf("expected duration 1500ms, got %d", ms)
	}
}

func TestFetchWindowScansChronologicalRows(t *testing.T) {
	refs, _ := json.Marshal([]models.WorkItemRef{{RawToken: "DEV-2", TrackerKind: models.TrackerKindJira}})
	status, _ := json.Marshal(map[string]models.ProviderStatus{models.ProviderSummary: models.ProviderStatusMocked})

	makeScan := func(id string, created time.Time) scanFunc {
		return func(dest ...any) error {
			*dest[0].(*string) = id
			*dest[1].(*string) = "sub-" + id
			*dest[2].(*string) = "team-a"
			*dest[3].(*string) = "member-1"
			*dest[4].(*string) = ""
			score := 3.5
			*dest[5].(**float64) = &score
			*dest[6].(*string) = "neutral"
			*dest[7].(*string) = "summary"
			*dest[8].(*[]byte) = refs
			*dest[9].(*[]byte) = status
			*dest[10].(*int64) = 200
			*dest[11].(*time.Time) = created
			return nil
		}
	}

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	q := &fakeQuerier{queryRows: &fakeRows{scans: []scanFunc{
		makeScan("a", base),
		makeScan("b", base.Add(24*time.Hour)),
	}}}
	s := NewPostgresWithQuerier(q, nil)

	window := models.Window{Start: base.Add(-time.Hour), End: base.Add(48 * time.Hour)}
	results, err := s.FetchWindow(context.Background(), "team-a", window)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(q.execSQL, "ORDER BY created_at ASC") {
		t.Errorf("window query must be chronological ascending: %s", q.execSQL)
	}
	if results[0].WorkItemRefs[0].RawToken != "DEV-2" {
		t.Errorf("refs not decoded: %+v", results[0].WorkItemRefs)
	}
	if results[0].ProviderStatus[models.ProviderSummary] != models.ProviderStatusMocked {
		t.Errorf("provider status not decoded: %+v", results[0].ProviderStatus)
	}
	if results[0].Duration != 200*time.Millisecond {
		t.Errorf("duration not restored: %v", results[0].Duration)
	}
}

func TestFetchWindowEmptyHistory(t *testing.T) {
	q := &fakeQuerier{queryRows: &fakeRows{}}
	s := NewPostgresWithQuerier(q, nil)

	results, err := s.FetchWindow(context.Background(), "team-new", models.Window{End: time.Now()})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("new team should have empty history, got %d", len(results))
	}
}

func TestBlockerFlagNoRowMeansNoBlocker(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}}
	s := NewPostgresWithQuerier(q, nil)

	flag, err := s.BlockerFlag(context.Background(), "res-9")
	if err != nil {
		t.Fatalf("missing row must not be an error: %v", err)
	}
	if flag.Present || flag.Resolved {
		t.Errorf("expected zero flag, got %+v", flag)
	}
}

func TestBlockerFlagScansRow(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*bool) = true
		*dest[1].(*bool) = true
		return nil
	}}}
	s := NewPostgresWithQuerier(q, nil)

	flag, err := s.BlockerFlag(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("blocker flag failed: %v", err)
	}
	if !flag.Present || !flag.Resolved {
		t.Errorf("expected present resolved flag, got %+v", flag)
	}
}
