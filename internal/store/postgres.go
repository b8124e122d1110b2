package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/utils"
)

// Querier is the slice of pgxpool.Pool the store uses. Tests substitute a
// fake; production always passes the pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists processing results and serves the team-scoped
// history reads the analytics engine consumes. Schema management is out of
// scope; the queries assume the tables exist.
type PostgresStore struct {
	q      Querier
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres opens a pgx pool against the DSN and pings it so a bad DSN
// fails at boot, not on first use.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, utils.NewAppError("store.connect", "open postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, utils.NewAppError("store.connect", "ping postgres", err)
	}
	return &PostgresStore{q: pool, pool: pool, logger: logger}, nil
}

// NewPostgresWithQuerier wires the store over an explicit querier.
func NewPostgresWithQuerier(q Querier, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{q: q, logger: logger}
}

// Ping verifies the database connection, for readiness probes. A store built
// over a bare Querier has no pool and always reports ready.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const saveResultSQL = `
INSERT INTO processing_results
    (id, submission_id, team_id, team_member_id, transcript, sentiment_score,
     sentiment_label, summary_text, work_item_refs, provider_status,
     duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// SaveResult persists one processing result. Results are written once and
// never updated; reprocessing inserts a new row under a new id.
func (s *PostgresStore) SaveResult(ctx context.Context, result models.ProcessingResult) error {
	refs, err := json.Marshal(result.WorkItemRefs)
	if err != nil {
		return utils.NewAppError("store.save_result", "encode work item refs", err)
	}
	status, err := json.Marshal(result.ProviderStatus)
	if err != nil {
		return utils.NewAppError("store.save_result", "encode provider status", err)
	}

	_, err = s.q.Exec(ctx, saveResultSQL,
		result.ID,
		result.SubmissionID,
		result.TeamID,
		result.TeamMemberID,
		result.Transcript,
		result.SentimentScore,
		result.SentimentLabel,
		result.SummaryText,
		refs,
		status,
		result.Duration.Milliseconds(),
		result.CreatedAt,
	)
	if err != nil {
		return utils.NewAppError("store.save_result", "insert processing result", err)
	}
	return nil
}

const fetchWindowSQL = `
SELECT id, submission_id, team_id, team_member_id, transcript,
       sentiment_score, sentiment_label, summary_text, work_item_refs,
       provider_status, duration_ms, created_at
FROM processing_results
WHERE team_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at ASC`

// FetchWindow returns the team's results inside the window in chronological
// ascending order. A team with no history returns an empty slice.
func (s *PostgresStore) FetchWindow(ctx context.Context, teamID string, window models.Window) ([]models.ProcessingResult, error) {
	rows, err := s.q.Query(ctx, fetchWindowSQL, teamID, window.Start, window.End)
	if err != nil {
		return nil, utils.NewAppError("store.fetch_window", "query processing results", err)
	}
	defer rows.Close()

	results := make([]models.ProcessingResult, 0, 16)
	for rows.Next() {
		var (
			result     models.ProcessingResult
			refs       []byte
			status     []byte
			durationMS int64
		)
		if err := rows.Scan(
			&result.ID,
			&result.SubmissionID,
			&result.TeamID,
			&result.TeamMemberID,
			&result.Transcript,
			&result.SentimentScore,
			&result.SentimentLabel,
			&result.SummaryText,
			&refs,
			&status,
			&durationMS,
			&result.CreatedAt,
		); err != nil {
			return nil, utils.NewAppError("store.fetch_window", "scan processing result", err)
		}
		if len(refs) > 0 {
			if err := json.Unmarshal(refs, &result.WorkItemRefs); err != nil {
				return nil, utils.NewAppError("store.fetch_window", "decode work item refs", err)
			}
		}
		if len(status) > 0 {
			if err := json.Unmarshal(status, &result.ProviderStatus); err != nil {
				return nil, utils.NewAppError("store.fetch_window", "decode provider status", err)
			}
		}
		result.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("store.fetch_window", "iterate processing results", err)
	}
	return results, nil
}

const blockerFlagSQL = `
SELECT present, resolved
FROM blocker_flags
WHERE result_id = $1`

// BlockerFlag returns the externally owned blocker classification for one
// result. A result without a row simply has no blocker.
func (s *PostgresStore) BlockerFlag(ctx context.Context, resultID string) (models.BlockerFlag, error) {
	var flag models.BlockerFlag
	err := s.q.QueryRow(ctx, blockerFlagSQL, resultID).Scan(&flag.Present, &flag.Resolved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BlockerFlag{}, nil
		}
		return models.BlockerFlag{}, utils.NewAppError("store.blocker_flag", "query blocker flag", err)
	}
	return flag, nil
}

const storePatternSQL = `
INSERT INTO team_patterns
    (id, team_id, window_start, window_end, themes, blocker_categories, mined_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// StorePattern persists one mined team pattern.
func (s *PostgresStore) StorePattern(ctx context.Context, pattern models.TeamPattern) error {
	themes, err := json.Marshal(pattern.Themes)
	if err != nil {
		return utils.NewAppError("store.store_pattern", "encode themes", err)
	}
	categories, err := json.Marshal(pattern.BlockerCategories)
	if err != nil {
		return utils.NewAppError("store.store_pattern", "encode blocker categories", err)
	}

	_, err = s.q.Exec(ctx, storePatternSQL,
		pattern.ID,
		pattern.TeamID,
		pattern.WindowStart,
		pattern.WindowEnd,
		themes,
		categories,
		pattern.MinedAt,
	)
	if err != nil {
		return utils.NewAppError("store.store_pattern", "insert team pattern", err)
	}
	return nil
}
