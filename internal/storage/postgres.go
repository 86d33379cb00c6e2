package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

// PostgresStore is the remote-table variant of both log sinks and the
// state store, for operators who want run history queryable in SQL.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	s := &PostgresStore{Pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

var (
	_ ports.RunLog     = (*PostgresStore)(nil)
	_ ports.MetricLog  = (*PostgresStore)(nil)
	_ ports.StateStore = (*PostgresStore)(nil)
)

func (s *PostgresStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS run_records (
			id SERIAL PRIMARY KEY,
			run_id TEXT,
			ts TIMESTAMPTZ,
			mode TEXT,
			subreddit TEXT,
			post_id TEXT,
			title TEXT,
			matched_keywords TEXT[],
			reply_text TEXT,
			approved BOOLEAN,
			posted BOOLEAN,
			comment_id TEXT,
			outcome TEXT,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS metric_records (
			id SERIAL PRIMARY KEY,
			checked_at TIMESTAMPTZ,
			run_id TEXT,
			subreddit TEXT,
			post_id TEXT,
			comment_id TEXT,
			title TEXT,
			matched_keywords TEXT[],
			score INT,
			replies_count INT,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS post_attempts (
			post_id TEXT PRIMARY KEY,
			status TEXT,
			comment_id TEXT,
			error TEXT,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range queries {
		if _, err := s.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec domain.RunRecord) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO run_records
		 (run_id, ts, mode, subreddit, post_id, title, matched_keywords,
		  reply_text, approved, posted, comment_id, outcome, error)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.RunID, rec.Timestamp, rec.Mode, rec.Subreddit, rec.PostID,
		rec.Title, rec.MatchedKeywords, rec.ReplyText, rec.Approved,
		rec.Posted, rec.CommentID, string(rec.Outcome), rec.Error)
	return err
}

func (s *PostgresStore) PostedRecords(ctx context.Context) ([]domain.RunRecord, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT run_id, ts, mode, subreddit, post_id, title,
		        matched_keywords, reply_text, approved, posted, comment_id,
		        outcome, error
		 FROM run_records WHERE posted = TRUE ORDER BY ts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		var outcome string
		if err := rows.Scan(&rec.RunID, &rec.Timestamp, &rec.Mode,
			&rec.Subreddit, &rec.PostID, &rec.Title, &rec.MatchedKeywords,
			&rec.ReplyText, &rec.Approved, &rec.Posted, &rec.CommentID,
			&outcome, &rec.Error); err != nil {
			return nil, err
		}
		rec.Outcome = domain.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendMetric(ctx context.Context, rec domain.MetricRecord) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO metric_records
		 (checked_at, run_id, subreddit, post_id, comment_id, title,
		  matched_keywords, score, replies_count, error)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.CheckedAt, rec.RunID, rec.Subreddit, rec.PostID, rec.CommentID,
		rec.Title, rec.MatchedKeywords, rec.Score, rec.RepliesCount, rec.Error)
	return err
}

func (s *PostgresStore) CanAttempt(postID string) (bool, error) {
	var status string
	err := s.Pool.QueryRow(context.Background(),
		"SELECT status FROM post_attempts WHERE post_id = $1", postID).Scan(&status)
	if err != nil {
		return true, nil
	}
	return status != statusSuccess, nil
}

func (s *PostgresStore) MarkAttempt(postID string) error {
	return s.upsertAttempt(postID, statusInflight, "", "")
}

func (s *PostgresStore) MarkSuccess(postID, commentID string) error {
	return s.upsertAttempt(postID, statusSuccess, commentID, "")
}

func (s *PostgresStore) MarkFailure(postID, errMsg string) error {
	return s.upsertAttempt(postID, statusFailed, "", errMsg)
}

func (s *PostgresStore) upsertAttempt(postID, status, commentID, errMsg string) error {
	if postID == "" {
		return nil
	}
	_, err := s.Pool.Exec(context.Background(),
		`INSERT INTO post_attempts (post_id, status, comment_id, error, updated_at)
		 VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		 ON CONFLICT (post_id) DO UPDATE SET
		 status = $2, comment_id = $3, error = $4, updated_at = CURRENT_TIMESTAMP`,
		postID, status, commentID, errMsg)
	return err
}

func (s *PostgresStore) Close() {
	s.Pool.Close()
}
