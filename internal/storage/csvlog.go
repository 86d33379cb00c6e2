// Package storage holds the append-only log sinks and the cross-run state
// store. Flat-file and Postgres implementations are interchangeable behind
// the ports interfaces.
package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

var runHeader = []string{
	"run_id", "timestamp_utc", "mode", "subreddit", "post_id", "title",
	"matched_keywords", "reply_text", "approved", "posted", "comment_id",
	"outcome", "error",
}

var metricHeader = []string{
	"timestamp_checked_utc", "run_id", "subreddit", "post_id", "comment_id",
	"title", "matched_keywords", "score", "replies_count", "error",
}

// CSVRunLog appends run records to a flat CSV file, writing the header on
// first creation. Append is deliberately not idempotent.
type CSVRunLog struct {
	path string
	mu   sync.Mutex
}

func NewCSVRunLog(path string) *CSVRunLog {
	return &CSVRunLog{path: path}
}

var _ ports.RunLog = (*CSVRunLog)(nil)

func (l *CSVRunLog) Append(ctx context.Context, rec domain.RunRecord) error {
	row := []string{
		rec.RunID,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Mode,
		rec.Subreddit,
		rec.PostID,
		rec.Title,
		strings.Join(rec.MatchedKeywords, ","),
		rec.ReplyText,
		strconv.FormatBool(rec.Approved),
		strconv.FormatBool(rec.Posted),
		rec.CommentID,
		string(rec.Outcome),
		rec.Error,
	}
	return l.appendRow(runHeader, row)
}

func (l *CSVRunLog) PostedRecords(ctx context.Context) ([]domain.RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}

	var out []domain.RunRecord
	for i, row := range rows {
		if i == 0 || len(row) < len(runHeader) {
			continue
		}
		posted, _ := strconv.ParseBool(row[9])
		if !posted {
			continue
		}
		approved, _ := strconv.ParseBool(row[8])
		ts, _ := time.Parse(time.RFC3339, row[1])
		out = append(out, domain.RunRecord{
			RunID:           row[0],
			Timestamp:       ts,
			Mode:            row[2],
			Subreddit:       row[3],
			PostID:          row[4],
			Title:           row[5],
			MatchedKeywords: splitKeywords(row[6]),
			ReplyText:       row[7],
			Approved:        approved,
			Posted:          posted,
			CommentID:       row[10],
			Outcome:         domain.Outcome(row[11]),
			Error:           row[12],
		})
	}
	return out, nil
}

func (l *CSVRunLog) appendRow(header, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return appendCSVRow(l.path, header, row)
}

// CSVMetricLog appends metric records next to the run log.
type CSVMetricLog struct {
	path string
	mu   sync.Mutex
}

func NewCSVMetricLog(path string) *CSVMetricLog {
	return &CSVMetricLog{path: path}
}

var _ ports.MetricLog = (*CSVMetricLog)(nil)

func (l *CSVMetricLog) AppendMetric(ctx context.Context, rec domain.MetricRecord) error {
	row := []string{
		rec.CheckedAt.UTC().Format(time.RFC3339),
		rec.RunID,
		rec.Subreddit,
		rec.PostID,
		rec.CommentID,
		rec.Title,
		strings.Join(rec.MatchedKeywords, ","),
		strconv.Itoa(rec.Score),
		strconv.Itoa(rec.RepliesCount),
		rec.Error,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendCSVRow(l.path, metricHeader, row)
}

func appendCSVRow(path string, header, row []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
