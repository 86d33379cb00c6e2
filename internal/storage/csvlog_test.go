package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redscout/internal/core/domain"
)

func sampleRecord(postID string, posted bool) domain.RunRecord {
	return domain.RunRecord{
		RunID:           "run-1",
		Timestamp:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Mode:            "live",
		Subreddit:       "microdosing",
		PostID:          postID,
		Title:           "a title, with a comma",
		MatchedKeywords: []string{"psilocybin", "microdosing"},
		ReplyText:       "reply text",
		Approved:        posted,
		Posted:          posted,
		CommentID:       "t1_" + postID,
		Outcome:         domain.OutcomePosted,
	}
}

func TestCSVRunLog_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")
	log := NewCSVRunLog(path)

	require.NoError(t, log.Append(context.Background(), sampleRecord("p1", true)))
	require.NoError(t, log.Append(context.Background(), sampleRecord("p2", false)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, runHeader, rows[0])
	assert.Equal(t, "p1", rows[1][4])
	assert.Equal(t, "psilocybin,microdosing", rows[1][6])
}

func TestCSVRunLog_PostedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")
	log := NewCSVRunLog(path)

	require.NoError(t, log.Append(context.Background(), sampleRecord("p1", true)))
	require.NoError(t, log.Append(context.Background(), sampleRecord("p2", false)))
	require.NoError(t, log.Append(context.Background(), sampleRecord("p3", true)))

	got, err := log.PostedRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p1", got[0].PostID)
	assert.Equal(t, "p3", got[1].PostID)
	assert.Equal(t, "t1_p1", got[0].CommentID)
	assert.Equal(t, []string{"psilocybin", "microdosing"}, got[0].MatchedKeywords)
	assert.Equal(t, "a title, with a comma", got[0].Title)
	assert.True(t, got[0].Posted)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), got[0].Timestamp)
}

func TestCSVRunLog_MissingFileIsEmpty(t *testing.T) {
	log := NewCSVRunLog(filepath.Join(t.TempDir(), "absent.csv"))
	got, err := log.PostedRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSVMetricLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")
	log := NewCSVMetricLog(path)

	rec := domain.MetricRecord{
		CheckedAt:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		RunID:           "run-1",
		Subreddit:       "microdosing",
		PostID:          "p1",
		CommentID:       "t1_p1",
		Title:           "a title",
		MatchedKeywords: []string{"psilocybin"},
		Score:           4,
		RepliesCount:    1,
	}
	require.NoError(t, log.AppendMetric(context.Background(), rec))
	require.NoError(t, log.AppendMetric(context.Background(), rec))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, metricHeader, rows[0])
	assert.Equal(t, "4", rows[1][7])
	assert.Equal(t, "1", rows[1][8])
}
