package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"redscout/internal/core/domain"
)

type fakeInspector struct {
	metrics map[string]domain.CommentMetrics
	errs    map[string]error
}

func (i *fakeInspector) CommentMetrics(ctx context.Context, commentID string) (domain.CommentMetrics, error) {
	if err := i.errs[commentID]; err != nil {
		return domain.CommentMetrics{}, err
	}
	return i.metrics[commentID], nil
}

type memMetricLog struct {
	records []domain.MetricRecord
	err     error
}

func (l *memMetricLog) AppendMetric(ctx context.Context, rec domain.MetricRecord) error {
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, rec)
	return nil
}

func TestMetricsPass(t *testing.T) {
	runs := &memRunLog{records: []domain.RunRecord{
		{RunID: "r1", PostID: "p1", CommentID: "t1_a", Subreddit: "microdosing",
			Title: "q1", MatchedKeywords: []string{"psilocybin"}, Posted: true, Approved: true},
		{RunID: "r1", PostID: "p2", Outcome: domain.OutcomeRejected},
		{RunID: "r2", PostID: "p3", CommentID: "t1_b", Posted: true, Approved: true},
	}}
	inspector := &fakeInspector{
		metrics: map[string]domain.CommentMetrics{
			"t1_a": {Score: 7, RepliesCount: 2},
		},
		errs: map[string]error{"t1_b": errors.New("comment deleted")},
	}
	sink := &memMetricLog{}

	pass := NewMetricsPass(runs, inspector, sink, zap.NewNop())
	pass.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }

	checked, err := pass.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	require.Len(t, sink.records, 2)

	first := sink.records[0]
	assert.Equal(t, "r1", first.RunID)
	assert.Equal(t, "t1_a", first.CommentID)
	assert.Equal(t, 7, first.Score)
	assert.Equal(t, 2, first.RepliesCount)
	assert.Equal(t, []string{"psilocybin"}, first.MatchedKeywords)
	assert.Empty(t, first.Error)

	// Per-row failures land in the row, not in the pass result.
	second := sink.records[1]
	assert.Equal(t, "t1_b", second.CommentID)
	assert.Equal(t, "comment deleted", second.Error)
	assert.Zero(t, second.Score)
}

func TestMetricsPass_SinkFailureSkipsRow(t *testing.T) {
	runs := &memRunLog{records: []domain.RunRecord{
		{RunID: "r1", PostID: "p1", CommentID: "t1_a", Posted: true},
	}}
	inspector := &fakeInspector{metrics: map[string]domain.CommentMetrics{}}
	sink := &memMetricLog{err: errors.New("disk full")}

	pass := NewMetricsPass(runs, inspector, sink, zap.NewNop())
	checked, err := pass.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, checked)
}
