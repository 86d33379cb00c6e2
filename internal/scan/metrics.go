package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

// MetricsPass reads back engagement for every posted comment in the run
// log and appends one metric row each. Read-only against Reddit; per-row
// failures are recorded in the row, never fatal.
type MetricsPass struct {
	runs      ports.RunLog
	inspector ports.CommentInspector
	sink      ports.MetricLog
	log       *zap.Logger
	now       func() time.Time
}

func NewMetricsPass(runs ports.RunLog, inspector ports.CommentInspector,
	sink ports.MetricLog, log *zap.Logger) *MetricsPass {
	return &MetricsPass{
		runs:      runs,
		inspector: inspector,
		sink:      sink,
		log:       log,
		now:       time.Now,
	}
}

// Run returns how many comments were checked.
func (m *MetricsPass) Run(ctx context.Context) (int, error) {
	records, err := m.runs.PostedRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("read run log: %w", err)
	}

	checked := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return checked, err
		}
		if rec.CommentID == "" {
			continue
		}

		metric := domain.MetricRecord{
			CheckedAt:       m.now().UTC(),
			RunID:           rec.RunID,
			Subreddit:       rec.Subreddit,
			PostID:          rec.PostID,
			CommentID:       rec.CommentID,
			Title:           rec.Title,
			MatchedKeywords: rec.MatchedKeywords,
		}

		cm, err := m.inspector.CommentMetrics(ctx, rec.CommentID)
		if err != nil {
			metric.Error = err.Error()
			m.log.Warn("comment metrics fetch failed",
				zap.String("comment_id", rec.CommentID), zap.Error(err))
		} else {
			metric.Score = cm.Score
			metric.RepliesCount = cm.RepliesCount
		}

		if err := m.sink.AppendMetric(ctx, metric); err != nil {
			m.log.Error("metric append failed",
				zap.String("comment_id", rec.CommentID), zap.Error(err))
			continue
		}
		checked++
	}
	return checked, nil
}
