package ports

import (
	"context"

	"redscout/internal/core/domain"
)

// Source produces posts from one subreddit and submits approved replies.
// Two interchangeable implementations exist: the authenticated JSON API
// client and the browser-automation scraper, selected by configuration.
type Source interface {
	Name() string
	Fetch(ctx context.Context, subreddit string, limit int) ([]domain.Post, error)
	Reply(ctx context.Context, postID, text string) (commentID string, err error)
}

// CommentInspector reads back engagement for a previously posted comment.
// Only the API source supports this; the metrics pass requires it.
type CommentInspector interface {
	CommentMetrics(ctx context.Context, commentID string) (domain.CommentMetrics, error)
}

// Brain generates reply text from a post and its matched keywords under a
// fixed system instruction.
type Brain interface {
	GenerateReply(ctx context.Context, system string, post domain.Post, keywords []string) (string, error)
}

// Approver blocks until a human decision arrives for a drafted reply.
type Approver interface {
	Review(ctx context.Context, post domain.Post, candidate domain.ReplyCandidate) (domain.ApprovalDecision, error)
}

// RunLog is the append-only system of record for pipeline attempts.
// Append is not idempotent: identical rows append again.
type RunLog interface {
	Append(ctx context.Context, rec domain.RunRecord) error
	// PostedRecords returns rows with posted=true, for the metrics pass.
	PostedRecords(ctx context.Context) ([]domain.RunRecord, error)
}

// MetricLog is the append-only sink for engagement checks.
type MetricLog interface {
	AppendMetric(ctx context.Context, rec domain.MetricRecord) error
}

// StateStore tracks posting attempts across runs so a post is never
// replied to twice. Statuses follow inflight -> success | failed.
type StateStore interface {
	CanAttempt(postID string) (bool, error)
	MarkAttempt(postID string) error
	MarkSuccess(postID, commentID string) error
	MarkFailure(postID, errMsg string) error
}
