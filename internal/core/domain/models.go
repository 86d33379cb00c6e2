package domain

import "time"

// Post represents a Reddit submission as seen by any content source.
type Post struct {
	ID        string
	Subreddit string
	Title     string
	Body      string
	Author    string
	URL       string
	Score     int
	CreatedAt time.Time
}

// MatchResult pairs a post with the keywords that hit it. Keywords keep the
// order they were declared in configuration, not the order of appearance.
type MatchResult struct {
	Post     Post
	Keywords []string
}

func (m MatchResult) Matched() bool {
	return len(m.Keywords) > 0
}

// ReplySource records which path produced a reply candidate.
type ReplySource string

const (
	ReplySourceTemplate    ReplySource = "template"
	ReplySourceLLM         ReplySource = "llm"
	ReplySourceLLMFallback ReplySource = "llm-fallback"
)

// ReplyCandidate is a drafted reply awaiting human review.
type ReplyCandidate struct {
	Text        string
	Source      ReplySource
	GeneratedAt time.Time
}

// ApprovalDecision is the terminal record of one human review.
type ApprovalDecision struct {
	Approved   bool
	EditedText string // non-empty when the operator replaced the draft
	Reason     string // set on rejection (including auto-rejection)
	DecidedBy  string
	DecidedAt  time.Time
}

// FinalText returns the text that would actually be posted.
func (d ApprovalDecision) FinalText(candidate ReplyCandidate) string {
	if d.EditedText != "" {
		return d.EditedText
	}
	return candidate.Text
}

// Action classifies state-changing operations for rate limiting.
type Action string

const (
	ActionComment Action = "comment"
	ActionPost    Action = "post"
	ActionMessage Action = "message"
)

// Outcome is the terminal state of one post's trip through the pipeline.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeBlocked     Outcome = "blocked"
	OutcomeRejected    Outcome = "rejected"
	OutcomePosted      Outcome = "posted"
	OutcomePostFailed  Outcome = "post_failed"
	OutcomeFetchFailed Outcome = "fetch_failed"
)

// RunRecord is one append-only log row per pipeline attempt.
type RunRecord struct {
	RunID           string
	Timestamp       time.Time
	Mode            string // "mock" or "live"
	Subreddit       string
	PostID          string
	Title           string
	MatchedKeywords []string
	ReplyText       string
	Approved        bool
	Posted          bool
	CommentID       string
	Outcome         Outcome
	Error           string
}

// MetricRecord is one engagement check for a previously posted comment.
type MetricRecord struct {
	CheckedAt       time.Time
	RunID           string
	Subreddit       string
	PostID          string
	CommentID       string
	Title           string
	MatchedKeywords []string
	Score           int
	RepliesCount    int
	Error           string
}

// CommentMetrics is the current engagement state of a live comment.
type CommentMetrics struct {
	Score        int
	RepliesCount int
}
