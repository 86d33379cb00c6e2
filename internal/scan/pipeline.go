// Package scan orchestrates one run: fetch posts, match keywords, draft a
// reply, gate it behind safety rules and human approval, post or suppress,
// and record exactly one outcome per post reaching a terminal state.
package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"redscout/internal/config"
	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
	"redscout/internal/match"
	"redscout/internal/reply"
	"redscout/internal/safety"
)

// Summary aggregates one run's outcomes.
type Summary struct {
	Fetched      int
	Deduplicated int
	Matched      int
	Approved     int
	Posted       int
	Records      int
}

// Pipeline processes posts strictly one at a time. The only intentionally
// blocking step is the approval gate.
type Pipeline struct {
	cfg    *config.Settings
	source ports.Source
	gen    *reply.Generator
	gate   ports.Approver
	guard  safety.Gate
	runs   ports.RunLog
	state  ports.StateStore
	log    *zap.Logger

	runID string
	mode  string
	sleep func(time.Duration)
	now   func() time.Time
}

func NewPipeline(cfg *config.Settings, source ports.Source, gen *reply.Generator,
	gate ports.Approver, guard safety.Gate, runs ports.RunLog,
	state ports.StateStore, log *zap.Logger) *Pipeline {

	mode := "live"
	if cfg.MockMode {
		mode = "mock"
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		gen:    gen,
		gate:   gate,
		guard:  guard,
		runs:   runs,
		state:  state,
		log:    log,
		runID:  uuid.NewString(),
		mode:   mode,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// RunID identifies this run in every record it appends.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run scans every configured subreddit once. A post id seen earlier in the
// same run is dropped without a record; every other post yields one.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	seen := make(map[string]struct{})

	for _, subreddit := range p.cfg.Subreddits {
		p.log.Info("scanning subreddit",
			zap.String("run_id", p.runID),
			zap.String("subreddit", subreddit),
			zap.Strings("keywords", p.cfg.Keywords))

		posts, err := p.source.Fetch(ctx, subreddit, p.cfg.ScanLimit)
		if err != nil {
			p.log.Warn("fetch failed, skipping batch",
				zap.String("subreddit", subreddit), zap.Error(err))
			rec := p.newRecord(domain.Post{Subreddit: subreddit}, nil)
			rec.Outcome = domain.OutcomeFetchFailed
			rec.Error = err.Error()
			p.append(ctx, rec)
			sum.Records++
			continue
		}
		sum.Fetched += len(posts)

		for _, post := range posts {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			if _, dup := seen[post.ID]; dup {
				sum.Deduplicated++
				continue
			}
			seen[post.ID] = struct{}{}

			rec := p.process(ctx, post)
			p.append(ctx, rec)
			sum.Records++
			if len(rec.MatchedKeywords) > 0 {
				sum.Matched++
			}
			if rec.Approved {
				sum.Approved++
			}
			if rec.Posted {
				sum.Posted++
			}
		}
	}
	return sum, nil
}

// process walks one post to its terminal state and returns its record.
func (p *Pipeline) process(ctx context.Context, post domain.Post) domain.RunRecord {
	res := match.Post(post, p.cfg.Keywords)
	rec := p.newRecord(post, res.Keywords)

	if !res.Matched() {
		rec.Outcome = domain.OutcomeSkipped
		return rec
	}

	if ok, err := p.state.CanAttempt(post.ID); err == nil && !ok {
		rec.Outcome = domain.OutcomeSkipped
		rec.Error = "already replied in a previous run"
		return rec
	}

	candidate := p.gen.Generate(ctx, post, res.Keywords)
	rec.ReplyText = candidate.Text

	allowed, reason := p.guard.Check(domain.ActionComment, candidate.Text)
	if !allowed {
		rec.Outcome = domain.OutcomeBlocked
		rec.Error = reason
		if reason == "posting disabled" && p.cfg.ReviewWhenPostingDisabled {
			// Dry-run review: the decision is logged but nothing posts.
			decision, err := p.gate.Review(ctx, post, candidate)
			if err == nil {
				rec.Approved = decision.Approved
				rec.ReplyText = decision.FinalText(candidate)
			}
		}
		return rec
	}

	decision, err := p.gate.Review(ctx, post, candidate)
	if err != nil {
		rec.Outcome = domain.OutcomeRejected
		rec.Error = "approval failed: " + err.Error()
		return rec
	}
	if !decision.Approved {
		rec.Outcome = domain.OutcomeRejected
		rec.Error = decision.Reason
		return rec
	}

	rec.Approved = true
	text := decision.FinalText(candidate)
	rec.ReplyText = text

	if err := p.state.MarkAttempt(post.ID); err != nil {
		p.log.Warn("state store attempt mark failed", zap.Error(err))
	}

	if p.cfg.MockMode {
		rec.Outcome = domain.OutcomePostFailed
		rec.Error = "mock mode"
		_ = p.state.MarkFailure(post.ID, "mock mode")
		return rec
	}

	commentID, err := p.source.Reply(ctx, post.ID, text)
	if err != nil {
		rec.Outcome = domain.OutcomePostFailed
		rec.Error = err.Error()
		_ = p.state.MarkFailure(post.ID, err.Error())
		return rec
	}

	rec.Posted = true
	rec.CommentID = commentID
	rec.Outcome = domain.OutcomePosted
	_ = p.state.MarkSuccess(post.ID, commentID)
	p.guard.Record(domain.ActionComment, true)

	p.log.Info("reply posted",
		zap.String("post_id", post.ID), zap.String("comment_id", commentID))
	p.sleep(p.cfg.PostDelay)
	return rec
}

func (p *Pipeline) newRecord(post domain.Post, keywords []string) domain.RunRecord {
	return domain.RunRecord{
		RunID:           p.runID,
		Timestamp:       p.now().UTC(),
		Mode:            p.mode,
		Subreddit:       post.Subreddit,
		PostID:          post.ID,
		Title:           post.Title,
		MatchedKeywords: keywords,
	}
}

// append never fails the pipeline; a broken log sink degrades to an error
// line in the process log.
func (p *Pipeline) append(ctx context.Context, rec domain.RunRecord) {
	if err := p.runs.Append(ctx, rec); err != nil {
		p.log.Error("run log append failed",
			zap.String("post_id", rec.PostID), zap.Error(err))
	}
}
