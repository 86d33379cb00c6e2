package approval

import (
	"context"
	"sync"
	"time"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

// CapReason is the rejection reason recorded when the per-run approval cap
// is spent.
const CapReason = "approval cap reached"

// Capped limits how many reviews one run may serve. Once the cap is spent,
// every further candidate is auto-rejected without touching the inner
// approver.
type Capped struct {
	inner ports.Approver
	max   int

	mu     sync.Mutex
	served int
}

func NewCapped(inner ports.Approver, max int) *Capped {
	return &Capped{inner: inner, max: max}
}

var _ ports.Approver = (*Capped)(nil)

func (c *Capped) Review(ctx context.Context, post domain.Post, candidate domain.ReplyCandidate) (domain.ApprovalDecision, error) {
	c.mu.Lock()
	if c.max > 0 && c.served >= c.max {
		c.mu.Unlock()
		return domain.ApprovalDecision{
			Approved:  false,
			Reason:    CapReason,
			DecidedBy: "auto",
			DecidedAt: time.Now(),
		}, nil
	}
	c.served++
	c.mu.Unlock()

	return c.inner.Review(ctx, post, candidate)
}
