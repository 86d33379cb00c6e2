// Package safety gates every state-changing action behind ordered policy
// rules evaluated over a process-local action history.
package safety

import (
	"strings"
	"sync"
	"time"

	"redscout/internal/config"
	"redscout/internal/core/domain"
)

// Gate is the capability consumed by the pipeline. Nop is the explicit
// allow-everything variant.
type Gate interface {
	Check(kind domain.Action, content string) (allowed bool, reason string)
	Record(kind domain.Action, success bool)
}

const maxHistory = 1000

type actionRecord struct {
	kind domain.Action
	at   time.Time
}

// Checker evaluates rules in a fixed order; the first failing rule wins.
type Checker struct {
	enablePosting bool
	limits        map[domain.Action]config.RateLimit
	denylist      []string
	now           func() time.Time

	mu      sync.Mutex
	history []actionRecord
	lastAt  map[domain.Action]time.Time
}

func NewChecker(cfg *config.Settings) *Checker {
	return &Checker{
		enablePosting: cfg.EnablePosting,
		limits:        cfg.RateLimits,
		denylist:      cfg.Denylist,
		now:           time.Now,
		lastAt:        make(map[domain.Action]time.Time),
	}
}

var _ Gate = (*Checker)(nil)

// Check returns whether kind may run now, and a reason when it may not.
// Rule order: posting toggle, hourly window, cooldown, daily cap, content.
func (c *Checker) Check(kind domain.Action, content string) (bool, string) {
	if !c.enablePosting && isPostingAction(kind) {
		return false, "posting disabled"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	limits := c.limits[kind]
	now := c.now()

	if limits.MaxPerHour > 0 && c.countSince(kind, now.Add(-time.Hour)) >= limits.MaxPerHour {
		return false, "rate limit exceeded"
	}

	if limits.MinInterval > 0 {
		if last, ok := c.lastAt[kind]; ok && now.Sub(last) < limits.MinInterval {
			return false, "cooldown not elapsed"
		}
	}

	if limits.DailyLimit > 0 {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if c.countSince(kind, midnight) >= limits.DailyLimit {
			return false, "daily limit exceeded"
		}
	}

	if content != "" && !contentSafe(content, c.denylist) {
		return false, "content policy violation"
	}

	return true, ""
}

// Record notes a performed action. Callers record only actions that ran;
// denials are not recorded.
func (c *Checker) Record(kind domain.Action, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, actionRecord{kind: kind, at: c.now()})
	c.lastAt[kind] = c.now()
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
}

func (c *Checker) countSince(kind domain.Action, cutoff time.Time) int {
	n := 0
	for _, rec := range c.history {
		if rec.kind == kind && rec.at.After(cutoff) {
			n++
		}
	}
	return n
}

func isPostingAction(kind domain.Action) bool {
	switch kind {
	case domain.ActionComment, domain.ActionPost, domain.ActionMessage:
		return true
	}
	return false
}

func contentSafe(content string, denylist []string) bool {
	for _, re := range personalInfoPatterns {
		if re.MatchString(content) {
			return false
		}
	}

	lower := strings.ToLower(content)
	for _, phrase := range harmfulPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	for _, entry := range denylist {
		if entry != "" && strings.Contains(lower, strings.ToLower(entry)) {
			return false
		}
	}
	return true
}

// Nop allows everything and records nothing. Wiring it in place of a
// Checker is a visible construction-time choice, not a silent default.
type Nop struct{}

var _ Gate = Nop{}

func (Nop) Check(domain.Action, string) (bool, string) { return true, "" }
func (Nop) Record(domain.Action, bool)                 {}
