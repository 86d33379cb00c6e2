// Package approval holds the human review gates. Every implementation
// blocks the pipeline until a decision arrives.
package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
	"redscout/internal/match"
)

// CLI prompts the operator on the terminal: approve, edit or reject.
type CLI struct {
	in       *bufio.Reader
	out      io.Writer
	operator string
	now      func() time.Time
}

func NewCLI(in io.Reader, out io.Writer, operator string) *CLI {
	if operator == "" {
		operator = "cli"
	}
	return &CLI{
		in:       bufio.NewReader(in),
		out:      out,
		operator: operator,
		now:      time.Now,
	}
}

var _ ports.Approver = (*CLI)(nil)

func (c *CLI) Review(ctx context.Context, post domain.Post, candidate domain.ReplyCandidate) (domain.ApprovalDecision, error) {
	fmt.Fprintf(c.out, "\n[MATCH] r/%s: %s\n", post.Subreddit, post.Title)
	fmt.Fprintf(c.out, "Post: %s\n", match.Preview(post.Body, 200))
	fmt.Fprintf(c.out, "\nSuggested reply (%s):\n%s\n", candidate.Source, candidate.Text)

	for {
		fmt.Fprint(c.out, "\nPost this reply? [y]es / [e]dit / [n]o: ")
		line, err := c.in.ReadString('\n')
		if err != nil {
			return domain.ApprovalDecision{}, fmt.Errorf("read decision: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return c.decision(true, "", ""), nil
		case "e", "edit":
			fmt.Fprint(c.out, "Replacement text (single line): ")
			edited, err := c.in.ReadString('\n')
			if err != nil {
				return domain.ApprovalDecision{}, fmt.Errorf("read edit: %w", err)
			}
			edited = strings.TrimSpace(edited)
			if edited == "" {
				fmt.Fprintln(c.out, "Empty edit ignored.")
				continue
			}
			return c.decision(true, edited, ""), nil
		case "n", "no":
			return c.decision(false, "", "rejected by operator"), nil
		default:
			fmt.Fprintln(c.out, "Please answer y, e or n.")
		}
	}
}

func (c *CLI) decision(approved bool, edited, reason string) domain.ApprovalDecision {
	return domain.ApprovalDecision{
		Approved:   approved,
		EditedText: edited,
		Reason:     reason,
		DecidedBy:  c.operator,
		DecidedAt:  c.now(),
	}
}
