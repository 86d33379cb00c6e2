package approval

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redscout/internal/core/domain"
)

func reviewWith(t *testing.T, input string) (domain.ApprovalDecision, string) {
	t.Helper()
	var out bytes.Buffer
	cli := NewCLI(strings.NewReader(input), &out, "tester")

	post := domain.Post{Subreddit: "microdosing", Title: "a question", Body: "some body text"}
	candidate := domain.ReplyCandidate{Text: "drafted reply", Source: domain.ReplySourceTemplate}

	d, err := cli.Review(context.Background(), post, candidate)
	require.NoError(t, err)
	return d, out.String()
}

func TestCLI_Approve(t *testing.T) {
	d, out := reviewWith(t, "y\n")
	assert.True(t, d.Approved)
	assert.Empty(t, d.EditedText)
	assert.Equal(t, "tester", d.DecidedBy)
	assert.Contains(t, out, "drafted reply")
	assert.Contains(t, out, "r/microdosing")
}

func TestCLI_Reject(t *testing.T) {
	d, _ := reviewWith(t, "n\n")
	assert.False(t, d.Approved)
	assert.Equal(t, "rejected by operator", d.Reason)
}

func TestCLI_Edit(t *testing.T) {
	d, _ := reviewWith(t, "e\na better reply\n")
	assert.True(t, d.Approved)
	assert.Equal(t, "a better reply", d.EditedText)
}

func TestCLI_EmptyEditReprompts(t *testing.T) {
	d, out := reviewWith(t, "e\n\nn\n")
	assert.False(t, d.Approved)
	assert.Contains(t, out, "Empty edit ignored.")
}

func TestCLI_UnknownInputReprompts(t *testing.T) {
	d, out := reviewWith(t, "maybe\nyes\n")
	assert.True(t, d.Approved)
	assert.Contains(t, out, "Please answer y, e or n.")
}

func TestCLI_InputClosed(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLI(strings.NewReader(""), &out, "")

	_, err := cli.Review(context.Background(), domain.Post{}, domain.ReplyCandidate{})
	assert.Error(t, err)
}
