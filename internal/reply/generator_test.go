package reply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"redscout/internal/core/domain"
	"redscout/internal/safety"
)

type stubBrain struct {
	text string
	err  error
}

func (b *stubBrain) GenerateReply(ctx context.Context, system string, post domain.Post, keywords []string) (string, error) {
	return b.text, b.err
}

var testPost = domain.Post{ID: "t3_abc", Subreddit: "microdosing", Title: "first timer questions"}

func TestGenerate_TemplatePath(t *testing.T) {
	g := NewGenerator(nil, nil, false, zap.NewNop())

	c := g.Generate(context.Background(), testPost, []string{"microdosing", "psilocybin"})

	assert.Equal(t, domain.ReplySourceTemplate, c.Source)
	assert.NotEmpty(t, c.Text)
	assert.Contains(t, c.Text, "microdosing, psilocybin")
	assert.False(t, safety.ContainsURL(c.Text))
}

func TestGenerate_ConfiguredTemplateWins(t *testing.T) {
	templates := map[string]string{
		"psilocybin": "General info about {keywords} in r/{subreddit}. Please talk to a professional.",
	}
	g := NewGenerator(nil, templates, false, zap.NewNop())

	c := g.Generate(context.Background(), testPost, []string{"psilocybin"})

	assert.Contains(t, c.Text, "r/microdosing")
	assert.Contains(t, c.Text, "psilocybin")
}

func TestGenerate_LLMPath(t *testing.T) {
	brain := &stubBrain{text: "General information only. Risks vary between people."}
	g := NewGenerator(brain, nil, true, zap.NewNop())

	c := g.Generate(context.Background(), testPost, []string{"lsd"})

	assert.Equal(t, domain.ReplySourceLLM, c.Source)
	assert.Equal(t, "General information only. Risks vary between people.", c.Text)
}

func TestGenerate_FallbackOnBrainError(t *testing.T) {
	brain := &stubBrain{err: errors.New("quota exhausted")}
	g := NewGenerator(brain, nil, true, zap.NewNop())

	c := g.Generate(context.Background(), testPost, []string{"lsd"})

	assert.Equal(t, domain.ReplySourceLLMFallback, c.Source)
	assert.NotEmpty(t, c.Text)
}

func TestGenerate_FallbackOnEmptyText(t *testing.T) {
	brain := &stubBrain{text: "   "}
	g := NewGenerator(brain, nil, true, zap.NewNop())

	c := g.Generate(context.Background(), testPost, []string{"lsd"})

	assert.Equal(t, domain.ReplySourceLLMFallback, c.Source)
	assert.NotEmpty(t, c.Text)
}

func TestGenerate_StripsLinks(t *testing.T) {
	brain := &stubBrain{text: "Read the overview at https://example.com for details. Risks vary a lot."}
	g := NewGenerator(brain, nil, true, zap.NewNop())

	c := g.Generate(context.Background(), testPost, []string{"lsd"})

	assert.False(t, safety.ContainsURL(c.Text))
	assert.Contains(t, c.Text, "Risks vary a lot.")
}

func TestGenerate_SentencePolicy(t *testing.T) {
	t.Run("short reply padded to minimum", func(t *testing.T) {
		brain := &stubBrain{text: "One sentence only."}
		g := NewGenerator(brain, nil, true, zap.NewNop())

		c := g.Generate(context.Background(), testPost, []string{"lsd"})

		assert.Equal(t, "One sentence only. "+fillerSentence, c.Text)
	})

	t.Run("long reply clamped to maximum", func(t *testing.T) {
		brain := &stubBrain{text: strings.Repeat("A full sentence here. ", 9)}
		g := NewGenerator(brain, nil, true, zap.NewNop())

		c := g.Generate(context.Background(), testPost, []string{"lsd"})

		assert.Len(t, splitSentences(c.Text), safety.MaxReplySentences)
	})
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third one? Fourth")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "Fourth"}, got)
	assert.Empty(t, splitSentences(""))
}
