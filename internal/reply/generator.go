// Package reply drafts reply candidates from matched posts. Generation
// never fails: any LLM trouble degrades to the deterministic template.
package reply

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
	"redscout/internal/safety"
)

// SafetyPrompt is the fixed system instruction for every LLM call.
const SafetyPrompt = `You are an educational assistant focused on harm reduction and neutral information.
Rules:
- Do not give medical or dosing advice.
- Do not encourage illegal activity or acquisition of substances.
- Do not promote products, brands, or websites; never include links.
- Do not provide protocols, schedules, or dose guidance; emphasize legal and health risks and uncertainty.
- Keep replies short (2-5 sentences), neutral, and focused on general risks and considerations.
- Suggest speaking with qualified professionals for personal guidance.
- Respect community rules and be considerate in tone.`

const fallbackTemplate = "Thanks for sharing this question. I'm just an info bot focused on general education and harm reduction. " +
	"People report different experiences around {keywords}; risks and benefits vary. " +
	"For personal guidance, it's best to speak with a qualified professional who knows your situation."

const fillerSentence = "Happy to share more if helpful."

// Generator produces reply candidates. Brain may be nil when UseLLM is off.
type Generator struct {
	brain     ports.Brain
	templates map[string]string
	useLLM    bool
	log       *zap.Logger
	now       func() time.Time
}

func NewGenerator(brain ports.Brain, templates map[string]string, useLLM bool, log *zap.Logger) *Generator {
	return &Generator{
		brain:     brain,
		templates: templates,
		useLLM:    useLLM,
		log:       log,
		now:       time.Now,
	}
}

// Generate drafts a reply for a matched post. The returned candidate always
// has non-empty text, carries no URL, and fits the sentence policy.
func (g *Generator) Generate(ctx context.Context, post domain.Post, matched []string) domain.ReplyCandidate {
	source := domain.ReplySourceTemplate
	text := ""

	if g.useLLM && g.brain != nil {
		llmText, err := g.brain.GenerateReply(ctx, SafetyPrompt, post, matched)
		switch {
		case err != nil:
			g.log.Warn("llm generation failed, falling back to template", zap.Error(err))
			source = domain.ReplySourceLLMFallback
		case strings.TrimSpace(llmText) == "":
			g.log.Warn("llm returned empty text, falling back to template")
			source = domain.ReplySourceLLMFallback
		default:
			source = domain.ReplySourceLLM
			text = llmText
		}
	}

	if text == "" {
		text = g.templateReply(post, matched)
	}

	text = applyPolicy(text)
	return domain.ReplyCandidate{Text: text, Source: source, GeneratedAt: g.now()}
}

// templateReply selects a template keyed by the first matched keyword that
// has one, falling back to the built-in default.
func (g *Generator) templateReply(post domain.Post, matched []string) string {
	tpl := fallbackTemplate
	for _, kw := range matched {
		if t, ok := g.templates[strings.ToLower(kw)]; ok && t != "" {
			tpl = t
			break
		}
	}

	blurb := "your topic"
	if len(matched) > 0 {
		blurb = strings.Join(matched, ", ")
	}

	r := strings.NewReplacer(
		"{keywords}", blurb,
		"{subreddit}", post.Subreddit,
		"{title}", post.Title,
	)
	return r.Replace(tpl)
}

var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// applyPolicy strips links and clamps the reply to the sentence bounds.
func applyPolicy(text string) string {
	text = stripLinks(strings.TrimSpace(text))
	text = strings.Trim(text, `"' `)

	sentences := splitSentences(text)
	if len(sentences) > safety.MaxReplySentences {
		sentences = sentences[:safety.MaxReplySentences]
	}
	for len(sentences) < safety.MinReplySentences {
		sentences = append(sentences, fillerSentence)
	}
	return strings.Join(sentences, " ")
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceSplit.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start : loc[0]+1])
		if s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// stripLinks drops any whitespace-delimited token carrying a URL marker.
// The no-links invariant holds for every generation path.
func stripLinks(text string) string {
	if !safety.ContainsURL(text) {
		return text
	}
	var kept []string
	for _, tok := range strings.Fields(text) {
		if safety.ContainsURL(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
