package brain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

type geminiModel struct {
	Name string
	RPM  int
	RPD  int
}

// GeminiBrain generates replies through the Gemini API, walking a list of
// models ordered by preference and skipping any whose request budget for
// the current minute or day is spent.
type GeminiBrain struct {
	client *genai.Client
	models []geminiModel

	mu           sync.Mutex
	dailyCount   map[string]int
	minuteCount  map[string]int
	lastResetDay time.Time
	lastResetMin time.Time
}

func NewGeminiBrain(ctx context.Context, apiKey string) (*GeminiBrain, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &GeminiBrain{
		client: client,
		models: []geminiModel{
			{Name: "gemini-2.5-flash", RPM: 10, RPD: 250},
			{Name: "gemini-2.5-flash-lite", RPM: 15, RPD: 1000},
		},
		dailyCount:   make(map[string]int),
		minuteCount:  make(map[string]int),
		lastResetDay: time.Now(),
		lastResetMin: time.Now(),
	}, nil
}

var _ ports.Brain = (*GeminiBrain)(nil)

func (b *GeminiBrain) GenerateReply(ctx context.Context, system string, post domain.Post, keywords []string) (string, error) {
	prompt := fmt.Sprintf(`%s

Reddit post title: %s
Reddit post body: %s
Matched keywords: %s
Write one short reply (2-5 sentences) that follows the rules. Output plain text only, no JSON.`,
		system, post.Title, post.Body, strings.Join(keywords, ", "))

	var lastErr error
	for _, m := range b.models {
		if !b.canUse(m) {
			continue
		}

		result, err := b.client.Models.GenerateContent(ctx, m.Name, genai.Text(prompt), nil)
		if err != nil {
			if isBudgetError(err) {
				lastErr = err
				continue
			}
			return "", fmt.Errorf("gemini generate: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
			b.recordUse(m)
			return result.Candidates[0].Content.Parts[0].Text, nil
		}
		lastErr = fmt.Errorf("empty response from %s", m.Name)
	}

	return "", fmt.Errorf("all gemini models exhausted: %w", errOrUnknown(lastErr))
}

func (b *GeminiBrain) canUse(m geminiModel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.YearDay() != b.lastResetDay.YearDay() {
		b.dailyCount = make(map[string]int)
		b.lastResetDay = now
	}
	if now.Sub(b.lastResetMin) >= time.Minute {
		b.minuteCount = make(map[string]int)
		b.lastResetMin = now
	}
	return b.dailyCount[m.Name] < m.RPD && b.minuteCount[m.Name] < m.RPM
}

func (b *GeminiBrain) recordUse(m geminiModel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dailyCount[m.Name]++
	b.minuteCount[m.Name]++
}

func isBudgetError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") || strings.Contains(s, "rate limit") ||
		strings.Contains(s, "exhausted") || strings.Contains(s, "404") ||
		strings.Contains(s, "not found")
}

func errOrUnknown(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("no usable model")
}
