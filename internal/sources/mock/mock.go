// Package mock is the deterministic offline content source used when mock
// mode is enabled or live authentication fails.
package mock

import (
	"context"
	"errors"
	"time"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

// ErrMockMode is returned by Reply; mock mode never posts.
var ErrMockMode = errors.New("mock mode")

var cannedAt = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

// Posts is the canned sequence every Fetch returns, in order.
var Posts = []domain.Post{
	{
		ID:        "mock1",
		Subreddit: "microdosing",
		Title:     "Tried microdosing mushrooms today",
		Body:      "First time, mostly curious about what others experienced.",
		Author:    "mock_author_1",
		Score:     10,
		CreatedAt: cannedAt,
	},
	{
		ID:        "mock2",
		Subreddit: "microdosing",
		Title:     "Completely unrelated gardening question",
		Body:      "This one should not match unless keywords change.",
		Author:    "mock_author_2",
		Score:     5,
		CreatedAt: cannedAt,
	},
	{
		ID:        "mock3",
		Subreddit: "microdosing",
		Title:     "Looking for harm reduction resources",
		Body:      "Want to understand the risks before deciding anything.",
		Author:    "mock_author_3",
		Score:     8,
		CreatedAt: cannedAt,
	},
}

type Source struct{}

func New() *Source {
	return &Source{}
}

var _ ports.Source = (*Source)(nil)

func (s *Source) Name() string {
	return "mock"
}

func (s *Source) Fetch(ctx context.Context, subreddit string, limit int) ([]domain.Post, error) {
	posts := make([]domain.Post, 0, len(Posts))
	for _, p := range Posts {
		if len(posts) >= limit {
			break
		}
		p.Subreddit = subreddit
		posts = append(posts, p)
	}
	return posts, nil
}

func (s *Source) Reply(ctx context.Context, postID, text string) (string, error) {
	return "", ErrMockMode
}
