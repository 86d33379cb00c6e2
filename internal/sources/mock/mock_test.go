package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Fetch(t *testing.T) {
	s := New()

	posts, err := s.Fetch(context.Background(), "somewhere", 10)
	require.NoError(t, err)
	require.Len(t, posts, len(Posts))

	for _, p := range posts {
		assert.Equal(t, "somewhere", p.Subreddit)
		assert.NotEmpty(t, p.ID)
	}
}

func TestSource_FetchHonorsLimit(t *testing.T) {
	s := New()
	posts, err := s.Fetch(context.Background(), "x", 1)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestSource_ReplyNeverPosts(t *testing.T) {
	s := New()
	_, err := s.Reply(context.Background(), "mock1", "text")
	assert.ErrorIs(t, err, ErrMockMode)
}
