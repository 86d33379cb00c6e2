// Package redditapi is the authenticated Reddit JSON API adapter. It
// implements ports.Source and ports.CommentInspector over the OAuth
// password grant, mapping listing payloads into domain posts.
package redditapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"redscout/internal/config"
	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

const (
	authBaseURL = "https://www.reddit.com"
	apiBaseURL  = "https://oauth.reddit.com"
)

// Listing selects which feed Fetch reads. Zero value means /new.
type Listing struct {
	Sort      string // new, hot, rising, top
	TimeRange string // day, week, month, year, all (top only)
}

// Client talks to the Reddit API for one account.
type Client struct {
	AuthBaseURL string
	APIBaseURL  string
	HTTPClient  *http.Client

	creds     config.Credentials
	listing   Listing
	userAgent string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type Option func(*Client)

// WithListing selects a non-default feed, used by scan shards.
func WithListing(l Listing) Option {
	return func(c *Client) { c.listing = l }
}

func NewClient(cfg *config.Settings, opts ...Option) *Client {
	c := &Client{
		AuthBaseURL: authBaseURL,
		APIBaseURL:  apiBaseURL,
		HTTPClient:  &http.Client{Timeout: cfg.FetchTimeout},
		creds:       cfg.Credentials,
		userAgent:   cfg.Credentials.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ ports.Source           = (*Client)(nil)
	_ ports.CommentInspector = (*Client)(nil)
)

func (c *Client) Name() string {
	return "reddit-api"
}

// ensureToken fetches or refreshes the OAuth token via the password grant.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.creds.Username},
		"password":   {c.creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.AuthBaseURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return fmt.Errorf("authentication rejected: %s", tok.Error)
	}

	c.token = tok.AccessToken
	// Refresh one minute early.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Fetch returns up to limit posts from the configured listing of subreddit.
func (c *Client) Fetch(ctx context.Context, subreddit string, limit int) ([]domain.Post, error) {
	sort := c.listing.Sort
	if sort == "" {
		sort = "new"
	}
	path := fmt.Sprintf("/r/%s/%s?limit=%d&raw_json=1", url.PathEscape(subreddit), sort, limit)
	if sort == "top" && c.listing.TimeRange != "" {
		path += "&t=" + url.QueryEscape(c.listing.TimeRange)
	}

	var envelope thing
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}

	var listing listingData
	if err := json.Unmarshal(envelope.Data, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	posts := make([]domain.Post, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child.Kind != "t3" {
			continue
		}
		var link linkData
		if err := json.Unmarshal(child.Data, &link); err != nil {
			continue
		}
		posts = append(posts, domain.Post{
			ID:        link.ID,
			Subreddit: link.Subreddit,
			Title:     link.Title,
			Body:      link.Selftext,
			Author:    link.Author,
			URL:       "https://www.reddit.com" + link.Permalink,
			Score:     link.Score,
			CreatedAt: time.Unix(int64(link.CreatedUTC), 0).UTC(),
		})
		if len(posts) >= limit {
			break
		}
	}
	return posts, nil
}

// Reply posts a comment under postID and returns the new comment id.
func (c *Client) Reply(ctx context.Context, postID, text string) (string, error) {
	if err := c.ensureToken(ctx); err != nil {
		return "", err
	}

	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t3_" + postID},
		"text":     {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.APIBaseURL+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("post comment: status %d", resp.StatusCode)
	}

	var cr commentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode comment response: %w", err)
	}
	if len(cr.JSON.Errors) > 0 {
		return "", fmt.Errorf("comment rejected: %v", cr.JSON.Errors[0])
	}
	if len(cr.JSON.Data.Things) == 0 {
		return "", fmt.Errorf("comment response carried no thing")
	}

	var comment commentData
	if err := json.Unmarshal(cr.JSON.Data.Things[0].Data, &comment); err != nil {
		return "", fmt.Errorf("decode comment: %w", err)
	}
	return comment.ID, nil
}

// CommentMetrics returns the current score and shallow reply count for a
// comment. Two calls: /api/info resolves the parent link, then the comment
// tree supplies score and direct replies.
func (c *Client) CommentMetrics(ctx context.Context, commentID string) (domain.CommentMetrics, error) {
	commentID = strings.TrimPrefix(commentID, "t1_")

	var info thing
	if err := c.get(ctx, "/api/info?id=t1_"+url.QueryEscape(commentID), &info); err != nil {
		return domain.CommentMetrics{}, err
	}
	var infoListing listingData
	if err := json.Unmarshal(info.Data, &infoListing); err != nil {
		return domain.CommentMetrics{}, fmt.Errorf("decode info: %w", err)
	}
	if len(infoListing.Children) == 0 {
		return domain.CommentMetrics{}, fmt.Errorf("comment %s not found", commentID)
	}
	var stub commentData
	if err := json.Unmarshal(infoListing.Children[0].Data, &stub); err != nil {
		return domain.CommentMetrics{}, fmt.Errorf("decode comment info: %w", err)
	}

	linkID := strings.TrimPrefix(stub.LinkID, "t3_")
	path := fmt.Sprintf("/comments/%s?comment=%s&depth=1&raw_json=1",
		url.PathEscape(linkID), url.QueryEscape(commentID))

	// The comments endpoint returns [link listing, comment listing].
	var tree []thing
	if err := c.get(ctx, path, &tree); err != nil {
		return domain.CommentMetrics{}, err
	}
	if len(tree) < 2 {
		return domain.CommentMetrics{}, fmt.Errorf("unexpected comment tree shape")
	}

	var commentListing listingData
	if err := json.Unmarshal(tree[1].Data, &commentListing); err != nil {
		return domain.CommentMetrics{}, fmt.Errorf("decode comment listing: %w", err)
	}
	if len(commentListing.Children) == 0 {
		return domain.CommentMetrics{}, fmt.Errorf("comment %s missing from tree", commentID)
	}

	var comment commentData
	if err := json.Unmarshal(commentListing.Children[0].Data, &comment); err != nil {
		return domain.CommentMetrics{}, fmt.Errorf("decode comment: %w", err)
	}

	return domain.CommentMetrics{
		Score:        comment.Score,
		RepliesCount: countReplies(comment.Replies),
	}, nil
}

// countReplies handles Reddit's quirk of encoding an empty reply set as ""
// instead of a listing object.
func countReplies(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == `""` {
		return 0
	}
	var replies thing
	if err := json.Unmarshal(raw, &replies); err != nil {
		return 0
	}
	var listing listingData
	if err := json.Unmarshal(replies.Data, &listing); err != nil {
		return 0
	}
	return len(listing.Children)
}
