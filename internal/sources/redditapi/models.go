package redditapi

import "encoding/json"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

// thing is the generic Reddit envelope: {"kind": "...", "data": {...}}.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
	After    string  `json:"after"`
}

type linkData struct {
	ID         string  `json:"id"`
	Subreddit  string  `json:"subreddit"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Score      int     `json:"score"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

type commentData struct {
	ID        string `json:"id"`
	LinkID    string `json:"link_id"`
	Score     int    `json:"score"`
	Permalink string `json:"permalink"`
	// Replies is a nested listing when present and "" when empty.
	Replies json.RawMessage `json:"replies"`
}

// commentResponse is the api_type=json envelope for POST /api/comment.
type commentResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
