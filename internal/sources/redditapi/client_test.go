package redditapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redscout/internal/config"
)

func testConfig() *config.Settings {
	return &config.Settings{
		Credentials: config.Credentials{
			ClientID:     "cid",
			ClientSecret: "secret",
			Username:     "user",
			Password:     "pass",
			UserAgent:    "test-agent/1.0",
		},
		FetchTimeout: 5 * time.Second,
	}
}

// newTestServer serves the token endpoint plus the given API handlers.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"tok123","token_type":"bearer","expires_in":3600}`)
	})
	for pattern, h := range handlers {
		mux.HandleFunc(pattern, h)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(testConfig())
	client.AuthBaseURL = srv.URL
	client.APIBaseURL = srv.URL
	return srv, client
}

func TestClient_Fetch(t *testing.T) {
	listing := `{"kind":"Listing","data":{"children":[
		{"kind":"t3","data":{"id":"abc","subreddit":"microdosing","title":"a title","selftext":"body","author":"u1","score":3,"permalink":"/r/microdosing/abc","created_utc":1741003200}},
		{"kind":"t1","data":{"id":"skipme"}},
		{"kind":"t3","data":{"id":"def","subreddit":"microdosing","title":"another","author":"u2"}}
	]}}`

	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/r/microdosing/new": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
			assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			fmt.Fprint(w, listing)
		},
	})

	posts, err := client.Fetch(context.Background(), "microdosing", 25)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "abc", posts[0].ID)
	assert.Equal(t, "a title", posts[0].Title)
	assert.Equal(t, "body", posts[0].Body)
	assert.Equal(t, 3, posts[0].Score)
	assert.Equal(t, "https://www.reddit.com/r/microdosing/abc", posts[0].URL)
	assert.Equal(t, time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC), posts[0].CreatedAt)
	assert.Equal(t, "def", posts[1].ID)
}

func TestClient_FetchTopListing(t *testing.T) {
	var gotPath string
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/r/microdosing/top": func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.String()
			fmt.Fprint(w, `{"kind":"Listing","data":{"children":[]}}`)
		},
	})
	client.listing = Listing{Sort: "top", TimeRange: "week"}

	_, err := client.Fetch(context.Background(), "microdosing", 10)
	require.NoError(t, err)
	assert.Contains(t, gotPath, "t=week")
}

func TestClient_FetchLimitApplied(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/r/microdosing/new": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"kind":"Listing","data":{"children":[
				{"kind":"t3","data":{"id":"a"}},
				{"kind":"t3","data":{"id":"b"}},
				{"kind":"t3","data":{"id":"c"}}
			]}}`)
		},
	})

	posts, err := client.Fetch(context.Background(), "microdosing", 2)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestClient_TokenReused(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
	})
	mux.HandleFunc("/r/test/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kind":"Listing","data":{"children":[]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(testConfig())
	client.AuthBaseURL = srv.URL
	client.APIBaseURL = srv.URL

	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), "test", 5)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestClient_TokenRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(testConfig())
	client.AuthBaseURL = srv.URL
	client.APIBaseURL = srv.URL

	_, err := client.Fetch(context.Background(), "test", 5)
	assert.ErrorContains(t, err, "invalid_grant")
}

func TestClient_Reply(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/comment": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "t3_abc", r.PostForm.Get("thing_id"))
			assert.Equal(t, "json", r.PostForm.Get("api_type"))
			assert.Equal(t, "the reply", r.PostForm.Get("text"))
			fmt.Fprint(w, `{"json":{"errors":[],"data":{"things":[{"kind":"t1","data":{"id":"newcomment"}}]}}}`)
		},
	})

	id, err := client.Reply(context.Background(), "abc", "the reply")
	require.NoError(t, err)
	assert.Equal(t, "newcomment", id)
}

func TestClient_ReplyRejected(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/comment": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"json":{"errors":[["RATELIMIT","try again later","ratelimit"]],"data":{"things":[]}}}`)
		},
	})

	_, err := client.Reply(context.Background(), "abc", "text")
	assert.ErrorContains(t, err, "comment rejected")
}

func TestClient_CommentMetrics(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/info": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "t1_cmt", r.URL.Query().Get("id"))
			fmt.Fprint(w, `{"kind":"Listing","data":{"children":[
				{"kind":"t1","data":{"id":"cmt","link_id":"t3_lnk","score":4}}
			]}}`)
		},
		"/comments/lnk": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "cmt", r.URL.Query().Get("comment"))
			fmt.Fprint(w, `[
				{"kind":"Listing","data":{"children":[]}},
				{"kind":"Listing","data":{"children":[
					{"kind":"t1","data":{"id":"cmt","score":4,"replies":{"kind":"Listing","data":{"children":[
						{"kind":"t1","data":{"id":"r1"}},
						{"kind":"t1","data":{"id":"r2"}}
					]}}}}
				]}}
			]`)
		},
	})

	m, err := client.CommentMetrics(context.Background(), "t1_cmt")
	require.NoError(t, err)
	assert.Equal(t, 4, m.Score)
	assert.Equal(t, 2, m.RepliesCount)
}

func TestClient_CommentMetricsEmptyReplies(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/info": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"kind":"Listing","data":{"children":[
				{"kind":"t1","data":{"id":"cmt","link_id":"t3_lnk","score":1}}
			]}}`)
		},
		"/comments/lnk": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[
				{"kind":"Listing","data":{"children":[]}},
				{"kind":"Listing","data":{"children":[
					{"kind":"t1","data":{"id":"cmt","score":1,"replies":""}}
				]}}
			]`)
		},
	})

	m, err := client.CommentMetrics(context.Background(), "cmt")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Score)
	assert.Zero(t, m.RepliesCount)
}
