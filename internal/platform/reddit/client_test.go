package reddit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/phrazzld/engage-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeReddit struct {
	t          *testing.T
	mux        *http.ServeMux
	tokenCalls atomic.Int32
}

func newFakeReddit(t *testing.T) (*fakeReddit, *httptest.Server) {
	f := &fakeReddit{t: t, mux: http.NewServeMux()}
	f.mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "bot", r.PostForm.Get("username"))
		assert.Equal(t, "hunter2", r.PostForm.Get("password"))
		assert.Equal(t, "engage-test/1.0", r.UserAgent())

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-123","token_type":"bearer","expires_in":3600,"scope":"*"}`)
	})
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	return f, srv
}

// api registers an authenticated endpoint.
func (f *fakeReddit) api(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(f.t, "engage-test/1.0", r.UserAgent())
		h(w, r)
	})
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(config.RedditConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "bot",
		Password:     "hunter2",
		UserAgent:    "engage-test/1.0",
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/api/v1/access_token",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithRateLimit(rate.Inf, 1))
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(config.RedditConfig{ClientID: "id"}, nil)
	assert.Error(t, err)
}

func TestTopPosts(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/r/freelance/top", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "week", r.URL.Query().Get("t"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"kind": "Listing",
			"data": map[string]any{"children": []any{
				map[string]any{"kind": "t3", "data": map[string]any{
					"id": "abc", "title": "Invoices?", "selftext": "help", "author": "u1",
					"permalink": "/r/freelance/comments/abc/invoices/", "score": 42, "num_comments": 7,
					"subreddit": "freelance",
				}},
				map[string]any{"kind": "t1", "data": map[string]any{"id": "ignored"}},
			}},
		})
	})
	c := newTestClient(t, srv)

	posts, err := c.TopPosts(context.Background(), "freelance", "week", 2)
	require.NoError(t, err)

	require.Len(t, posts, 1)
	assert.Equal(t, "Invoices?", posts[0].Title)
	assert.Equal(t, 42, posts[0].Score)
	assert.Equal(t, "https://www.reddit.com/r/freelance/comments/abc/invoices/", posts[0].PermalinkURL())

	_, err = c.TopPosts(context.Background(), "freelance", "week", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load(), "token is reused")
}

func TestTopPosts_UnknownSubreddit(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/r/nope/top", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newTestClient(t, srv).TopPosts(context.Background(), "nope", "day", 10)
	assert.ErrorIs(t, err, ErrSubredditNotFound)
}

func TestTopPosts_ServerError(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/r/busy/top", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	})

	_, err := newTestClient(t, srv).TopPosts(context.Background(), "busy", "day", 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestSubmit(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "self", r.PostForm.Get("kind"))
		assert.Equal(t, "testingground4bots", r.PostForm.Get("sr"))
		assert.Equal(t, "Same boat", r.PostForm.Get("title"))
		assert.Equal(t, "body", r.PostForm.Get("text"))
		_, _ = io.WriteString(w, `{"json":{"errors":[],"data":{"id":"xyz","name":"t3_xyz",`+
			`"url":"https://www.reddit.com/r/testingground4bots/comments/xyz/same_boat/"}}}`)
	})

	link, err := newTestClient(t, srv).Submit(context.Background(), "testingground4bots", "Same boat", "body")
	require.NoError(t, err)
	assert.Equal(t, "https://www.reddit.com/r/testingground4bots/comments/xyz/same_boat/", link)
}

func TestSubmit_APIErrors(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("sr") == "ghost" {
			_, _ = io.WriteString(w, `{"json":{"errors":[["SUBREDDIT_NOEXIST","that subreddit doesn't exist","sr"]]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"json":{"errors":[["RATELIMIT","you are doing that too much","ratelimit"]]}}`)
	})
	c := newTestClient(t, srv)

	_, err := c.Submit(context.Background(), "ghost", "t", "b")
	assert.ErrorIs(t, err, ErrSubredditNotFound)

	_, err = c.Submit(context.Background(), "busy", "t", "b")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.NotErrorIs(t, err, ErrSubredditNotFound)
	assert.Contains(t, apiErr.Error(), "RATELIMIT")
}

func TestComment(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/api/comment", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "t3_abc", r.PostForm.Get("thing_id"))
		assert.Equal(t, "reply", r.PostForm.Get("text"))
		_, _ = io.WriteString(w, `{"json":{"errors":[],"data":{"things":[{"kind":"t1",`+
			`"data":{"id":"c1","permalink":"/r/freelance/comments/abc/invoices/c1/"}}]}}}`)
	})

	link, err := newTestClient(t, srv).Comment(context.Background(), "abc", "reply")
	require.NoError(t, err)
	assert.Equal(t, "https://www.reddit.com/r/freelance/comments/abc/invoices/c1/", link)
}

func TestComment_LockedThread(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/api/comment", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"json":{"errors":[["THREAD_LOCKED","comments are locked","parent"]]}}`)
	})

	_, err := newTestClient(t, srv).Comment(context.Background(), "abc", "reply")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestComments(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/comments/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("depth"))
		_ = json.NewEncoder(w).Encode([]any{
			map[string]any{"kind": "Listing", "data": map[string]any{"children": []any{
				map[string]any{"kind": "t3", "data": map[string]any{"id": "abc"}},
			}}},
			map[string]any{"kind": "Listing", "data": map[string]any{"children": []any{
				map[string]any{"kind": "t1", "data": map[string]any{
					"id": "k1", "author": "sam", "body": "same here", "score": 3,
					"permalink": "/r/freelance/comments/abc/invoices/k1/",
				}},
				map[string]any{"kind": "more", "data": map[string]any{"id": "k9"}},
			}}},
		})
	})

	comments, err := newTestClient(t, srv).Comments(context.Background(), "t3_abc", 5)
	require.NoError(t, err)

	require.Len(t, comments, 1)
	assert.Equal(t, "k1", comments[0].ID)
	assert.Equal(t, "same here", comments[0].Body)
	assert.Equal(t, "https://www.reddit.com/r/freelance/comments/abc/invoices/k1/", comments[0].PermalinkURL())
}

func TestComments_MissingThread(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/comments/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newTestClient(t, srv).Comments(context.Background(), "gone", 5)
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestReplyToComment(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/api/comment", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "t1_k1", r.PostForm.Get("thing_id"))
		_, _ = io.WriteString(w, `{"json":{"errors":[],"data":{"things":[{"kind":"t1",`+
			`"data":{"id":"r1","permalink":"/r/freelance/comments/abc/invoices/r1/"}}]}}}`)
	})

	link, err := newTestClient(t, srv).ReplyToComment(context.Background(), "k1", "try this")
	require.NoError(t, err)
	assert.Equal(t, "https://www.reddit.com/r/freelance/comments/abc/invoices/r1/", link)
}

func TestClient_RateLimited(t *testing.T) {
	f, srv := newFakeReddit(t)
	f.api("/r/x/top", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"children":[]}}`)
	})
	c := newTestClient(t, srv)
	WithRateLimit(rate.Limit(0.001), 1)(c)

	_, err := c.TopPosts(context.Background(), "x", "day", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.TopPosts(ctx, "x", "day", 1)
	assert.Error(t, err)
}
