package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/engage-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Reddit asks OAuth clients to stay under 60 requests per minute.
const (
	defaultRate  = rate.Limit(1)
	defaultBurst = 5
)

// Option configures a Client.
type Option func(*Client)

// WithRateLimit replaces the default client-side rate limit.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithHTTPClient sets the client used for token and API requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.base = hc
	}
}

// Client talks to the Reddit OAuth API as one account.
type Client struct {
	http    *http.Client
	base    *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a client for the account in cfg. The access token is
// fetched on the first request and refreshed when it expires.
func NewClient(cfg config.RedditConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("reddit client id, secret, username and password are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		base:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(defaultRate, defaultBurst),
		logger:  logger.With(slog.String("component", "reddit_client")),
	}
	for _, opt := range opts {
		opt(c)
	}

	// User-Agent is required by Reddit on token requests as well.
	c.base = &http.Client{
		Timeout:   c.base.Timeout,
		Transport: userAgentTransport{agent: cfg.UserAgent, next: c.base.Transport},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	src := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      ctx,
		conf:     conf,
		username: cfg.Username,
		password: cfg.Password,
	})
	c.http = oauth2.NewClient(ctx, src)
	c.http.Timeout = c.base.Timeout
	return c, nil
}

type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain reddit access token: %w", err)
	}
	return tok, nil
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return next.RoundTrip(req)
}

// TopPosts lists the top posts of subreddit for timeFilter (hour, day, week,
// month, year, all).
func (c *Client) TopPosts(ctx context.Context, subreddit, timeFilter string, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("t", timeFilter)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/r/%s/top?%s", c.baseURL, url.PathEscape(subreddit), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: r/%s", ErrSubredditNotFound, subreddit)
	case status != http.StatusOK:
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("failed to decode listing of r/%s: %w", subreddit, err)
	}
	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind == "t3" {
			posts = append(posts, child.Data)
		}
	}
	return posts, nil
}

// Submit creates a self post and returns its permalink.
func (c *Client) Submit(ctx context.Context, subreddit, title, text string) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("kind", "self")
	form.Set("sr", subreddit)
	form.Set("title", title)
	form.Set("text", text)

	raw, err := c.post(ctx, "/api/submit", form)
	if err != nil {
		if hasCode(err, "SUBREDDIT_NOEXIST", "SUBREDDIT_NOTALLOWED") {
			return "", fmt.Errorf("%w: r/%s: %v", ErrSubredditNotFound, subreddit, err)
		}
		return "", err
	}

	var data submitData
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	c.logger.InfoContext(ctx, "submitted post",
		slog.String("subreddit", subreddit),
		slog.String("post_id", data.ID))
	return data.URL, nil
}

// Comments lists up to limit top-level comments of the submission threadID
// (without the t3_ prefix), best first.
func (c *Client) Comments(ctx context.Context, threadID string, limit int) ([]Comment, error) {
	threadID = strings.TrimPrefix(threadID, "t3_")
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("depth", "1")
	q.Set("sort", "top")
	q.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/comments/%s?%s", c.baseURL, url.PathEscape(threadID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	case status != http.StatusOK:
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	// The response is [submission listing, comment listing].
	var pages []json.RawMessage
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode comments of %s: %w", threadID, err)
	}
	if len(pages) < 2 {
		return []Comment{}, nil
	}
	var l listingOf[Comment]
	if err := json.Unmarshal(pages[1], &l); err != nil {
		return nil, fmt.Errorf("failed to decode comments of %s: %w", threadID, err)
	}
	comments := make([]Comment, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind == "t1" {
			comments = append(comments, child.Data)
		}
	}
	return comments, nil
}

// Comment replies to the submission threadID (without the t3_ prefix) and
// returns the permalink of the reply.
func (c *Client) Comment(ctx context.Context, threadID, text string) (string, error) {
	return c.reply(ctx, "t3_"+strings.TrimPrefix(threadID, "t3_"), text)
}

// ReplyToComment replies to the comment commentID (without the t1_ prefix)
// and returns the permalink of the reply.
func (c *Client) ReplyToComment(ctx context.Context, commentID, text string) (string, error) {
	return c.reply(ctx, "t1_"+strings.TrimPrefix(commentID, "t1_"), text)
}

func (c *Client) reply(ctx context.Context, parent, text string) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", parent)
	form.Set("text", text)

	raw, err := c.post(ctx, "/api/comment", form)
	if err != nil {
		if hasCode(err, "DELETED_LINK", "DELETED_COMMENT", "THREAD_LOCKED", "NO_LINK") {
			return "", fmt.Errorf("%w: %s: %v", ErrThreadNotFound, parent, err)
		}
		return "", err
	}

	var data commentData
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("failed to decode comment response: %w", err)
	}
	if len(data.Things) == 0 {
		return "", fmt.Errorf("comment response for %s carries no comment", parent)
	}
	c.logger.InfoContext(ctx, "posted comment",
		slog.String("parent", parent),
		slog.String("comment_id", data.Things[0].Data.ID))
	return SiteURL + data.Things[0].Data.Permalink, nil
}

// post sends a form to an api_type=json endpoint and returns its data member.
func (c *Client) post(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	var resp jsonResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	if len(resp.JSON.Errors) > 0 {
		apiErr := &APIError{StatusCode: status, Body: string(body)}
		for _, e := range resp.JSON.Errors {
			apiErr.Errors = append(apiErr.Errors, strings.Join(e, ": "))
		}
		return nil, apiErr
	}
	return resp.JSON.Data, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, 0, fmt.Errorf("reddit rate limit wait: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("reddit request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read reddit response: %w", err)
	}
	c.logger.DebugContext(req.Context(), "reddit request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode))
	return body, resp.StatusCode, nil
}

// hasCode reports whether err is an APIError carrying one of codes.
func hasCode(err error, codes ...string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, e := range apiErr.Errors {
		for _, code := range codes {
			if strings.HasPrefix(e, code+":") || e == code {
				return true
			}
		}
	}
	return false
}
