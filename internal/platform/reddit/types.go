package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SiteURL prefixes permalinks returned by the API.
const SiteURL = "https://www.reddit.com"

var (
	// ErrSubredditNotFound is returned when a subreddit does not exist or
	// cannot be accessed by the account.
	ErrSubredditNotFound = errors.New("subreddit not found")

	// ErrThreadNotFound is returned when replying to a thread that does not exist.
	ErrThreadNotFound = errors.New("thread not found")
)

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Errors     []string
	Body       string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("reddit API error (status %d): %s", e.StatusCode, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("reddit API error (status %d): %s", e.StatusCode, e.Body)
}

// Post is a submission as listed by the API.
type Post struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// PermalinkURL returns the absolute URL of the post's comment thread.
func (p Post) PermalinkURL() string {
	return SiteURL + p.Permalink
}

// Comment is a comment as listed under a thread.
type Comment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	Score     int    `json:"score"`
	Permalink string `json:"permalink"`
}

// PermalinkURL returns the absolute URL of the comment.
func (c Comment) PermalinkURL() string {
	return SiteURL + c.Permalink
}

type listingOf[T any] struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data T      `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type listing = listingOf[Post]

// jsonResponse is the envelope of api_type=json write endpoints. Errors are
// triples of [code, message, field].
type jsonResponse struct {
	JSON struct {
		Errors [][]string      `json:"errors"`
		Data   json.RawMessage `json:"data"`
	} `json:"json"`
}

type submitData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type commentData struct {
	Things []struct {
		Kind string `json:"kind"`
		Data struct {
			ID        string `json:"id"`
			Permalink string `json:"permalink"`
		} `json:"data"`
	} `json:"things"`
}
