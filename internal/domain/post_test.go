package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&Post{LeadID: 1, URL: "https://example.com/a"}).Validate())
	assert.ErrorIs(t, (&Post{URL: "https://example.com/a"}).Validate(), ErrEmptyPostLeadID)
	assert.ErrorIs(t, (&Post{LeadID: 1}).Validate(), ErrEmptyPostURL)
}

func TestPostCheckPublishable(t *testing.T) {
	t.Parallel()

	post := &Post{LeadID: 1, URL: "u"}
	assert.ErrorIs(t, post.CheckPublishable(), ErrNoGeneratedPost)

	post.GeneratedTitle = "title"
	post.GeneratedContent = "content"
	assert.ErrorIs(t, post.CheckPublishable(), ErrPostNotGenerated)

	post.AIGenerated = true
	assert.NoError(t, post.CheckPublishable())
}

func TestPostThreadID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url      string
		thread   bool
		expected string
	}{
		{"https://www.reddit.com/r/golang/comments/abc123/some_title/", true, "abc123"},
		{"https://www.reddit.com/r/golang/comments/xyz", true, "xyz"},
		{"https://example.com/blog/post", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p := &Post{URL: tt.url}
			assert.Equal(t, tt.thread, p.IsCommentThread())
			assert.Equal(t, tt.expected, p.ThreadID())
		})
	}
}
