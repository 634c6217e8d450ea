package domain

import (
	"errors"
	"strings"
	"time"
)

// Validation errors for Comment
var (
	ErrEmptyCommentPostID = errors.New("comment post ID cannot be empty")
	ErrEmptyCommentID     = errors.New("comment platform ID cannot be empty")
	ErrEmptyReply         = errors.New("reply content cannot be empty")
	ErrCommentReplied     = errors.New("comment has already been replied to")
)

// Comment is a top-level comment of a scraped post's thread, optionally
// carrying the reply that was published to it.
type Comment struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"post_id"`
	CommentID    string    `json:"comment_id"`
	Author       string    `json:"author"`
	Content      string    `json:"content"`
	Score        int       `json:"score"`
	Permalink    string    `json:"permalink"`
	ReplyContent string    `json:"reply_content,omitempty"`
	IsReplied    bool      `json:"is_replied"`
	RepliedURL   string    `json:"replied_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist a scraped comment.
func (c *Comment) Validate() error {
	if c.PostID <= 0 {
		return ErrEmptyCommentPostID
	}
	if strings.TrimSpace(c.CommentID) == "" {
		return ErrEmptyCommentID
	}
	return nil
}

// CheckReplyable returns an error when content cannot be posted as a reply
// to the comment.
func (c *Comment) CheckReplyable(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyReply
	}
	if c.IsReplied {
		return ErrCommentReplied
	}
	return nil
}
