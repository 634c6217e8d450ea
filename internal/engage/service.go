package engage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/generation"
	"github.com/phrazzld/engage-api/internal/orchestrator"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/platform/reddit"
)

// Task names of the flows.
const (
	TaskScrape   = "scrape_subreddit"
	TaskGenerate = "generate_post"
	TaskPublish  = "publish_post"
	TaskReply    = "reply_to_comment"
)

// Platform is the social platform the flows read from and publish to.
type Platform interface {
	TopPosts(ctx context.Context, subreddit, timeFilter string, limit int) ([]reddit.Post, error)
	Submit(ctx context.Context, subreddit, title, text string) (string, error)
	Comment(ctx context.Context, threadID, text string) (string, error)
	Comments(ctx context.Context, threadID string, limit int) ([]reddit.Comment, error)
	ReplyToComment(ctx context.Context, commentID, text string) (string, error)
}

// Orchestrator starts tracked background work.
type Orchestrator interface {
	Start(ctx context.Context, job orchestrator.Job) (*domain.Task, error)
	StartTargets(ctx context.Context, agentID, taskName string, run orchestrator.TargetRun) (*domain.Task, error)
}

// Config holds the flow defaults.
type Config struct {
	// DefaultTargets are the subreddits published to when a request names none.
	DefaultTargets []string
	// TopLimit is the number of posts fetched when a scrape does not say.
	TopLimit int
	// TimeFilter is the top-posts window used when a scrape does not say.
	TimeFilter string
	// CommentLimit is the number of top-level comments fetched per scraped
	// post. Zero skips comment fetching.
	CommentLimit int
}

// ScrapeRequest asks for a subreddit's top posts to be saved for a lead.
type ScrapeRequest struct {
	AgentID    string
	LeadID     int64
	Subreddit  string
	TimeFilter string
	Limit      int
}

// Service starts the engagement flows. Platform and generator may be nil, in
// which case the flows needing them are refused.
type Service struct {
	bus       *dispatch.Bus
	orch      Orchestrator
	platform  Platform
	generator generation.Generator
	config    Config
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(
	bus *dispatch.Bus,
	orch Orchestrator,
	platform Platform,
	generator generation.Generator,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.TopLimit <= 0 {
		cfg.TopLimit = 25
	}
	if cfg.TimeFilter == "" {
		cfg.TimeFilter = "week"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		bus:       bus,
		orch:      orch,
		platform:  platform,
		generator: generator,
		config:    cfg,
		logger:    logger.With(slog.String("component", "engage_service")),
	}
}

// ScrapeSubreddit starts fetching the top posts of a subreddit and saving
// the ones the lead does not have yet.
func (s *Service) ScrapeSubreddit(ctx context.Context, req ScrapeRequest) (*domain.Task, error) {
	if s.platform == nil {
		return nil, ErrPlatformUnavailable
	}
	subreddit := strings.TrimSpace(req.Subreddit)
	if subreddit == "" {
		return nil, ErrEmptySubreddit
	}
	if req.LeadID <= 0 {
		return nil, domain.ErrEmptyPostLeadID
	}
	timeFilter := req.TimeFilter
	if timeFilter == "" {
		timeFilter = s.config.TimeFilter
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.config.TopLimit
	}

	return s.orch.Start(ctx, orchestrator.Job{
		AgentID:  req.AgentID,
		TaskName: TaskScrape,
		Work: func(ctx context.Context) (domain.ResultData, error) {
			fetched, err := s.platform.TopPosts(ctx, subreddit, timeFilter, limit)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch top posts of r/%s: %w", subreddit, err)
			}

			threads := make([]ScrapedThread, 0, len(fetched))
			commentsFetched := 0
			for _, p := range fetched {
				th := ScrapedThread{Post: &domain.Post{
					LeadID:      req.LeadID,
					Title:       p.Title,
					Content:     p.SelfText,
					Author:      p.Author,
					URL:         p.PermalinkURL(),
					Subreddit:   subreddit,
					Score:       p.Score,
					NumComments: p.NumComments,
				}}
				th.Comments = s.fetchComments(ctx, p.ID)
				commentsFetched += len(th.Comments)
				threads = append(threads, th)
			}

			saved, err := dispatch.Send[SavePostsResult](ctx, s.bus, SavePosts{Threads: threads})
			if err != nil {
				return nil, fmt.Errorf("failed to save posts: %w", err)
			}
			return domain.ResultData{
				"subreddit":        subreddit,
				"posts_fetched":    len(fetched),
				"posts_saved":      len(saved.Saved),
				"comments_fetched": commentsFetched,
				"comments_saved":   saved.CommentsSaved,
			}, nil
		},
	})
}

// fetchComments returns the top-level comments of a thread. A thread whose
// comments cannot be fetched is saved without them.
func (s *Service) fetchComments(ctx context.Context, threadID string) []*domain.Comment {
	if s.config.CommentLimit <= 0 || threadID == "" {
		return nil
	}
	fetched, err := s.platform.Comments(ctx, threadID, s.config.CommentLimit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to fetch thread comments",
			slog.String("thread_id", threadID),
			slog.String("error", err.Error()))
		return nil
	}
	comments := make([]*domain.Comment, 0, len(fetched))
	for _, c := range fetched {
		comments = append(comments, &domain.Comment{
			CommentID: c.ID,
			Author:    c.Author,
			Content:   c.Body,
			Score:     c.Score,
			Permalink: c.PermalinkURL(),
		})
	}
	return comments
}

// GeneratePost starts generating a response post from the scraped post postID.
func (s *Service) GeneratePost(ctx context.Context, agentID string, postID int64) (*domain.Task, error) {
	if s.generator == nil {
		return nil, ErrGeneratorUnavailable
	}
	post, err := dispatch.Ask[*domain.Post](ctx, s.bus, GetPost{PostID: postID})
	if err != nil {
		return nil, err
	}

	return s.orch.Start(ctx, orchestrator.Job{
		AgentID:  agentID,
		TaskName: TaskGenerate,
		Work: func(ctx context.Context) (domain.ResultData, error) {
			content, err := s.generator.Generate(ctx, generation.Source{
				Title:     post.Title,
				Content:   post.Content,
				Subreddit: post.Subreddit,
				URL:       post.URL,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to generate content for post %d: %w", post.ID, err)
			}

			if _, err := dispatch.Send[dispatch.NoResult](ctx, s.bus, SaveGeneratedContent{
				PostID:  post.ID,
				Title:   content.Title,
				Content: content.Content,
			}); err != nil {
				return nil, fmt.Errorf("failed to save generated content for post %d: %w", post.ID, err)
			}
			return domain.ResultData{
				"post_id":         post.ID,
				"generated_title": content.Title,
			}, nil
		},
	})
}

// PublishPost starts publishing the generated content of postID to targets,
// or to the configured default targets when none are given. Subreddits the
// content was already published to for the same lead are skipped.
func (s *Service) PublishPost(ctx context.Context, agentID string, postID int64, targets []string) (*domain.Task, error) {
	if s.platform == nil {
		return nil, ErrPlatformUnavailable
	}
	post, err := dispatch.Ask[*domain.Post](ctx, s.bus, GetPost{PostID: postID})
	if err != nil {
		return nil, err
	}
	if err := post.CheckPublishable(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		targets = s.config.DefaultTargets
	}

	return s.orch.StartTargets(ctx, agentID, TaskPublish, orchestrator.TargetRun{
		OwnerID:         post.LeadID,
		ContentIdentity: post.GeneratedTitle,
		Targets:         targets,
		Action:          s.publishAction(post),
	})
}

// publishAction submits the content to each target. For the subreddit the
// post was scraped from, when its source is a comment thread, it replies to
// that thread instead and falls back to a submission if the reply fails. The
// thread therefore gets at most one reply per run.
func (s *Service) publishAction(post *domain.Post) orchestrator.Action {
	return func(ctx context.Context, target string) (string, error) {
		log := logger.FromContextOrDefault(ctx, s.logger).With(
			slog.Int64("post_id", post.ID),
			slog.String("subreddit", target))

		var link string
		var err error
		if threadID := replyThread(post, target); threadID != "" {
			link, err = s.platform.Comment(ctx, threadID, post.GeneratedContent)
			if err != nil {
				log.Warn("failed to reply to source thread, submitting instead", slog.String("error", err.Error()))
			}
		}
		if link == "" {
			link, err = s.platform.Submit(ctx, target, post.GeneratedTitle, post.GeneratedContent)
		}
		if err != nil {
			if errors.Is(err, reddit.ErrSubredditNotFound) {
				return "", errors.Join(orchestrator.ErrUnresolvedTarget, err)
			}
			return "", err
		}

		if _, err := dispatch.Send[dispatch.NoResult](ctx, s.bus, MarkPostPublished{
			PostID:    post.ID,
			PostedURL: link,
		}); err != nil {
			// The post is live; the completion record still prevents a repeat.
			log.Error("failed to mark post published", slog.String("error", err.Error()))
		}
		return link, nil
	}
}

// replyThread returns the thread to reply to when publishing post to target,
// or "" when target gets a new submission.
func replyThread(post *domain.Post, target string) string {
	if !post.IsCommentThread() || !strings.EqualFold(target, post.Subreddit) {
		return ""
	}
	return post.ThreadID()
}

// ReplyToComment starts publishing content as a reply to the stored comment
// commentID. A comment is replied to at most once.
func (s *Service) ReplyToComment(ctx context.Context, agentID string, commentID int64, content string) (*domain.Task, error) {
	if s.platform == nil {
		return nil, ErrPlatformUnavailable
	}
	comment, err := dispatch.Ask[*domain.Comment](ctx, s.bus, GetComment{CommentID: commentID})
	if err != nil {
		return nil, err
	}
	if err := comment.CheckReplyable(content); err != nil {
		return nil, err
	}

	return s.orch.Start(ctx, orchestrator.Job{
		AgentID:  agentID,
		TaskName: TaskReply,
		Work: func(ctx context.Context) (domain.ResultData, error) {
			link, err := s.platform.ReplyToComment(ctx, comment.CommentID, content)
			if err != nil {
				return nil, fmt.Errorf("failed to reply to comment %d: %w", comment.ID, err)
			}
			if _, err := dispatch.Send[dispatch.NoResult](ctx, s.bus, MarkCommentReplied{
				CommentID:  comment.ID,
				Content:    content,
				RepliedURL: link,
			}); err != nil {
				logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark comment replied",
					slog.Int64("comment_id", comment.ID),
					slog.String("error", err.Error()))
			}
			return domain.ResultData{
				"comment_id": comment.ID,
				"reply_url":  link,
			}, nil
		},
	})
}
