package engage

import "errors"

var (
	// ErrPlatformUnavailable is returned when no platform client is configured.
	ErrPlatformUnavailable = errors.New("platform client is not configured")

	// ErrGeneratorUnavailable is returned when no content generator is configured.
	ErrGeneratorUnavailable = errors.New("content generator is not configured")

	// ErrEmptySubreddit is returned when a scrape names no subreddit.
	ErrEmptySubreddit = errors.New("subreddit name cannot be empty")
)
