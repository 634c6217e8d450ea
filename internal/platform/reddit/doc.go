// Package reddit is a small client for the Reddit OAuth API: reading a
// subreddit's top posts, submitting self posts and replying to threads.
//
// Authentication uses the OAuth2 password grant of a "script" app. Every
// request waits on a client-side rate limiter before it is sent.
package reddit
