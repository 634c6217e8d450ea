// Package engage implements the engagement flows: scraping a subreddit's top
// posts for a lead, generating a response post from a scraped one, and
// publishing generated content to a set of subreddits.
//
// Each flow is started as a tracked background task through the
// orchestrator. Post persistence is reached through the dispatch bus.
package engage
