// Package gemini implements generation.Generator with Google's Gemini API.
//
// The generator renders a prompt template from the source post, asks the
// model for a JSON object matching {title, content}, and retries transient
// failures with exponential backoff and jitter. Safety blocks and malformed
// responses are permanent and returned at once.
package gemini
