// Package api handles incoming HTTP requests, request validation and
// response formatting. Reads go through the dispatch bus as queries; the
// engagement triggers start background tasks and answer 202 Accepted with
// the created task, whose progress is then pushed over the task websocket.
package api
