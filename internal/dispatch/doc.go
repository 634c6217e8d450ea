// Package dispatch routes commands and queries to the single handler
// registered for their concrete type.
//
// Commands express intended state changes and queries are reads. Both are
// plain structs; the Go type of the value is the routing key. Handlers are
// registered once at startup with RegisterCommand and RegisterQuery, after
// which the Bus is sealed and safe for concurrent use without further
// coordination. Send and Ask call the handler synchronously on the caller's
// goroutine and return its result and error unchanged.
package dispatch
