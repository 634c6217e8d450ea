// Package broadcast pushes task updates to connected live-update clients.
//
// A Hub maps a client id to the set of channels that client has open. Sends
// to one client fan out to all of its channels; a channel that fails a send
// is dropped without affecting delivery to the others. Delivery is best
// effort: nothing is buffered for clients that are not connected.
package broadcast
