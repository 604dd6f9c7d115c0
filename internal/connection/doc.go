// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns one WebSocket connection to the brain endpoint
//   - Tracks status (disconnected, connecting, connected)
//   - Retries abnormal closures after a fixed delay, up to a bounded attempt count
//   - Keeps a rolling log of the most recent events
//   - Emits status, error, and log events to an injected Listener
package connection
