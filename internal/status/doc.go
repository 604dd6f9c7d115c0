// Package status serves the connection manager's state over HTTP so another
// process (an editor panel, a health checker) can show it or drive it.
package status
