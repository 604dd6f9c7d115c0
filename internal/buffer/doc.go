// Package buffer provides a generic fixed-capacity ring used for the
// connection manager's rolling log.
package buffer
