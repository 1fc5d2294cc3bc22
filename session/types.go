// Package session implements the viewer session manager of spec §4.7:
// accepting new sinks, performing the login/spawn/position handshake, and
// resyncing viewers from the scheduler's projection on join and on seek.
package session

import "github.com/reallyoldfogie/mcreplay/payload"

// Sink is the packet sink contract of spec §6: a handle to one connected
// viewer. Errors are reported (via Manager's error handler) but never
// fatal to the session or to other viewers.
type Sink interface {
	Write(name string, p payload.Value) error
}

// ViewerSession is one connected viewer (spec §3). Sessions are created on
// login and destroyed on disconnect, error, or server close.
type ViewerSession struct {
	ID       string
	Username string
	UUID     string
	sink     Sink
}

// Write forwards to the underlying sink.
func (v *ViewerSession) Write(name string, p payload.Value) error {
	return v.sink.Write(name, p)
}
