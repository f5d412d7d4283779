// Package p2p implements the node's encrypted peer transport: an
// authenticated, length-prefixed framed stream protocol spoken between
// peers once the key-exchange handshake has completed (RLPx framing,
// https://github.com/ethereum/devp2p/blob/master/rlpx.md#framing).
//
// The package does not implement the I/O event loop itself. It defines the
// contract a host loop must provide -- edge-triggered, one-shot readiness
// notifications plus coarse timers -- and leaves scheduling to the
// embedding node.
package p2p

import (
	"errors"
	"io"
	"time"
)

// Token identifies a registered connection within the host event loop.
type Token uint64

// EventSet is a bit mask of the readiness events a connection wants to be
// woken for.
type EventSet uint8

const (
	// EventReadable requests notification when the socket has data to read.
	EventReadable EventSet = 1 << iota
	// EventWritable requests notification when the socket accepts writes.
	EventWritable
	// EventHup requests notification when the peer closes the stream.
	EventHup
)

// Has reports whether every bit of flag is set in s.
func (s EventSet) Has(flag EventSet) bool { return s&flag == flag }

// ErrWouldBlock is returned by Socket reads and writes that cannot make
// progress without blocking. It is always transient: the caller backs off
// and waits for the next readiness event.
var ErrWouldBlock = errors.New("p2p: operation would block")

// Socket is a non-blocking duplex byte stream, typically a TCP connection
// switched to non-blocking mode. Read and Write never block; when no
// forward progress can be made they return an error matching ErrWouldBlock.
type Socket interface {
	io.ReadWriteCloser
}

// Timeout is an opaque handle for a timer scheduled on an EventLoop.
type Timeout uint64

// EventLoop is the scheduling contract between connections and the host
// I/O loop. Registrations are edge-triggered and one-shot: a readiness
// event fires once per state transition, and the handler must call
// Reregister before returning to receive further events. This forces every
// handler to settle the interest mask explicitly and avoids spurious
// wake-ups.
type EventLoop interface {
	// Register adds the socket to the loop under the given token with the
	// given interest set.
	Register(s Socket, tok Token, interest EventSet) error

	// Reregister updates the interest set and re-arms the one-shot
	// registration.
	Reregister(s Socket, tok Token, interest EventSet) error

	// ScheduleTimeout arms a timer that fires after d, keyed by tok. The
	// loop delivers expiry to the host handler, not to the connection.
	ScheduleTimeout(tok Token, d time.Duration) (Timeout, error)

	// ClearTimeout cancels a previously scheduled timer, reporting whether
	// it was still pending.
	ClearTimeout(t Timeout) bool
}
