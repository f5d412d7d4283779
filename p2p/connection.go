package p2p

import (
	"errors"
	"fmt"

	"github.com/remyroy/parity/log"
)

// Connection is the low level non-blocking byte pipe underneath a framed
// transport. It owns a receive buffer sized to the caller's declared
// expectation, a FIFO of outbound byte blocks of which the front one may be
// partially written, and the interest mask used for event loop
// registration.
type Connection struct {
	token   Token
	socket  Socket
	recBuf  []byte
	recSize int

	sendQueue [][]byte
	sendPos   int // bytes of the front block already written

	interest EventSet
	logger   *log.Logger
}

// WriteStatus reports the progress of the front send block after a
// writable event.
type WriteStatus int

const (
	// Ongoing means part of the current block is still queued.
	Ongoing WriteStatus = iota
	// Complete means the current block was fully flushed.
	Complete
)

// NewConnection creates a connection around an established non-blocking
// socket, identified by the given event loop token.
func NewConnection(tok Token, s Socket) *Connection {
	return &Connection{
		token:    tok,
		socket:   s,
		interest: EventHup,
		logger:   log.Default().Module("net").With("token", uint64(tok)),
	}
}

// Token returns the event loop registration key of this connection.
func (c *Connection) Token() Token { return c.token }

// Expect puts the connection into read mode: the next size bytes arriving
// on the socket form one logical receive unit, returned whole by Readable.
// Any previous receive buffer content is discarded.
func (c *Connection) Expect(size int) {
	if c.recSize != len(c.recBuf) {
		c.logger.Warn("unexpected connection read start")
	}
	c.recBuf = make([]byte, 0, size)
	c.recSize = size
}

// Readable drains the socket for the current receive cycle, reading at most
// the bytes still missing from the expected unit. It returns the full unit
// once all expected bytes have arrived, and nil until then. A would-block
// condition is not an error; any other socket error, including EOF, is
// fatal to the connection.
func (c *Connection) Readable() ([]byte, error) {
	if c.recSize == 0 || len(c.recBuf) >= c.recSize {
		c.logger.Warn("unexpected connection read")
	}
	for len(c.recBuf) < c.recSize {
		n, err := c.socket.Read(c.recBuf[len(c.recBuf):c.recSize])
		if n > 0 {
			c.recBuf = c.recBuf[:len(c.recBuf)+n]
			ingressTrafficMeter.Mark(int64(n))
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				break
			}
			return nil, fmt.Errorf("p2p: socket read: %w", err)
		}
		if n == 0 {
			break
		}
	}
	if c.recSize > 0 && len(c.recBuf) == c.recSize {
		buf := c.recBuf
		c.recBuf = nil
		c.recSize = 0
		return buf, nil
	}
	return nil, nil
}

// Send queues a block of bytes for transmission. Empty blocks are ignored.
// Queuing data raises writable interest; the caller must Reregister for
// the event to be delivered.
func (c *Connection) Send(data []byte) {
	if len(data) > 0 {
		c.sendQueue = append(c.sendQueue, data)
	}
	if len(c.sendQueue) > 0 {
		c.interest |= EventWritable
	}
	sendQueueGauge.Set(int64(len(c.sendQueue)))
}

// Writable flushes the front of the send queue, writing as many bytes as
// the socket accepts. It returns Complete when the front block was fully
// flushed during this call (or the queue was empty) and Ongoing otherwise.
// Writable interest remains raised iff blocks are still queued afterwards.
func (c *Connection) Writable() (WriteStatus, error) {
	status := Complete
	if len(c.sendQueue) > 0 {
		front := c.sendQueue[0]
		for c.sendPos < len(front) {
			n, err := c.socket.Write(front[c.sendPos:])
			if n > 0 {
				c.sendPos += n
				egressTrafficMeter.Mark(int64(n))
			}
			if err != nil {
				if errors.Is(err, ErrWouldBlock) {
					break
				}
				return Ongoing, fmt.Errorf("p2p: socket write: %w", err)
			}
			if n == 0 {
				break
			}
		}
		if c.sendPos >= len(front) {
			c.sendQueue = c.sendQueue[1:]
			c.sendPos = 0
		} else {
			status = Ongoing
		}
	}
	if len(c.sendQueue) == 0 {
		c.interest &^= EventWritable
	} else {
		c.interest |= EventWritable
	}
	sendQueueGauge.Set(int64(len(c.sendQueue)))
	return status, nil
}

// Register adds the connection to the event loop. Readable interest is
// raised here and kept for the lifetime of the connection: a registered
// connection is always inside a receive cycle.
func (c *Connection) Register(loop EventLoop) error {
	c.logger.Debug("connection register")
	c.interest |= EventReadable
	if err := loop.Register(c.socket, c.token, c.interest); err != nil {
		c.logger.Error("connection register failed", "err", err)
		return err
	}
	return nil
}

// Reregister re-arms the one-shot registration with the current interest
// mask. Event handlers call this last, once readable/writable processing
// has settled the mask.
func (c *Connection) Reregister(loop EventLoop) error {
	c.logger.Debug("connection reregister")
	if err := loop.Reregister(c.socket, c.token, c.interest); err != nil {
		c.logger.Error("connection reregister failed", "err", err)
		return err
	}
	return nil
}
