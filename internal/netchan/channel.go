// Package netchan carries whole protocol messages between the two peers.
//
// Two transports are provided: raw TCP with a 4-byte big-endian length
// prefix per message, and WebSocket with one binary message per send.
// Both deliver inbound messages through a reader goroutine so a frame loop
// can poll without blocking.
package netchan

import (
	"context"
	"errors"
	"sync"
)

// MaxFrameSize bounds a single message on every transport.
const MaxFrameSize = 64 << 10

var (
	ErrTransport     = errors.New("netchan: transport error")
	ErrClosed        = errors.New("netchan: channel closed")
	ErrFrameTooLarge = errors.New("netchan: frame exceeds limit")
)

// Channel is a reliable, ordered, message-boundary-preserving link to the peer.
type Channel interface {
	// Send writes exactly one logical message.
	Send(ctx context.Context, msg []byte) error
	// Receive blocks until a whole message is available or ctx is done.
	Receive(ctx context.Context) ([]byte, error)
	// TryReceive never blocks. ok is false when nothing is buffered yet.
	TryReceive() (msg []byte, ok bool, err error)
	RemoteAddr() string
	Close() error
}

const inboxDepth = 16

// inbox decouples the blocking transport read from the consumer.
type inbox struct {
	msgs chan []byte
	done chan struct{} // closed when the reader exits
	stop chan struct{} // closed by Close

	mu  sync.Mutex
	err error

	stopOnce sync.Once
}

func newInbox() *inbox {
	return &inbox{
		msgs: make(chan []byte, inboxDepth),
		done: make(chan struct{}),
		stop: make(chan struct{}),
	}
}

// run reads until read fails or the inbox is stopped.
func (b *inbox) run(read func() ([]byte, error)) {
	defer close(b.done)
	for {
		msg, err := read()
		if err != nil {
			b.fail(err)
			return
		}
		select {
		case b.msgs <- msg:
		case <-b.stop:
			b.fail(ErrClosed)
			return
		}
	}
}

func (b *inbox) fail(err error) {
	b.mu.Lock()
	if b.err == nil {
		if b.stopped() {
			err = ErrClosed
		}
		b.err = err
	}
	b.mu.Unlock()
}

func (b *inbox) stopped() bool {
	select {
	case <-b.stop:
		return true
	default:
		return false
	}
}

func (b *inbox) readErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		return ErrClosed
	}
	return b.err
}

func (b *inbox) close() { b.stopOnce.Do(func() { close(b.stop) }) }

func (b *inbox) receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-b.msgs:
		return msg, nil
	default:
	}
	select {
	case msg := <-b.msgs:
		return msg, nil
	case <-b.done:
		// frames queued before the failure are still delivered
		select {
		case msg := <-b.msgs:
			return msg, nil
		default:
		}
		return nil, b.readErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *inbox) tryReceive() ([]byte, bool, error) {
	select {
	case msg := <-b.msgs:
		return msg, true, nil
	default:
	}
	select {
	case <-b.done:
		select {
		case msg := <-b.msgs:
			return msg, true, nil
		default:
		}
		return nil, false, b.readErr()
	default:
		return nil, false, nil
	}
}
