package ws

import "sync"

// outbox is the bounded send queue of one socket. Send never blocks; a full
// queue drops the message.
type outbox struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
	done   chan struct{}
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = 64
	}
	return &outbox{ch: make(chan []byte, size), done: make(chan struct{})}
}

func (o *outbox) Send(msg []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.ch <- msg:
		return true
	default:
		return false
	}
}

// Close stops accepting messages. Frames already queued are still written.
func (o *outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.done)
}
