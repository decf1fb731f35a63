// Package pipe provides an in-process channel pair for tests, examples,
// and embedded surfaces that live in the same process as the host.
package pipe

import (
	"fmt"
	"sync"
)

// Pipe is one end of an in-memory channel pair. Delivery is synchronous
// and strictly ordered: Send invokes the peer's handler before returning,
// or buffers the message if the peer has no handler yet.
type Pipe struct {
	mu      sync.Mutex
	peer    *Pipe
	handler func(string)
	pending []string
	closed  bool
}

// NewPair creates two connected pipe ends.
func NewPair() (*Pipe, *Pipe) {
	a := &Pipe{}
	b := &Pipe{}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *Pipe) Send(msg string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("pipe is closed")
	}
	peer := p.peer
	p.mu.Unlock()
	peer.deliver(msg)
	return nil
}

func (p *Pipe) deliver(msg string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.handler == nil {
		p.pending = append(p.pending, msg)
		p.mu.Unlock()
		return
	}
	handler := p.handler
	p.mu.Unlock()
	handler(msg)
}

func (p *Pipe) OnMessage(handler func(msg string)) {
	p.mu.Lock()
	p.handler = handler
	buffered := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, msg := range buffered {
		handler(msg)
	}
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.handler = nil
	p.pending = nil
	return nil
}
