package serialport

import (
	"io"
	"sync"
	"time"
)

// ReplayPort feeds a recorded capture through the SerialPorter interface.
// Reads return io.EOF once the capture is exhausted and writes are discarded.
type ReplayPort struct {
	mu      sync.Mutex
	r       io.Reader
	closed  bool
	timeout time.Duration
}

// NewReplayPort wraps r. If r is an io.Closer it is closed with the port.
func NewReplayPort(r io.Reader) *ReplayPort {
	return &ReplayPort{r: r}
}

func (p *ReplayPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return p.r.Read(b)
}

func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return len(b), nil
}

// Close closes the underlying reader when it supports it.
func (p *ReplayPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if c, ok := p.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SetReadTimeout records the timeout; replayed data is always ready.
func (p *ReplayPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
	return nil
}
