package serialport

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// readStep is one scripted Read result.
type readStep struct {
	data []byte
	err  error
}

// TestableSerialPort implements TimeoutSerialPorter with scripted reads for
// testing. Each queued step is returned by exactly one Read call; once the
// script is drained reads return (0, nil), or io.EOF when EOFWhenDrained
// is set.
type TestableSerialPort struct {
	mu sync.Mutex

	steps []readStep

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// EOFWhenDrained makes reads past the script return io.EOF
	EOFWhenDrained bool

	// ReadError is returned by the next Read call if set
	ReadError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// CloseCalls records the number of Close calls
	CloseCalls int

	// ReadCalls records the number of Read calls
	ReadCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{WriteBuffer: bytes.NewBuffer(nil)}
}

// QueueRead schedules a read returning data. Data longer than the caller's
// buffer is split across consecutive reads.
func (t *TestableSerialPort) QueueRead(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, readStep{data: append([]byte(nil), data...)})
}

// QueueEmptyRead schedules a read that times out without data.
func (t *TestableSerialPort) QueueEmptyRead() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, readStep{data: []byte{}})
}

// QueueReadError schedules a read that fails with err.
func (t *TestableSerialPort) QueueReadError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, readStep{err: err})
}

// Read returns the next scripted step.
func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, ErrPortClosed
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if len(t.steps) == 0 {
		if t.EOFWhenDrained {
			return 0, io.EOF
		}
		return 0, nil
	}

	step := &t.steps[0]
	if step.err != nil {
		t.steps = t.steps[1:]
		return 0, step.err
	}

	n := copy(p, step.data)
	step.data = step.data[n:]
	if len(step.data) == 0 {
		t.steps = t.steps[1:]
	}
	return n, nil
}

// Write captures p in WriteBuffer.
func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, ErrPortClosed
	}
	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.CloseCalls++
	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// Remaining reports how many scripted steps have not been consumed.
func (t *TestableSerialPort) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.steps)
}

// MockFactory implements Factory for testing.
type MockFactory struct {
	mu sync.Mutex

	// Port is the port to return from Open
	Port SerialPorter

	// Error is returned by Open if set
	Error error

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path string
	Opts PortOptions
}

// NewMockFactory creates a new MockFactory.
func NewMockFactory(port SerialPorter) *MockFactory {
	return &MockFactory{Port: port}
}

// Open returns the configured port or error.
func (f *MockFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{Path: path, Opts: opts})

	if f.Error != nil {
		return nil, f.Error
	}
	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockFactory) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.OpenCalls) == 0 {
		return nil
	}
	return &f.OpenCalls[len(f.OpenCalls)-1]
}
