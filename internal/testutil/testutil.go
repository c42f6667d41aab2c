// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/banshee-data/pulse.report/internal/monitoring"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// MuteLogs silences the monitoring loggers for the duration of the test.
func MuteLogs(t testing.TB) {
	t.Helper()
	saved := monitoring.CurrentLoggers()
	monitoring.SetLogger(nil)
	t.Cleanup(saved.Restore)
}

// LogCapture collects formatted output of every monitoring logger.
type LogCapture struct {
	mu    sync.Mutex
	lines []string
}

// CaptureLogs redirects the monitoring loggers into a LogCapture until the
// test ends.
func CaptureLogs(t testing.TB) *LogCapture {
	t.Helper()
	c := &LogCapture{}
	saved := monitoring.CurrentLoggers()
	monitoring.SetLogger(func(format string, v ...interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.lines = append(c.lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(saved.Restore)
	return c
}

// Lines returns a copy of the captured lines.
func (c *LogCapture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// Count returns how many captured lines contain substr.
func (c *LogCapture) Count(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

// WriteCapture writes sensor frames to a file in t.TempDir, terminating
// each with CRLF as the sensor does, and returns its path.
func WriteCapture(t testing.TB, frames ...string) string {
	t.Helper()
	var b strings.Builder
	for _, f := range frames {
		b.WriteString(f)
		b.WriteString("\r\n")
	}
	path := filepath.Join(t.TempDir(), "capture.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("failed to write capture: %v", err)
	}
	return path
}
