// Package sink persists filtered infrared samples.
package sink

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/banshee-data/pulse.report/internal/fsutil"
	"github.com/banshee-data/pulse.report/internal/monitoring"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("sink closed")

// Options controls how the sink file is opened and flushed.
type Options struct {
	// Truncate discards any existing content instead of appending to it.
	Truncate bool
	// Sync fsyncs the file after every record.
	Sync bool
}

// CSV writes one value per line with six decimal places. There is no
// header row. Each record goes to the file in a single write with no
// user-space buffering, so a record is either fully visible or absent.
type CSV struct {
	mu    sync.Mutex
	path  string
	file  fsutil.File
	opts  Options
	buf   []byte
	count int64
}

// OpenCSV opens path for appending, creating it if necessary.
func OpenCSV(fs fsutil.FileSystem, path string, opts Options) (*CSV, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}

	if !opts.Truncate {
		if info, err := fs.Stat(path); err == nil && info.Size() > 0 {
			monitoring.Logf("appending to %s (%d bytes already present)", path, info.Size())
		}
	}

	f, err := fs.OpenAppend(path, opts.Truncate)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink %s: %w", path, err)
	}

	return &CSV{
		path: path,
		file: f,
		opts: opts,
		buf:  make([]byte, 0, 32),
	}, nil
}

// Append writes v followed by a newline.
func (c *CSV) Append(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return ErrClosed
	}

	c.buf = strconv.AppendFloat(c.buf[:0], v, 'f', 6, 64)
	c.buf = append(c.buf, '\n')

	n, err := c.file.Write(c.buf)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	if n != len(c.buf) {
		return fmt.Errorf("short write to %s: %d of %d bytes", c.path, n, len(c.buf))
	}

	if c.opts.Sync {
		if err := c.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync %s: %w", c.path, err)
		}
	}

	c.count++
	return nil
}

// Count returns the number of records written by this sink.
func (c *CSV) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Path returns the file the sink writes to.
func (c *CSV) Path() string {
	return c.path
}

// Close syncs and closes the file. Closing twice is a no-op.
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}

	f := c.file
	c.file = nil

	return errors.Join(f.Sync(), f.Close())
}
