package ppg

// Assembler rebuilds '\n' terminated lines from arbitrarily chunked input.
// It is not safe for concurrent use.
type Assembler struct {
	buf        []byte
	max        int
	discarding bool
}

// NewAssembler returns an Assembler that holds at most maxLineBytes of a
// partial line.
func NewAssembler(maxLineBytes int) *Assembler {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Assembler{
		buf: make([]byte, 0, maxLineBytes),
		max: maxLineBytes,
	}
}

// Feed consumes chunk and returns every line it completes, without the
// terminator or a trailing '\r'. overflows counts lines that outgrew the
// buffer; such a line is dropped up to and including its terminator.
func (a *Assembler) Feed(chunk []byte) (lines []string, overflows int) {
	for _, b := range chunk {
		if b == '\n' {
			if a.discarding {
				a.discarding = false
				continue
			}
			line := a.buf
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			lines = append(lines, string(line))
			a.buf = a.buf[:0]
			continue
		}
		if a.discarding {
			continue
		}
		if len(a.buf) >= a.max {
			overflows++
			a.buf = a.buf[:0]
			a.discarding = true
			continue
		}
		a.buf = append(a.buf, b)
	}
	return lines, overflows
}

// Pending reports how many bytes of an incomplete line are buffered.
func (a *Assembler) Pending() int {
	return len(a.buf)
}

// Reset drops any partial line.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.discarding = false
}
