package ppg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformedFrame is wrapped by ParseFrame when a line is not "red,ir".
var ErrMalformedFrame = errors.New("malformed frame")

// RawSample is one red/infrared intensity pair.
type RawSample struct {
	Red int
	IR  int
}

// MalformedPolicy decides what happens to a line ParseFrame rejects.
type MalformedPolicy int

const (
	// MalformedSkip drops the line; it never reaches the filter or the sink.
	MalformedSkip MalformedPolicy = iota
	// MalformedZero keeps whatever fields parsed and substitutes zero for
	// the rest, the way best-effort scanning of "%d,%d" behaves.
	MalformedZero
)

func (p MalformedPolicy) String() string {
	switch p {
	case MalformedSkip:
		return "skip"
	case MalformedZero:
		return "zero"
	default:
		return fmt.Sprintf("MalformedPolicy(%d)", int(p))
	}
}

// ParseMalformedPolicy maps a config string to a policy. The empty string
// selects MalformedSkip.
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return MalformedSkip, nil
	case "zero":
		return MalformedZero, nil
	default:
		return 0, fmt.Errorf("unknown malformed policy %q: expected skip or zero", s)
	}
}

func isPadding(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

// ParseFrame parses a single "red,ir" line. Whitespace and control
// characters around the line and around each field are ignored. On failure
// the returned sample holds what a best-effort "%d,%d" scan would have read:
// the leading integer of each field up to the first field that has none,
// with zero for the rest.
func ParseFrame(line string) (RawSample, error) {
	s, err := parseStrict(line)
	if err != nil {
		return scanFrame(line), err
	}
	return s, nil
}

func parseStrict(line string) (RawSample, error) {
	var s RawSample
	fields := strings.Split(strings.TrimFunc(line, isPadding), ",")

	red, err := parseField(fields[0])
	if err != nil {
		return s, fmt.Errorf("%w: red field: %v", ErrMalformedFrame, err)
	}
	s.Red = red

	if len(fields) < 2 {
		return s, fmt.Errorf("%w: missing ir field in %q", ErrMalformedFrame, line)
	}
	ir, err := parseField(fields[1])
	if err != nil {
		return s, fmt.Errorf("%w: ir field: %v", ErrMalformedFrame, err)
	}
	s.IR = ir

	if len(fields) > 2 {
		return s, fmt.Errorf("%w: expected 2 fields, got %d", ErrMalformedFrame, len(fields))
	}
	return s, nil
}

// scanFrame reads "red,ir" leniently: each field is the longest signed
// integer prefix after padding, and trailing junk after the ir digits is
// ignored.
func scanFrame(line string) RawSample {
	var s RawSample
	red, rest, ok := scanInt(line)
	if !ok {
		return s
	}
	s.Red = red

	rest = strings.TrimLeftFunc(rest, isPadding)
	if !strings.HasPrefix(rest, ",") {
		return s
	}
	if ir, _, ok := scanInt(rest[1:]); ok {
		s.IR = ir
	}
	return s
}

// scanInt parses the signed decimal prefix of s after leading padding and
// returns the remainder.
func scanInt(s string) (int, string, bool) {
	s = strings.TrimLeftFunc(s, isPadding)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, s, false
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, s, false
	}
	return int(v), s[end:], true
}

func parseField(f string) (int, error) {
	f = strings.TrimFunc(f, isPadding)
	if f == "" {
		return 0, errors.New("empty")
	}
	v, err := strconv.ParseInt(f, 10, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
