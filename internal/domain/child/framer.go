// Package child implements the Child Process Supervisor (C1) and Line
// Framer (C2) described in spec.md sections 4.1 and 4.2: owning the
// gateway's one child process, serializing writes to its stdin, and
// turning its stdout byte stream into complete JSON-object lines.
package child

import "bytes"

// Framer converts a stream of stdout byte chunks into complete, trimmed,
// non-empty lines. It holds the trailing partial fragment across calls to
// Feed until a subsequent newline completes it, per spec.md 4.2. A Framer
// is not safe for concurrent use; the supervisor owns exactly one per
// child, fed only by its single stdout-reading goroutine.
type Framer struct {
	buf []byte
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends chunk to the internal buffer, splits on \r?\n, and returns
// every non-empty, non-whitespace-only line found, in order. Any trailing
// fragment — including an empty one — is retained for the next call.
func (f *Framer) Feed(chunk []byte) [][]byte {
	f.buf = append(f.buf, chunk...)

	var lines [][]byte
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		raw := f.buf[:idx]
		f.buf = f.buf[idx+1:]
		trimmed := bytes.TrimSpace(bytes.TrimRight(raw, "\r"))
		if len(trimmed) == 0 {
			continue
		}
		line := make([]byte, len(trimmed))
		copy(line, trimmed)
		lines = append(lines, line)
	}
	return lines
}

// Pending reports the number of buffered bytes awaiting a terminating
// newline, for tests.
func (f *Framer) Pending() int {
	return len(f.buf)
}
