package stream

import (
	"regexp"
)

var lineEnd = regexp.MustCompile("\r\n|\n")

// LineBuffer reassembles complete lines from arbitrarily split transport
// chunks. Chunk boundaries carry no meaning, so a line may arrive in pieces
// and one chunk may carry many lines.
type LineBuffer struct {
	pending string
}

// Feed appends a chunk and returns every line completed by it, in order.
// The trailing unterminated fragment stays buffered for the next call. A
// "\r\n" split across two chunks still forms a single terminator.
func (b *LineBuffer) Feed(chunk string) []string {
	b.pending += chunk
	parts := lineEnd.Split(b.pending, -1)
	b.pending = parts[len(parts)-1]
	return parts[:len(parts)-1]
}

// Flush returns the buffered fragment as a final line at end-of-stream.
// It reports false when nothing is pending.
func (b *LineBuffer) Flush() (string, bool) {
	if b.pending == "" {
		return "", false
	}
	line := b.pending
	b.pending = ""
	return line, true
}

// Pending returns the buffered fragment without consuming it.
func (b *LineBuffer) Pending() string {
	return b.pending
}
