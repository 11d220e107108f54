package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/prompt-studio-go/internal/stream"
)

const readBufferSize = 4096

// httpSource adapts one HTTP response body into a chunk source. It watches
// completed lines for a structured done flag and translates it into
// end-of-source; the [DONE] sentinel stays a decoder concern.
type httpSource struct {
	body  io.ReadCloser
	buf   []byte
	lines stream.LineBuffer
	done  bool
}

func newHTTPSource(body io.ReadCloser) *httpSource {
	return &httpSource{
		body: body,
		buf:  make([]byte, readBufferSize),
	}
}

func (s *httpSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.done {
		return "", io.EOF
	}

	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			chunk := string(s.buf[:n])
			s.scan(chunk)
			return chunk, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			// A canceled request surfaces as a read error on the body.
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
	}
}

func (s *httpSource) Close() error {
	return s.body.Close()
}

// scan marks the source exhausted once any completed line carries done:true.
// The chunk containing it is still delivered in full.
func (s *httpSource) scan(chunk string) {
	for _, line := range s.lines.Feed(chunk) {
		if hasDoneFlag(line) {
			s.done = true
			return
		}
	}
}

func hasDoneFlag(line string) bool {
	t := strings.TrimSpace(line)
	t = strings.TrimSpace(strings.TrimPrefix(t, "data:"))
	if t == "" || t[0] != '{' {
		return false
	}

	var probe struct {
		Done bool `json:"done"`
	}
	if err := json.Unmarshal([]byte(t), &probe); err != nil {
		return false
	}
	return probe.Done
}
