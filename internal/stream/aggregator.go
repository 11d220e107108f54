package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prompt-studio-go/internal/models"
)

// ChunkSource yields raw transport chunks for one response stream.
type ChunkSource interface {
	// Next returns the next raw chunk, io.EOF once the source is exhausted,
	// or the context's error when the context is done.
	Next(ctx context.Context) (string, error)
	Close() error
}

// NotifyFunc observes the target message after every appended fragment.
type NotifyFunc func(msg *models.Message, fragment string)

// Aggregator drives one chunk source through line reassembly and token
// decoding, appending every text fragment to a single target message in
// arrival order.
type Aggregator struct {
	src    ChunkSource
	msg    *models.Message
	notify NotifyFunc
	buf    LineBuffer
}

// NewAggregator creates an aggregator writing into msg. notify may be nil.
func NewAggregator(src ChunkSource, msg *models.Message, notify NotifyFunc) *Aggregator {
	return &Aggregator{src: src, msg: msg, notify: notify}
}

// Run consumes the source until it is exhausted, the stream signals
// completion, the context is canceled, or the transport fails. Content
// appended before any of those outcomes stays intact. Cancellation is
// checked before every read; lines of a chunk already in hand may still
// complete, but nothing read afterwards is appended.
func (a *Aggregator) Run(ctx context.Context) error {
	defer a.src.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := a.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// The trailing fragment still counts as a final line.
				if line, ok := a.buf.Flush(); ok {
					a.applyLine(line)
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream chunk: %w", err)
		}

		for _, line := range a.buf.Feed(chunk) {
			if done := a.applyLine(line); done {
				return nil
			}
		}
	}
}

// applyLine decodes one line and appends its fragment. It reports true when
// the line terminates the stream; buffered leftovers are dropped then.
func (a *Aggregator) applyLine(line string) bool {
	token := DecodeLine(line)
	switch token.Kind {
	case TokenText:
		a.msg.Content += token.Text
		if a.notify != nil {
			a.notify(a.msg, token.Text)
		}
	case TokenDone:
		return true
	}
	return false
}
