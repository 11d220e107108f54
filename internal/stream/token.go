package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// doneSentinel is the SSE end-of-stream marker.
const doneSentinel = "[DONE]"

// TokenKind classifies a decoded stream line.
type TokenKind int

const (
	// TokenNone carries nothing to append.
	TokenNone TokenKind = iota
	// TokenText carries a text fragment.
	TokenText
	// TokenDone marks the logical end of the stream.
	TokenDone
)

// Token is the decoded form of one stream line.
type Token struct {
	Kind TokenKind
	Text string
}

// DecodeLine normalizes one line from an SSE, NDJSON or plain-text stream
// into a Token. A structured done flag is not terminal here; translating it
// into end-of-source belongs to the chunk source.
func DecodeLine(line string) Token {
	s := strings.TrimSpace(line)
	if s == "" {
		return Token{Kind: TokenNone}
	}

	if strings.HasPrefix(s, "data:") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "data:"))
		if s == "" {
			// Empty payload, a keep-alive line. Nothing to append.
			return Token{Kind: TokenNone}
		}
	}

	if s == doneSentinel {
		return Token{Kind: TokenDone}
	}

	var payload any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		// Not JSON: the line itself is the fragment.
		return Token{Kind: TokenText, Text: s}
	}

	switch v := payload.(type) {
	case string:
		return Token{Kind: TokenText, Text: v}
	case map[string]any:
		if text, ok := extractText(v); ok {
			return Token{Kind: TokenText, Text: text}
		}
		return Token{Kind: TokenNone}
	default:
		return Token{Kind: TokenNone}
	}
}

// extractText checks the known payload shapes in fixed priority order:
// text, delta, message.content, response. Null fields fall through.
func extractText(payload map[string]any) (string, bool) {
	if v, ok := payload["text"]; ok && v != nil {
		return stringify(v), true
	}
	if v, ok := payload["delta"]; ok && v != nil {
		return stringify(v), true
	}
	if msg, ok := payload["message"].(map[string]any); ok {
		if v, ok := msg["content"]; ok && v != nil {
			return stringify(v), true
		}
	}
	if v, ok := payload["response"]; ok && v != nil {
		return stringify(v), true
	}
	return "", false
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
