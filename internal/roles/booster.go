package roles

import (
	"strings"
	"unicode"
)

// Booster credits roles for concrete technologies named in the tech-stack
// text. Unlike feature scoring, repeated tokens contribute cumulatively.
type Booster struct {
	lex *Lexicon
}

// NewBooster creates a booster over the given lexicon.
func NewBooster(lex *Lexicon) *Booster {
	return &Booster{lex: lex}
}

// Boost returns a table with every role's accumulated boost weight for the
// given tech-stack text. Tokens without a boost rule are ignored.
func (b *Booster) Boost(stack string) ScoreTable {
	table := b.lex.NewScoreTable()
	for _, token := range Tokenize(stack) {
		rule, ok := b.lex.boosts[token]
		if !ok {
			continue
		}
		for _, name := range rule.Roles {
			table[name] += rule.Weight
		}
	}
	return table
}

// Tokenize splits raw technology text into lowercase tokens. Letters,
// digits, '.', '+' and '-' stay inside a token, everything else separates,
// so "Node.js, C++" yields ["node.js", "c++"].
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '+' && r != '-'
	})
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = strings.ToLower(f)
	}
	return tokens
}
