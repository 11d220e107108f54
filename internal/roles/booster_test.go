package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "keeps dots plus and hyphen",
			input: "Node.js, C++ & scikit-learn",
			want:  []string{"node.js", "c++", "scikit-learn"},
		},
		{
			name:  "splits on separators",
			input: "react/k8s;terraform  docker",
			want:  []string{"react", "k8s", "terraform", "docker"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
		{
			name:  "only separators",
			input: " ,, / ;; ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestBoosterRepeatsAccumulate(t *testing.T) {
	booster := NewBooster(testLexicon(t))

	table := booster.Boost("react react k8s")
	assert.InDelta(t, 1.0, table["Client"], 1e-9)
	assert.InDelta(t, 1.0, table["Infra"], 1e-9)
	assert.Zero(t, table["Server"])
}

func TestBoosterIgnoresUnknownTokens(t *testing.T) {
	lex := testLexicon(t)
	table := NewBooster(lex).Boost("cobol fortran basic")

	for _, name := range lex.Roles() {
		assert.Zero(t, table[name])
	}
}

func TestBoosterCreditsEveryListedRole(t *testing.T) {
	booster := NewBooster(testLexicon(t))

	table := booster.Boost("ts")
	assert.InDelta(t, 0.5, table["Server"], 1e-9)
	assert.InDelta(t, 0.5, table["Client"], 1e-9)
}
