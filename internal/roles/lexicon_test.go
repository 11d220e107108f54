package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLexicon(t *testing.T) *Lexicon {
	t.Helper()
	lex, err := NewLexicon(
		[]RoleDefinition{
			{
				Name: "Server",
				Features: []FeatureRule{
					{Pattern: `apis?`, Weight: 2},
					{Pattern: `database`, Weight: 1},
				},
				Stages: []string{"design", "build"},
				Scope:  "server work",
			},
			{
				Name: "Client",
				Features: []FeatureRule{
					{Pattern: `ui`, Weight: 2},
					{Pattern: `react`, Weight: 1},
				},
				Stages: []string{"sketch", "build"},
				Scope:  "client work",
			},
			{
				Name: "Infra",
				Features: []FeatureRule{
					{Pattern: `deploy`, Weight: 2},
				},
				Stages: []string{"provision", "automate"},
				Scope:  "infra work",
			},
		},
		[]BoostRule{
			{Token: "react", Roles: []string{"Client"}, Weight: 0.5},
			{Token: "k8s", Roles: []string{"Infra"}, Weight: 1},
			{Token: "node.js", Roles: []string{"Server"}, Weight: 0.5},
			{Token: "ts", Roles: []string{"Server", "Client"}, Weight: 0.5},
		},
		"Server",
	)
	require.NoError(t, err)
	return lex
}

func TestNewLexiconValidation(t *testing.T) {
	valid := []RoleDefinition{
		{Name: "Server", Features: []FeatureRule{{Pattern: `apis?`, Weight: 1}}},
	}

	tests := []struct {
		name     string
		defs     []RoleDefinition
		boosts   []BoostRule
		fallback string
		wantErr  string
	}{
		{
			name:    "no roles",
			defs:    nil,
			wantErr: "at least one role",
		},
		{
			name: "duplicate role name",
			defs: []RoleDefinition{
				{Name: "Server"},
				{Name: "Server"},
			},
			wantErr: "duplicate role",
		},
		{
			name: "non-positive feature weight",
			defs: []RoleDefinition{
				{Name: "Server", Features: []FeatureRule{{Pattern: `api`, Weight: 0}}},
			},
			wantErr: "non-positive weight",
		},
		{
			name: "invalid feature pattern",
			defs: []RoleDefinition{
				{Name: "Server", Features: []FeatureRule{{Pattern: `[unclosed`, Weight: 1}}},
			},
			wantErr: "compile feature",
		},
		{
			name:    "boost references unknown role",
			defs:    valid,
			boosts:  []BoostRule{{Token: "go", Roles: []string{"Nope"}, Weight: 1}},
			wantErr: "unknown role",
		},
		{
			name: "duplicate boost token",
			defs: valid,
			boosts: []BoostRule{
				{Token: "go", Roles: []string{"Server"}, Weight: 1},
				{Token: "GO", Roles: []string{"Server"}, Weight: 1},
			},
			wantErr: "duplicate boost token",
		},
		{
			name:    "non-positive boost weight",
			defs:    valid,
			boosts:  []BoostRule{{Token: "go", Roles: []string{"Server"}, Weight: -1}},
			wantErr: "non-positive weight",
		},
		{
			name:     "unknown fallback",
			defs:     valid,
			fallback: "Nope",
			wantErr:  "fallback role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexicon(tt.defs, tt.boosts, tt.fallback)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLexiconAccessors(t *testing.T) {
	lex := testLexicon(t)

	assert.Equal(t, []string{"Server", "Client", "Infra"}, lex.Roles())
	assert.Equal(t, "Server", lex.Fallback())

	def, ok := lex.Role("Client")
	require.True(t, ok)
	assert.Equal(t, "client work", def.Scope)

	_, ok = lex.Role("Nope")
	assert.False(t, ok)

	table := lex.NewScoreTable()
	require.Len(t, table, 3)
	for _, name := range lex.Roles() {
		assert.Zero(t, table[name])
	}
}

func TestLexiconEmptyFallbackUsesFirstRole(t *testing.T) {
	lex, err := NewLexicon([]RoleDefinition{{Name: "Only"}}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Only", lex.Fallback())
}

func TestLexiconBoostTokensLowercased(t *testing.T) {
	lex, err := NewLexicon(
		[]RoleDefinition{{Name: "Server"}},
		[]BoostRule{{Token: "React", Roles: []string{"Server"}, Weight: 1}},
		"",
	)
	require.NoError(t, err)

	table := NewBooster(lex).Boost("REACT react")
	assert.InDelta(t, 2, table["Server"], 1e-9)
}
