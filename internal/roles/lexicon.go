package roles

import (
	"fmt"
	"regexp"
	"strings"
)

// FeatureRule describes one weighted signal for a role. Pattern is a regex
// fragment; the lexicon compiles it case-insensitively and anchors it at word
// boundaries, so a fragment like "ui" never matches inside "build".
type FeatureRule struct {
	Pattern string
	Weight  float64
}

// RoleDefinition describes one inferable role. Declaration order inside the
// lexicon doubles as the tie-break order when scores are equal.
type RoleDefinition struct {
	Name     string
	Features []FeatureRule
	Stages   []string
	Scope    string
}

// BoostRule adds Weight to every listed role each time Token appears in the
// tokenized tech-stack text.
type BoostRule struct {
	Token  string
	Roles  []string
	Weight float64
}

type compiledFeature struct {
	regex  *regexp.Regexp
	weight float64
}

type compiledRole struct {
	def      RoleDefinition
	features []compiledFeature
}

// Lexicon is the rule set driving role inference. It is built once at
// startup, validated, and never mutated afterwards.
type Lexicon struct {
	roles    []compiledRole
	index    map[string]*compiledRole
	boosts   map[string]BoostRule
	fallback string
}

// NewLexicon compiles and validates role definitions, boost rules and the
// fallback role name into an immutable lexicon.
func NewLexicon(defs []RoleDefinition, boosts []BoostRule, fallback string) (*Lexicon, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("lexicon requires at least one role")
	}

	lex := &Lexicon{
		roles:  make([]compiledRole, 0, len(defs)),
		index:  make(map[string]*compiledRole, len(defs)),
		boosts: make(map[string]BoostRule, len(boosts)),
	}

	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("role with empty name")
		}
		if _, exists := lex.index[name]; exists {
			return nil, fmt.Errorf("duplicate role: %s", name)
		}

		role := compiledRole{def: def, features: make([]compiledFeature, 0, len(def.Features))}
		role.def.Name = name
		for _, f := range def.Features {
			if f.Weight <= 0 {
				return nil, fmt.Errorf("role %s: feature %q has non-positive weight", name, f.Pattern)
			}
			re, err := regexp.Compile(`(?i)\b(?:` + f.Pattern + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("role %s: compile feature %q: %w", name, f.Pattern, err)
			}
			role.features = append(role.features, compiledFeature{regex: re, weight: f.Weight})
		}

		lex.roles = append(lex.roles, role)
		lex.index[name] = &lex.roles[len(lex.roles)-1]
	}

	for _, b := range boosts {
		token := strings.ToLower(strings.TrimSpace(b.Token))
		if token == "" {
			return nil, fmt.Errorf("boost rule with empty token")
		}
		if _, exists := lex.boosts[token]; exists {
			return nil, fmt.Errorf("duplicate boost token: %s", token)
		}
		if b.Weight <= 0 {
			return nil, fmt.Errorf("boost token %s has non-positive weight", token)
		}
		for _, name := range b.Roles {
			if _, ok := lex.index[name]; !ok {
				return nil, fmt.Errorf("boost token %s references unknown role %s", token, name)
			}
		}
		b.Token = token
		lex.boosts[token] = b
	}

	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = lex.roles[0].def.Name
	}
	if _, ok := lex.index[fallback]; !ok {
		return nil, fmt.Errorf("fallback role %s is not declared", fallback)
	}
	lex.fallback = fallback

	return lex, nil
}

// Roles returns role names in declaration order.
func (l *Lexicon) Roles() []string {
	names := make([]string, len(l.roles))
	for i, r := range l.roles {
		names[i] = r.def.Name
	}
	return names
}

// Role returns the definition for a role name.
func (l *Lexicon) Role(name string) (RoleDefinition, bool) {
	r, ok := l.index[name]
	if !ok {
		return RoleDefinition{}, false
	}
	return r.def, true
}

// Fallback returns the role used when no signal matched at all.
func (l *Lexicon) Fallback() string {
	return l.fallback
}

// NewScoreTable returns a table covering every role with a zero score.
func (l *Lexicon) NewScoreTable() ScoreTable {
	t := make(ScoreTable, len(l.roles))
	for _, r := range l.roles {
		t[r.def.Name] = 0
	}
	return t
}

// ScoreTable maps role name to accumulated score. Tables produced by the
// lexicon always contain every declared role.
type ScoreTable map[string]float64
