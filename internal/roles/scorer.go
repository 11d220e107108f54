package roles

// Scorer matches lexicon features against free text. It is a pure function
// of its input and the lexicon it was built with.
type Scorer struct {
	lex *Lexicon
}

// NewScorer creates a scorer over the given lexicon.
func NewScorer(lex *Lexicon) *Scorer {
	return &Scorer{lex: lex}
}

// Score returns a table with every role's accumulated feature weight. A
// feature contributes its weight exactly once no matter how often its
// pattern occurs in the text.
func (s *Scorer) Score(text string) ScoreTable {
	table := s.lex.NewScoreTable()
	if text == "" {
		return table
	}
	for _, role := range s.lex.roles {
		for _, f := range role.features {
			if f.regex.MatchString(text) {
				table[role.def.Name] += f.weight
			}
		}
	}
	return table
}
