package roles

import (
	"math"
	"sort"
	"strings"
)

// RankedRole is one entry of the ranked score list.
type RankedRole struct {
	Role  string  `json:"role"`
	Score float64 `json:"score"`
}

// Inference is the result of a role inference run.
type Inference struct {
	Role       string       `json:"role"`
	Confidence float64      `json:"confidence"`
	Stages     []string     `json:"stages"`
	Scope      string       `json:"scope"`
	Top        []RankedRole `json:"top"`
}

// Engine combines feature scoring and tech boosts into a ranked role
// decision with a margin-based confidence.
type Engine struct {
	lex     *Lexicon
	scorer  *Scorer
	booster *Booster
}

// NewEngine creates an inference engine over the given lexicon.
func NewEngine(lex *Lexicon) *Engine {
	return &Engine{
		lex:     lex,
		scorer:  NewScorer(lex),
		booster: NewBooster(lex),
	}
}

// Lexicon returns the lexicon the engine was built with.
func (e *Engine) Lexicon() *Lexicon {
	return e.lex
}

// Infer scores the needs text joined with the stack text, adds tech boosts
// for the stack, and returns the winning role. Ties keep lexicon declaration
// order. When nothing matches at all the lexicon fallback wins with zero
// confidence.
func (e *Engine) Infer(needs, stack string) Inference {
	text := strings.TrimSpace(needs + " " + stack)
	scores := e.scorer.Score(text)
	boosts := e.booster.Boost(stack)

	total := e.lex.NewScoreTable()
	for name := range total {
		total[name] = scores[name] + boosts[name]
	}

	ranked := e.rank(total)
	top := ranked[0]
	var second float64
	if len(ranked) > 1 {
		second = ranked[1].Score
	}

	inf := Inference{Top: topN(ranked, 3)}
	if top.Score == 0 {
		inf.Role = e.lex.fallback
		inf.Confidence = 0
	} else {
		inf.Role = top.Role
		inf.Confidence = (top.Score - second) / math.Max(1, top.Score)
	}

	def, _ := e.lex.Role(inf.Role)
	inf.Stages = append([]string(nil), def.Stages...)
	inf.Scope = def.Scope
	return inf
}

// rank sorts scores descending. The input order is declaration order and the
// sort is stable, so equal scores keep it.
func (e *Engine) rank(t ScoreTable) []RankedRole {
	ranked := make([]RankedRole, 0, len(e.lex.roles))
	for _, r := range e.lex.roles {
		ranked = append(ranked, RankedRole{Role: r.def.Name, Score: t[r.def.Name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func topN(ranked []RankedRole, n int) []RankedRole {
	if len(ranked) < n {
		n = len(ranked)
	}
	return append([]RankedRole(nil), ranked[:n]...)
}
