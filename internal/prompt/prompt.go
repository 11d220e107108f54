package prompt

import (
	"fmt"
	"strings"

	"github.com/prompt-studio-go/internal/roles"
)

// Input carries everything the prompt is rendered from. Constraints and
// OutputFormat are free text; when blank the built-in defaults are used.
type Input struct {
	Needs        string
	Stack        string
	Constraints  string
	OutputFormat string
	Inference    *roles.Inference
}

// BuildSystemPrompt renders a markdown system prompt from the inferred role
// profile. Sections with nothing to say are left out.
func BuildSystemPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("# Role\n")
	b.WriteString(fmt.Sprintf("You are a senior %s.", in.Inference.Role))
	if scope := strings.TrimSuffix(in.Inference.Scope, "."); scope != "" {
		b.WriteString(fmt.Sprintf(" Your focus: %s.", scope))
	}
	b.WriteString("\n\n")

	if needs := strings.TrimSpace(in.Needs); needs != "" {
		b.WriteString("# Objective\n")
		b.WriteString(fmt.Sprintf("The user wants to build the following:\n%s\n\n", needs))
	}

	if tokens := roles.Tokenize(in.Stack); len(tokens) > 0 {
		b.WriteString("# Tech Context\n")
		b.WriteString("The project uses this stack, prefer it over alternatives:\n")
		for _, token := range tokens {
			b.WriteString(fmt.Sprintf("- %s\n", token))
		}
		b.WriteString("\n")
	}

	if len(in.Inference.Stages) > 0 {
		b.WriteString("# Workflow\n")
		b.WriteString("Work through these stages in order, one at a time:\n")
		for i, stage := range in.Inference.Stages {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, stage))
		}
		b.WriteString("\n")
	}

	b.WriteString("# Constraints\n")
	if custom := strings.TrimSpace(in.Constraints); custom != "" {
		b.WriteString(custom)
		b.WriteString("\n\n")
	} else {
		b.WriteString("- Ask before assuming requirements that were not stated.\n")
		b.WriteString("- Recommend the simplest approach that satisfies the objective.\n")
		b.WriteString("- Point out risks and trade-offs when they matter.\n\n")
	}

	b.WriteString("# Output Format\n")
	if custom := strings.TrimSpace(in.OutputFormat); custom != "" {
		b.WriteString(custom)
		b.WriteString("\n")
	} else {
		b.WriteString("- Answer in markdown.\n")
		b.WriteString("- Keep code examples runnable and minimal.\n")
		b.WriteString("- End each stage with a short summary of decisions made.\n")
	}

	return b.String()
}
