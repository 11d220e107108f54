package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-studio-go/internal/roles"
)

func TestBuildSystemPromptSections(t *testing.T) {
	out := BuildSystemPrompt(Input{
		Needs: "A REST API for invoices",
		Stack: "Go, Postgres",
		Inference: &roles.Inference{
			Role:   "Backend Engineer",
			Scope:  "APIs, services and data storage",
			Stages: []string{"Clarify requirements", "Design the API"},
		},
	})

	assert.Contains(t, out, "# Role\nYou are a senior Backend Engineer.")
	assert.Contains(t, out, "Your focus: APIs, services and data storage.")
	assert.Contains(t, out, "# Objective\n")
	assert.Contains(t, out, "A REST API for invoices")
	assert.Contains(t, out, "# Tech Context\n")
	assert.Contains(t, out, "- go\n")
	assert.Contains(t, out, "- postgres\n")
	assert.Contains(t, out, "# Workflow\n")
	assert.Contains(t, out, "1. Clarify requirements\n2. Design the API\n")
	assert.Contains(t, out, "# Constraints\n")
	assert.Contains(t, out, "# Output Format\n")

	// Sections appear in a fixed order.
	role := strings.Index(out, "# Role")
	objective := strings.Index(out, "# Objective")
	workflow := strings.Index(out, "# Workflow")
	require.True(t, role < objective && objective < workflow)
}

func TestBuildSystemPromptOmitsEmptySections(t *testing.T) {
	out := BuildSystemPrompt(Input{
		Inference: &roles.Inference{Role: "Backend Engineer"},
	})

	assert.Contains(t, out, "# Role\n")
	assert.NotContains(t, out, "# Objective")
	assert.NotContains(t, out, "# Tech Context")
	assert.NotContains(t, out, "# Workflow")
	assert.Contains(t, out, "# Constraints\n- Ask before assuming requirements that were not stated.\n")
	assert.Contains(t, out, "# Output Format\n- Answer in markdown.\n")
}

func TestBuildSystemPromptCustomConstraints(t *testing.T) {
	out := BuildSystemPrompt(Input{
		Constraints:  "- Never touch the billing tables.\n- Every endpoint needs pagination.",
		OutputFormat: "Respond with a single JSON object per stage.",
		Inference:    &roles.Inference{Role: "Backend Engineer"},
	})

	assert.Contains(t, out, "# Constraints\n- Never touch the billing tables.\n- Every endpoint needs pagination.\n\n")
	assert.Contains(t, out, "# Output Format\nRespond with a single JSON object per stage.\n")
	assert.NotContains(t, out, "Ask before assuming")
	assert.NotContains(t, out, "Answer in markdown")
}

func TestBuildSystemPromptBlankCustomFieldsFallBack(t *testing.T) {
	out := BuildSystemPrompt(Input{
		Constraints:  "   \n\t",
		OutputFormat: " ",
		Inference:    &roles.Inference{Role: "Backend Engineer"},
	})

	assert.Contains(t, out, "- Recommend the simplest approach that satisfies the objective.\n")
	assert.Contains(t, out, "- Keep code examples runnable and minimal.\n")
}
