package score

import (
	"fmt"
	"strings"

	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// minPromptLength is the structural floor below which a prompt cannot carry
// enough detail to be actionable.
const minPromptLength = 80

// checkPenalty is subtracted from 100 for each violated check.
const checkPenalty = 15

// actionMarkers are verbs that make a prompt actionable. At least one must
// appear for the instruction-marker check to pass.
var actionMarkers = []string{
	"build", "create", "implement", "add", "design",
	"write", "generate", "set up", "use", "ensure",
}

// Validate runs the structural checks over a prompt text. projectName and
// profile are optional: an empty name skips the echo check, a nil profile
// skips the forbidden-pattern checks.
func Validate(text, projectName string, profile *types.ToolProfile) types.ValidationResult {
	var issues []types.ValidationIssue
	var suggestions []string

	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if len(trimmed) < minPromptLength {
		issues = append(issues, types.ValidationIssue{
			Check:   "min_length",
			Message: fmt.Sprintf("prompt is %d characters, minimum is %d", len(trimmed), minPromptLength),
		})
	}

	if projectName != "" && !strings.Contains(lower, strings.ToLower(projectName)) {
		issues = append(issues, types.ValidationIssue{
			Check:   "project_name",
			Message: fmt.Sprintf("prompt never mentions the project name %q", projectName),
		})
	}

	if !containsAny(lower, actionMarkers) {
		issues = append(issues, types.ValidationIssue{
			Check:   "instruction_marker",
			Message: "prompt contains no actionable instruction verb",
		})
	}

	if profile != nil {
		for _, pitfall := range profile.CommonPitfalls {
			p := strings.ToLower(strings.TrimSpace(pitfall))
			if p == "" {
				continue
			}
			if strings.Contains(lower, p) {
				issues = append(issues, types.ValidationIssue{
					Check:   "forbidden_pattern",
					Message: fmt.Sprintf("prompt contains the known pitfall %q for %s", pitfall, profile.DisplayName),
				})
			}
		}
	}

	if !strings.Contains(trimmed, "## ") && !strings.HasPrefix(trimmed, "# ") {
		suggestions = append(suggestions, "Structure the prompt with markdown headings so the tool can parse sections")
	}
	if len(trimmed) >= minPromptLength && len(trimmed) < 300 {
		suggestions = append(suggestions, "Add more detail about requirements and constraints for better results")
	}

	result := types.ValidationResult{
		IsValid:     len(issues) == 0,
		Score:       types.ClampScore(100 - checkPenalty*len(issues)),
		Issues:      issues,
		Suggestions: suggestions,
	}
	logging.ScoreDebug("Validation score=%d issues=%d suggestions=%d", result.Score, len(issues), len(suggestions))
	return result
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
