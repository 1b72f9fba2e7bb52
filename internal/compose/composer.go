// Package compose deterministically fills a tool profile's strategy skeleton
// with the normalized context and retrieved knowledge. Composition is a pure
// function: identical inputs produce byte-identical draft text, which is what
// makes the pipeline's one no-fallback stage testable.
package compose

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// excerptDocLimit bounds how many retrieved documents feed the knowledge
// section; only the single best template is quoted.
const excerptDocLimit = 3

// excerptMaxChars truncates each quoted document body.
const excerptMaxChars = 600

// Compose selects the best applicable strategy and fills its skeleton.
// Returns CompositionError only when the profile data cannot produce text
// (no applicable strategy, or a skeleton that fills to nothing).
func Compose(task types.TaskContext, project types.ProjectInfo, profile *types.ToolProfile,
	docs []types.RetrievedDocument, templates []types.RetrievedTemplate, stage types.Stage) (string, error) {

	timer := logging.StartTimer(logging.CategoryCompose, "Compose")
	defer timer.Stop()

	if profile == nil {
		return "", &types.CompositionError{Stage: stage, Err: fmt.Errorf("nil tool profile")}
	}

	strategy, err := selectStrategy(profile, task.TaskType, stage)
	if err != nil {
		return "", &types.CompositionError{ToolID: profile.ID, Stage: stage, Err: err}
	}

	skeleton := strategy.Template
	if override, ok := profile.StageTemplates[stage]; ok && override != "" {
		skeleton = override
	}

	text := fillSkeleton(skeleton, task, project, profile, docs, templates)
	if strings.TrimSpace(text) == "" {
		return "", &types.CompositionError{ToolID: profile.ID, Stage: stage, Err: fmt.Errorf("skeleton produced empty text")}
	}

	logging.ComposeDebug("Composed %d chars for tool=%s stage=%s strategy=%s",
		len(text), profile.ID, stage, strategy.Kind)
	return text, nil
}

// selectStrategy picks the highest-effectiveness strategy whose use cases
// intersect the task type, restricted to the stage. Ties keep declaration
// order. A strategy with no use cases applies to every task type. When no
// strategy matches the task type, the best stage-applicable strategy is
// used so an unusual task type still composes.
func selectStrategy(profile *types.ToolProfile, taskType string, stage types.Stage) (types.PromptingStrategy, error) {
	var best, fallback *types.PromptingStrategy
	for i := range profile.Strategies {
		s := &profile.Strategies[i]
		if !appliesToStage(s, stage) {
			continue
		}
		if fallback == nil || s.Effectiveness > fallback.Effectiveness {
			fallback = s
		}
		if !matchesTaskType(s, taskType) {
			continue
		}
		if best == nil || s.Effectiveness > best.Effectiveness {
			best = s
		}
	}
	if best != nil {
		return *best, nil
	}
	if fallback != nil {
		return *fallback, nil
	}
	return types.PromptingStrategy{}, fmt.Errorf("no strategy applicable to stage %q", stage)
}

func appliesToStage(s *types.PromptingStrategy, stage types.Stage) bool {
	if len(s.Stages) == 0 {
		return true
	}
	for _, st := range s.Stages {
		if st == stage {
			return true
		}
	}
	return false
}

func matchesTaskType(s *types.PromptingStrategy, taskType string) bool {
	if len(s.UseCases) == 0 {
		return true
	}
	for _, uc := range s.UseCases {
		if uc == taskType {
			return true
		}
	}
	return false
}

var leftoverPlaceholders = regexp.MustCompile(`\{\{[a-z_]+\}\}`)
var excessBlankLines = regexp.MustCompile(`\n{3,}`)

func fillSkeleton(skeleton string, task types.TaskContext, project types.ProjectInfo,
	profile *types.ToolProfile, docs []types.RetrievedDocument, templates []types.RetrievedTemplate) string {

	// Ordered pairs, not a map: replacement order is part of the
	// byte-identical-output contract.
	replacements := []struct{ placeholder, value string }{
		{"{{tool_name}}", profile.DisplayName},
		{"{{tone}}", profile.Tone},
		{"{{output_format}}", profile.OutputFormat},
		{"{{project_name}}", project.Name},
		{"{{description}}", project.Description},
		{"{{audience}}", project.TargetAudience},
		{"{{task_type}}", task.TaskType},
		{"{{tech_stack}}", strings.Join(project.TechStack, ", ")},

		{"{{technical_requirements}}", renderSection("Technical Requirements", task.TechnicalRequirements)},
		{"{{ui_requirements}}", renderSection("UI Requirements", task.UIRequirements)},
		{"{{constraints}}", renderSection("Constraints", task.Constraints)},
		{"{{knowledge}}", renderKnowledge(docs, templates)},
	}

	text := skeleton
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.placeholder, r.value)
	}

	// Placeholders with no mapping render as nothing rather than leaking
	// braces into the prompt.
	text = leftoverPlaceholders.ReplaceAllString(text, "")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text) + "\n"
}

// renderSection renders a headed bullet list, or nothing when empty.
func renderSection(heading string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(heading)
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}

// renderKnowledge builds the knowledge excerpt block from the top retrieved
// documents and the single best template, each attributed by title.
func renderKnowledge(docs []types.RetrievedDocument, templates []types.RetrievedTemplate) string {
	if len(docs) == 0 && len(templates) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Reference Notes\n")

	limit := len(docs)
	if limit > excerptDocLimit {
		limit = excerptDocLimit
	}
	for _, d := range docs[:limit] {
		b.WriteString("### ")
		b.WriteString(d.Document.Title)
		b.WriteString("\n")
		b.WriteString(truncate(d.Document.Content, excerptMaxChars))
		b.WriteString("\n")
	}

	if len(templates) > 0 {
		best := templates[0]
		b.WriteString("### Template: ")
		b.WriteString(best.Template.Name)
		b.WriteString("\n")
		b.WriteString(truncate(best.Template.Content, excerptMaxChars))
		b.WriteString("\n")
	}

	return b.String()
}

// truncate cuts at the last rune boundary within max bytes so a multi-byte
// character is never split.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
