// Package normalize maps the loosely-typed upstream app idea and wizard
// answers into the two canonical records consumed by the composer. The
// derivation rules are deterministic and total: every valid input produces a
// value, and only a missing project name or description is an error.
package normalize

import (
	"strings"

	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// Normalize derives (TaskContext, ProjectInfo) from the raw inputs and the
// resolved tool profile. The profile is only consulted for its default tech
// stack; all requirement derivation is input-driven.
func Normalize(idea types.AppIdea, answers types.ValidationAnswers, profile *types.ToolProfile) (types.TaskContext, types.ProjectInfo, error) {
	timer := logging.StartTimer(logging.CategoryNormalize, "Normalize")
	defer timer.Stop()

	var task types.TaskContext
	var project types.ProjectInfo

	name := strings.TrimSpace(idea.Name)
	description := strings.TrimSpace(idea.Description)
	if name == "" {
		return task, project, &types.MissingRequiredFieldError{Field: "project_name"}
	}
	if description == "" {
		return task, project, &types.MissingRequiredFieldError{Field: "description"}
	}

	platforms := normalizePlatforms(idea.Platforms)
	complexity := lowerOrDefault(answers.Complexity, "medium")
	experience := lowerOrDefault(answers.Experience, "intermediate")

	task = types.TaskContext{
		TaskType:              deriveTaskType(platforms),
		ProjectName:           name,
		Description:           description,
		TechnicalRequirements: deriveTechnicalRequirements(platforms, complexity, experience),
		UIRequirements:        deriveUIRequirements(idea.DesignStyle, platforms),
		Constraints:           deriveConstraints(platforms, complexity, experience),
	}

	project = types.ProjectInfo{
		Name:           name,
		Description:    description,
		TechStack:      deriveTechStack(profile, platforms),
		TargetAudience: strings.TrimSpace(idea.Audience),
		Requirements:   append([]string(nil), answers.Requirements...),
	}

	logging.NormalizeDebug("Normalized %q: task_type=%s, %d tech reqs, %d ui reqs, %d constraints",
		name, task.TaskType, len(task.TechnicalRequirements), len(task.UIRequirements), len(task.Constraints))

	return task, project, nil
}

// normalizePlatforms lowercases and deduplicates, defaulting to web.
func normalizePlatforms(platforms []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		out = []string{"web"}
	}
	return out
}

func deriveTaskType(platforms []string) string {
	hasWeb := contains(platforms, "web")
	hasMobile := contains(platforms, "mobile")
	hasDesktop := contains(platforms, "desktop")

	switch {
	case hasMobile && (hasWeb || hasDesktop):
		return "cross_platform_app"
	case hasMobile:
		return "mobile_app"
	case hasDesktop && !hasWeb:
		return "desktop_app"
	default:
		return "web_app"
	}
}

// deriveTechnicalRequirements unions the platform, complexity, and
// experience requirement sets, preserving first-seen order.
func deriveTechnicalRequirements(platforms []string, complexity, experience string) []string {
	var union []string
	for _, p := range platforms {
		union = appendUnique(union, platformRequirements[p]...)
	}
	union = appendUnique(union, complexityRequirements[complexity]...)
	union = appendUnique(union, experienceRequirements[experience]...)
	return union
}

func deriveUIRequirements(designStyle string, platforms []string) []string {
	var union []string
	union = appendUnique(union, designStyleRequirements[strings.ToLower(strings.TrimSpace(designStyle))]...)
	if contains(platforms, "mobile") {
		union = appendUnique(union, mobileUIRequirements...)
	}
	union = appendUnique(union, baselineUIRequirements...)
	return union
}

func deriveConstraints(platforms []string, complexity, experience string) []string {
	var union []string
	if len(platforms) == 1 && platforms[0] == "web" {
		union = appendUnique(union, webOnlyConstraints...)
	}
	union = appendUnique(union, experienceConstraints[experience]...)
	union = appendUnique(union, complexityConstraints[complexity]...)
	union = appendUnique(union, baselineConstraints...)
	return union
}

// deriveTechStack starts from the tool's default stack and appends the
// generic web fallbacks when targeting web and not already covered.
func deriveTechStack(profile *types.ToolProfile, platforms []string) []string {
	var stack []string
	if profile != nil {
		stack = appendUnique(stack, profile.DefaultStack...)
	}
	if contains(platforms, "web") {
		stack = appendUnique(stack, webFallbackStack...)
	}
	return stack
}

func lowerOrDefault(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, existing := range dst {
			if existing == item {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, item)
		}
	}
	return dst
}
