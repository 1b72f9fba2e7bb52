package normalize

import (
	"errors"
	"testing"

	"promptforge/internal/types"
)

func baseIdea() types.AppIdea {
	return types.AppIdea{
		Name:        "TaskMaster Pro",
		Description: "team task manager",
		Platforms:   []string{"web"},
		DesignStyle: "minimal",
		Audience:    "small teams",
	}
}

func TestNormalizeMissingFields(t *testing.T) {
	var missing *types.MissingRequiredFieldError

	idea := baseIdea()
	idea.Name = "  "
	_, _, err := Normalize(idea, types.ValidationAnswers{}, nil)
	if !errors.As(err, &missing) || missing.Field != "project_name" {
		t.Fatalf("expected project_name error, got %v", err)
	}

	idea = baseIdea()
	idea.Description = ""
	_, _, err = Normalize(idea, types.ValidationAnswers{}, nil)
	if !errors.As(err, &missing) || missing.Field != "description" {
		t.Fatalf("expected description error, got %v", err)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	answers := types.ValidationAnswers{Complexity: "medium", Experience: "beginner"}

	task1, project1, err := Normalize(baseIdea(), answers, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	task2, project2, err := Normalize(baseIdea(), answers, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if len(task1.TechnicalRequirements) != len(task2.TechnicalRequirements) {
		t.Fatalf("technical requirements differ across identical inputs")
	}
	for i := range task1.TechnicalRequirements {
		if task1.TechnicalRequirements[i] != task2.TechnicalRequirements[i] {
			t.Fatalf("requirement order differs at %d", i)
		}
	}
	if project1.Name != project2.Name {
		t.Fatalf("project name differs")
	}
}

func TestDeriveTaskType(t *testing.T) {
	cases := []struct {
		platforms []string
		want      string
	}{
		{[]string{"web"}, "web_app"},
		{nil, "web_app"},
		{[]string{"mobile"}, "mobile_app"},
		{[]string{"desktop"}, "desktop_app"},
		{[]string{"web", "mobile"}, "cross_platform_app"},
		{[]string{"web", "desktop"}, "web_app"},
	}
	for _, tc := range cases {
		idea := baseIdea()
		idea.Platforms = tc.platforms
		task, _, err := Normalize(idea, types.ValidationAnswers{}, nil)
		if err != nil {
			t.Fatalf("Normalize(%v): %v", tc.platforms, err)
		}
		if task.TaskType != tc.want {
			t.Errorf("platforms %v → task_type %q, want %q", tc.platforms, task.TaskType, tc.want)
		}
	}
}

func TestTechnicalRequirementsUnion(t *testing.T) {
	idea := baseIdea()
	idea.Platforms = []string{"web", "mobile"}
	task, _, err := Normalize(idea, types.ValidationAnswers{Complexity: "complex", Experience: "advanced"}, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	wantSome := []string{
		platformRequirements["web"][0],
		platformRequirements["mobile"][0],
		complexityRequirements["complex"][0],
		experienceRequirements["advanced"][0],
	}
	for _, want := range wantSome {
		if !contains(task.TechnicalRequirements, want) {
			t.Errorf("missing derived requirement %q", want)
		}
	}

	// No duplicates.
	seen := make(map[string]bool)
	for _, r := range task.TechnicalRequirements {
		if seen[r] {
			t.Errorf("duplicate requirement %q", r)
		}
		seen[r] = true
	}
}

func TestUIRequirementsIncludeBaseline(t *testing.T) {
	task, _, err := Normalize(baseIdea(), types.ValidationAnswers{}, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, want := range baselineUIRequirements {
		if !contains(task.UIRequirements, want) {
			t.Errorf("missing baseline UI requirement %q", want)
		}
	}
	// Minimal style rows come first.
	if task.UIRequirements[0] != designStyleRequirements["minimal"][0] {
		t.Errorf("design style requirements should precede baseline, got %q first", task.UIRequirements[0])
	}
	// No mobile platform, no mobile UI requirements.
	for _, m := range mobileUIRequirements {
		if contains(task.UIRequirements, m) {
			t.Errorf("mobile requirement %q should not apply to web-only idea", m)
		}
	}
}

func TestWebOnlyConstraints(t *testing.T) {
	task, _, err := Normalize(baseIdea(), types.ValidationAnswers{}, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, c := range webOnlyConstraints {
		if !contains(task.Constraints, c) {
			t.Errorf("web-only idea missing constraint %q", c)
		}
	}

	idea := baseIdea()
	idea.Platforms = []string{"web", "mobile"}
	task, _, err = Normalize(idea, types.ValidationAnswers{}, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, c := range webOnlyConstraints {
		if contains(task.Constraints, c) {
			t.Errorf("multi-platform idea should not carry web-only constraint %q", c)
		}
	}
}

func TestDeriveTechStack(t *testing.T) {
	profile := &types.ToolProfile{
		ID:          "toolA",
		DisplayName: "Tool A",
		DefaultStack: []string{
			"Next.js", "React",
		},
		Strategies: []types.PromptingStrategy{{Template: "t", Effectiveness: 0.5}},
	}

	_, project, err := Normalize(baseIdea(), types.ValidationAnswers{}, profile)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	// React already present from the tool stack; only Node.js appended.
	want := []string{"Next.js", "React", "Node.js"}
	if len(project.TechStack) != len(want) {
		t.Fatalf("tech stack = %v, want %v", project.TechStack, want)
	}
	for i := range want {
		if project.TechStack[i] != want[i] {
			t.Fatalf("tech stack[%d] = %q, want %q", i, project.TechStack[i], want[i])
		}
	}
}

func TestUnknownTableValuesAreTotal(t *testing.T) {
	idea := baseIdea()
	idea.DesignStyle = "brutalist"
	idea.Platforms = []string{"hologram"}
	task, _, err := Normalize(idea, types.ValidationAnswers{Complexity: "extreme", Experience: "guru"}, nil)
	if err != nil {
		t.Fatalf("unknown table values must not error: %v", err)
	}
	// Baselines still apply even when every lookup misses.
	if len(task.UIRequirements) == 0 || len(task.Constraints) == 0 {
		t.Fatalf("baseline sets missing for unknown inputs")
	}
}
