package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"promptforge/internal/types"
)

var (
	genTool       string
	genStage      string
	genName       string
	genDesc       string
	genPlatforms  []string
	genStyle      string
	genAudience   string
	genComplexity string
	genExperience string
	genIdeaFile   string
	genJSON       bool
)

// ideaFile is the on-disk shape accepted by --idea.
type ideaFile struct {
	types.AppIdea `yaml:",inline"`

	Complexity   string   `yaml:"complexity,omitempty"`
	Experience   string   `yaml:"experience,omitempty"`
	Requirements []string `yaml:"requirements,omitempty"`
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a tool-optimized prompt from an app idea",
	Long: `Runs the full composition pipeline for one app idea.

The idea can be given inline with flags or loaded from a YAML file:

  forge generate --tool cursor --name "TaskMaster Pro" \
      --description "team task manager" --platforms web --style minimal

  forge generate --tool v0 --stage feature --idea idea.yaml`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genTool, "tool", "t", "", "Target tool id (required)")
	generateCmd.Flags().StringVarP(&genStage, "stage", "s", "skeleton", "Generation stage (skeleton|feature|optimization|debugging)")
	generateCmd.Flags().StringVarP(&genName, "name", "n", "", "Project name")
	generateCmd.Flags().StringVarP(&genDesc, "description", "d", "", "Project description")
	generateCmd.Flags().StringSliceVar(&genPlatforms, "platforms", nil, "Target platforms (web,mobile,desktop)")
	generateCmd.Flags().StringVar(&genStyle, "style", "", "Design style (minimal|modern|playful|professional|bold)")
	generateCmd.Flags().StringVar(&genAudience, "audience", "", "Target audience")
	generateCmd.Flags().StringVar(&genComplexity, "complexity", "", "Project complexity (simple|medium|complex)")
	generateCmd.Flags().StringVar(&genExperience, "experience", "", "Developer experience (beginner|intermediate|advanced)")
	generateCmd.Flags().StringVar(&genIdeaFile, "idea", "", "YAML file with the app idea")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Emit the full result as JSON")
	_ = generateCmd.MarkFlagRequired("tool")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	idea, answers, err := resolveIdea()
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	prompt, err := a.engine.Generate(context.Background(), idea, answers, genTool, types.Stage(genStage))
	if err != nil {
		return err
	}

	if genJSON {
		out, err := json.MarshalIndent(prompt, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printPrompt(prompt)
	return nil
}

// resolveIdea merges the --idea file with inline flags; flags win.
func resolveIdea() (types.AppIdea, types.ValidationAnswers, error) {
	var file ideaFile
	if genIdeaFile != "" {
		data, err := os.ReadFile(genIdeaFile)
		if err != nil {
			return types.AppIdea{}, types.ValidationAnswers{}, fmt.Errorf("failed to read idea file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return types.AppIdea{}, types.ValidationAnswers{}, fmt.Errorf("failed to parse idea file: %w", err)
		}
	}

	idea := file.AppIdea
	if genName != "" {
		idea.Name = genName
	}
	if genDesc != "" {
		idea.Description = genDesc
	}
	if len(genPlatforms) > 0 {
		idea.Platforms = genPlatforms
	}
	if genStyle != "" {
		idea.DesignStyle = genStyle
	}
	if genAudience != "" {
		idea.Audience = genAudience
	}

	answers := types.ValidationAnswers{
		Complexity:   file.Complexity,
		Experience:   file.Experience,
		Requirements: file.Requirements,
	}
	if genComplexity != "" {
		answers.Complexity = genComplexity
	}
	if genExperience != "" {
		answers.Experience = genExperience
	}
	return idea, answers, nil
}

func printPrompt(prompt *types.GeneratedPrompt) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("Prompt for %s (%s stage)", prompt.ToolID, prompt.Stage)))
	fmt.Println()
	fmt.Println(promptStyle.Render(prompt.Content))
	fmt.Println()

	conf := fmt.Sprintf("%.0f%%", prompt.ConfidenceScore*100)
	fmt.Println(labelStyle.Render("Confidence: ") + confidenceStyle(prompt.ConfidenceScore).Render(conf))

	if prompt.Enhancement.Applied {
		fmt.Println(labelStyle.Render("Enhanced:   ") + successStyle.Render("yes"))
	} else {
		fmt.Println(labelStyle.Render("Enhanced:   ") + dimStyle.Render("no"))
	}

	if len(prompt.KnowledgeSources) > 0 {
		fmt.Println(labelStyle.Render("Sources:    ") + valueStyle.Render(strings.Join(prompt.KnowledgeSources, ", ")))
	}
	if prompt.NextSuggestedStage != "" {
		fmt.Println(labelStyle.Render("Next stage: ") + valueStyle.Render(string(prompt.NextSuggestedStage)))
	}

	if len(prompt.ToolOptimizations) > 0 {
		fmt.Println()
		fmt.Println(labelStyle.Render("Tool tips"))
		for _, tip := range prompt.ToolOptimizations {
			fmt.Println(dimStyle.Render("  - " + tip))
		}
	}
	if len(prompt.Suggestions) > 0 {
		fmt.Println()
		fmt.Println(labelStyle.Render("Suggestions"))
		for _, s := range prompt.Suggestions {
			fmt.Println(warnStyle.Render("  - " + s))
		}
	}
}
