package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"promptforge/internal/score"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Run structural validation checks over a prompt text",
	Long: `Checks a prompt for structural problems: minimum length, presence of
actionable instructions, and markdown structure. Reads from the given file,
or from stdin when no file is supplied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	result := score.Validate(string(data), "", nil)

	if result.IsValid {
		fmt.Println(successStyle.Render(fmt.Sprintf("Valid (score %d/100)", result.Score)))
	} else {
		fmt.Println(errorStyle.Render(fmt.Sprintf("Invalid (score %d/100)", result.Score)))
	}

	for _, issue := range result.Issues {
		fmt.Println(errorStyle.Render("  ✗ ") + valueStyle.Render(issue.Message) + dimStyle.Render(" ["+issue.Check+"]"))
	}
	for _, suggestion := range result.Suggestions {
		fmt.Println(warnStyle.Render("  - ") + valueStyle.Render(suggestion))
	}

	if !result.IsValid {
		return fmt.Errorf("validation failed with %d issue(s)", len(result.Issues))
	}
	return nil
}
