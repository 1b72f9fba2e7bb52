package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptforge/internal/config"
	"promptforge/internal/types"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered target tools",
	RunE:  runTools,
}

var strategiesStage string

var strategiesCmd = &cobra.Command{
	Use:   "strategies [tool]",
	Short: "Show a tool's prompting strategies, best first",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategies,
}

func init() {
	strategiesCmd.Flags().StringVarP(&strategiesStage, "stage", "s", "skeleton", "Generation stage to filter by")
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Registered tools"))
	for _, id := range reg.ListTools() {
		profile, err := reg.GetProfile(id)
		if err != nil {
			return err
		}
		fmt.Printf("  %s  %s %s\n",
			labelStyle.Render(id),
			valueStyle.Render(profile.DisplayName),
			dimStyle.Render(fmt.Sprintf("(%s, %s)", profile.Category, profile.Complexity)))
	}
	return nil
}

func runStrategies(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	strategies, err := reg.StrategiesFor(args[0], types.Stage(strategiesStage))
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Strategies for %s at %s stage", args[0], strategiesStage)))
	for i, s := range strategies {
		fmt.Printf("  %d. %s %s\n", i+1,
			labelStyle.Render(string(s.Kind)),
			dimStyle.Render(fmt.Sprintf("(effectiveness %.2f)", s.Effectiveness)))
		if len(s.UseCases) > 0 {
			fmt.Println(dimStyle.Render(fmt.Sprintf("     use cases: %v", s.UseCases)))
		}
	}
	return nil
}
