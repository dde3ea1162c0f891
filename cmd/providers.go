package cmd

import (
	"fmt"

	"github.com/meysamhadeli/codai-studio/constants/lipgloss"
	"github.com/spf13/cobra"
)

// ProvidersCmd: codai-studio providers
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the configured AI providers and their models.",
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}

		for _, provider := range rootDependencies.Registry.List() {
			status := " "
			if provider.Enabled {
				status = "*"
			}
			fmt.Printf("[%s] %s  %s\n", status, provider.Name, provider.BaseURL)
			for _, model := range provider.Models {
				fmt.Printf("      %s (%s)\n", model.ID, model.Name)
			}
		}
	},
}

// UseCmd: codai-studio use <provider>
var useCmd = &cobra.Command{
	Use:   "use <provider>",
	Short: "Activate one AI provider; every other provider is deactivated.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}

		if err := rootDependencies.Registry.SetActiveProvider(args[0]); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
			return
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Active provider set to: %s", args[0])))
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(useCmd)
}
