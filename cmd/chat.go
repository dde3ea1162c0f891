package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/meysamhadeli/codai-studio/constants/lipgloss"
	"github.com/meysamhadeli/codai-studio/session"
	"github.com/meysamhadeli/codai-studio/token_management"
	"github.com/meysamhadeli/codai-studio/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ChatCmd: codai-studio chat
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the session-based AI assistant against the current workspace.",
	Long: `The 'chat' subcommand starts an interactive assistant session. Each request
runs in one of four modes: 'ask' answers questions, 'plan' writes an
implementation plan into a timestamped markdown file, 'agent' generates and
applies file changes, and 'debug' analyzes errors. Switch modes at any time
with '/mode <mode>'.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleChatCommand(rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func handleChatCommand(rootDependencies *RootDependencies) {

	// Create a context with cancel function
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go utils.GracefulShutdown(ctx, func() {
		rootDependencies.Session.ClearHistory()
		rootDependencies.TokenManagement.ClearToken()
	})

	reader := bufio.NewReader(os.Stdin)
	mode := session.ModeAsk

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	chatOptionsBox := lipgloss.BoxStyle.Render("/help  Help for chat subcommand")
	fmt.Println(chatOptionsBox)

	for {
		select {
		case <-ctx.Done():
			// Wait for GracefulShutdown to complete
			return

		default:
			fmt.Print(lipgloss.Info.Render(fmt.Sprintf("[%s] ", mode)))

			userInput, err := utils.InputPromptWithContext(ctx, reader)

			if err != nil {
				if err == context.Canceled {
					fmt.Println(lipgloss.Yellow.Render("\n🔄 Exiting..."))
					return
				}
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
				continue
			}

			if userInput == "" {
				fmt.Print("\r")
				continue
			}

			isSubcommand, exit := findChatSubCommand(userInput, rootDependencies, &mode)

			if isSubcommand {
				continue
			}

			if exit {
				return
			}

			spinnerThinking, _ := spinner.Start("AI is thinking...")

			before := len(rootDependencies.Session.Messages())
			err = rootDependencies.Orchestrator.HandleRequest(ctx, rootDependencies.Session, mode, userInput)
			spinnerThinking.Stop()
			fmt.Print("\r")

			if err != nil {
				if err == context.Canceled {
					fmt.Println(lipgloss.Yellow.Render("\n🔄 Exiting..."))
					return
				}
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
				continue
			}

			renderNewMessages(ctx, rootDependencies, before)
			displayTokens(rootDependencies)
		}
	}
}

// renderNewMessages prints every assistant message appended during the last
// orchestration with syntax highlighting.
func renderNewMessages(ctx context.Context, rootDependencies *RootDependencies, since int) {
	messages := rootDependencies.Session.Messages()
	for _, message := range messages[since:] {
		if message.Role != "assistant" {
			continue
		}

		language := utils.DetectLanguageFromCodeBlock(message.Content)
		if err := utils.RenderAndPrintMarkdownWithContext(ctx, message.Content, language, rootDependencies.Config.Theme); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error rendering markdown: %v", err)))
		}
	}
	fmt.Println()
}

// displayTokens prints the session usage box, priced from the active model's
// catalog entry when available.
func displayTokens(rootDependencies *RootDependencies) {
	active, ok := rootDependencies.Registry.Active()
	if !ok {
		return
	}

	model := "unknown"
	var inputPerMillion, outputPerMillion float64
	if len(active.Models) > 0 {
		model = active.Models[0].ID
		if active.Models[0].Pricing != nil {
			inputPerMillion = active.Models[0].Pricing.InputPerMillion
			outputPerMillion = active.Models[0].Pricing.OutputPerMillion
		}
	}

	fmt.Println(token_management.RenderTokenBox(rootDependencies.TokenManagement, model, inputPerMillion, outputPerMillion))
}

func findChatSubCommand(command string, rootDependencies *RootDependencies, mode *session.ChatMode) (bool, bool) {
	switch command {
	case "/help":
		helps := "/mode <ask|plan|agent|debug>  Switch chat mode\n/providers  List AI providers\n/use <provider>  Activate a provider\n/models  List models of the active provider\n/files  List files tracked in this session\n/token  Token information\n/clear  Clear screen\n/clear-token  Clear token from session\n/clear-history  Clear history of chat from session\n/exit  Exit from codai-studio"
		styledHelps := lipgloss.BoxStyle.Render(helps)
		fmt.Println(styledHelps)
		return true, false
	case "/providers":
		printProviders(rootDependencies)
		return true, false
	case "/models":
		models := rootDependencies.Registry.ActiveModels()
		if len(models) == 0 {
			fmt.Println(lipgloss.Yellow.Render("No active provider or no models available."))
			return true, false
		}
		for _, model := range models {
			line := fmt.Sprintf("%s (%s)", model.ID, model.Name)
			if model.Pricing != nil {
				line += fmt.Sprintf("  $%.2f/$%.2f per 1M tokens", model.Pricing.InputPerMillion, model.Pricing.OutputPerMillion)
			}
			fmt.Println(line)
		}
		return true, false
	case "/files":
		files := rootDependencies.Session.Files()
		if len(files) == 0 {
			fmt.Println(lipgloss.Yellow.Render("No files in this session yet."))
			return true, false
		}
		activeFile := rootDependencies.Session.ActiveFile()
		for path := range files {
			if path == activeFile {
				fmt.Println(lipgloss.Green.Render(path + "  (active)"))
			} else {
				fmt.Println(path)
			}
		}
		return true, false
	case "/token":
		displayTokens(rootDependencies)
		return true, false
	case "/clear":
		fmt.Print("\033[2J\033[H")
		return true, false
	case "/clear-token":
		rootDependencies.TokenManagement.ClearToken()
		return true, false
	case "/clear-history":
		rootDependencies.Session.ClearHistory()
		return true, false
	case "/exit":
		return false, true
	default:
		if strings.HasPrefix(command, "/mode ") {
			requested := session.ChatMode(strings.TrimSpace(strings.TrimPrefix(command, "/mode ")))
			for _, valid := range session.ValidModes {
				if requested == valid {
					*mode = requested
					fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Chat mode set to: %s", requested)))
					return true, false
				}
			}
			fmt.Println(lipgloss.Red.Render("Invalid mode. Use 'ask', 'plan', 'agent' or 'debug'."))
			return true, false
		}
		if strings.HasPrefix(command, "/use ") {
			name := strings.TrimSpace(strings.TrimPrefix(command, "/use "))
			if err := rootDependencies.Registry.SetActiveProvider(name); err != nil {
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
				return true, false
			}
			fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Active provider set to: %s", name)))
			return true, false
		}
		return false, false
	}
}

// printProviders lists every registered provider and its status.
func printProviders(rootDependencies *RootDependencies) {
	for _, provider := range rootDependencies.Registry.List() {
		status := " "
		if provider.Enabled {
			status = "*"
		}
		credential := ""
		if provider.Name != "ollama" && provider.ApiKey == "" {
			credential = "  (no api key)"
		}
		fmt.Printf("[%s] %s  %s%s\n", status, provider.Name, provider.BaseURL, credential)
	}
}
