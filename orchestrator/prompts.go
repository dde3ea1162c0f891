package orchestrator

import (
	"fmt"
	"strings"

	"github.com/meysamhadeli/codai-studio/embed_data"
	"github.com/meysamhadeli/codai-studio/session"
)

// buildSystemPrompt attaches the distilled project context to a mode's
// embedded prompt template.
func buildSystemPrompt(template []byte, distilledContext string) string {
	return fmt.Sprintf("%s\n\n## Project Context\n\n%s", strings.TrimSpace(string(template)), distilledContext)
}

// templateForMode returns the embedded prompt template driving a mode's
// single (or, for agent, first-stage) model call.
func templateForMode(mode session.ChatMode) []byte {
	switch mode {
	case session.ModePlan:
		return embed_data.PlanPrompt
	case session.ModeAgent:
		return embed_data.AgentAnalysisPrompt
	case session.ModeDebug:
		return embed_data.DebugPrompt
	default:
		return embed_data.AskPrompt
	}
}
