package token_management

import (
	"fmt"
	"sync"

	"github.com/meysamhadeli/codai-studio/constants/lipgloss"
	"github.com/meysamhadeli/codai-studio/token_management/contracts"
)

// tokenManager implementation
type tokenManager struct {
	mu              sync.Mutex
	usedToken       int
	usedInputToken  int
	usedOutputToken int
}

// NewTokenManager creates a new token manager
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// UsedTokens accumulates the token count for the session.
func (tm *tokenManager) UsedTokens(inputToken int, outputToken int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedInputToken += inputToken
	tm.usedOutputToken += outputToken
	tm.usedToken += inputToken + outputToken
}

func (tm *tokenManager) GetCurrentTokenUsage() (total int, input int, output int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.usedToken, tm.usedInputToken, tm.usedOutputToken
}

// CalculateCost converts the session's accumulated usage into dollars using
// per-million-token pricing from the active model's catalog entry.
func (tm *tokenManager) CalculateCost(inputPerMillion float64, outputPerMillion float64) float64 {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	inputCost := float64(tm.usedInputToken) * inputPerMillion / 1000000.0
	outputCost := float64(tm.usedOutputToken) * outputPerMillion / 1000000.0
	return inputCost + outputCost
}

func (tm *tokenManager) ClearToken() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedToken = 0
	tm.usedInputToken = 0
	tm.usedOutputToken = 0
}

// RenderTokenBox formats the session usage for terminal display.
func RenderTokenBox(tm contracts.ITokenManagement, model string, inputPerMillion float64, outputPerMillion float64) string {
	total, _, _ := tm.GetCurrentTokenUsage()
	cost := tm.CalculateCost(inputPerMillion, outputPerMillion)
	tokenInfo := fmt.Sprintf("Token Used: %d - Cost: %.6f $ - Chat Model: %s", total, cost, model)
	return lipgloss.BoxStyle.Render(tokenInfo)
}
