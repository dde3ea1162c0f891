package contracts

// ITokenManagement accumulates token usage across one assistant session.
type ITokenManagement interface {
	UsedTokens(inputToken int, outputToken int)
	GetCurrentTokenUsage() (total int, input int, output int)
	CalculateCost(inputPerMillion float64, outputPerMillion float64) float64
	ClearToken()
}
