package embed_data

import _ "embed"

//go:embed prompts/ask_prompt.tmpl
var AskPrompt []byte

//go:embed prompts/plan_prompt.tmpl
var PlanPrompt []byte

//go:embed prompts/agent_analysis_prompt.tmpl
var AgentAnalysisPrompt []byte

//go:embed prompts/agent_code_prompt.tmpl
var AgentCodePrompt []byte

//go:embed prompts/debug_prompt.tmpl
var DebugPrompt []byte
