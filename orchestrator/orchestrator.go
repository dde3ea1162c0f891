package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meysamhadeli/codai-studio/actions"
	"github.com/meysamhadeli/codai-studio/code_analyzer"
	"github.com/meysamhadeli/codai-studio/embed_data"
	"github.com/meysamhadeli/codai-studio/providers"
	"github.com/meysamhadeli/codai-studio/session"
	"github.com/meysamhadeli/codai-studio/workspace"
	"go.uber.org/zap"
)

// inference is the dispatcher surface the orchestrator consumes.
type inference interface {
	ChatStream(ctx context.Context, userInput string, prompt string, model string, onDelta func(accumulated string)) (string, error)
}

// Orchestrator turns one user request into a distilled-context prompt, a
// streamed model call and the mode-specific side effects. One orchestration
// per session at a time is the intended usage; concurrent calls would
// interleave mutations of the shared conversation log and file map.
type Orchestrator struct {
	Registry   *providers.Registry
	Dispatcher inference
	Distiller  *code_analyzer.ContextDistiller
	Workspace  workspace.FileSystem

	// PacingInterval spaces the line batches of plan live-writing. Zero
	// disables pacing, which tests rely on.
	PacingInterval time.Duration
	PlanBatchLines int

	Logger *zap.Logger
}

// New creates an orchestrator with default pacing.
func New(registry *providers.Registry, dispatcher inference, distiller *code_analyzer.ContextDistiller, fileSystem workspace.FileSystem, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		Registry:       registry,
		Dispatcher:     dispatcher,
		Distiller:      distiller,
		Workspace:      fileSystem,
		PacingInterval: 150 * time.Millisecond,
		PlanBatchLines: 3,
		Logger:         logger,
	}
}

// HandleRequest runs one orchestration: context gathering, prompting, the
// mode branch and result application. Only configuration problems are
// returned as errors; everything downstream degrades into conversation-log
// entries.
func (o *Orchestrator) HandleRequest(ctx context.Context, sess *session.Session, mode session.ChatMode, userInput string) error {
	if _, ok := o.Registry.Active(); !ok {
		return errors.New("no active AI provider is configured; select a provider before sending requests")
	}

	// Rejecting the mode before the append keeps the log free of orphan user
	// entries.
	switch mode {
	case session.ModeAsk, session.ModeDebug, session.ModePlan, session.ModeAgent:
	default:
		return fmt.Errorf("unknown chat mode '%s'", mode)
	}

	sess.AppendMessage("user", userInput, mode)

	o.Logger.Debug("gathering context", zap.String("mode", string(mode)))
	distilledContext := o.Distiller.BuildContext(sess.Files(), sess.ActiveFile(), true)

	switch mode {
	case session.ModeAsk, session.ModeDebug:
		return o.runSingleResponse(ctx, sess, mode, userInput, distilledContext)
	case session.ModePlan:
		return o.runPlan(ctx, sess, userInput, distilledContext)
	default:
		return o.runAgent(ctx, sess, userInput, distilledContext)
	}
}

// runSingleResponse covers ask and debug: one prompt, one response, one
// conversation append, no file mutation.
func (o *Orchestrator) runSingleResponse(ctx context.Context, sess *session.Session, mode session.ChatMode, userInput string, distilledContext string) error {
	systemPrompt := buildSystemPrompt(templateForMode(mode), distilledContext)

	response, err := o.Dispatcher.ChatStream(ctx, userInput, systemPrompt, "", nil)
	if err != nil {
		return err
	}

	sess.AppendMessage("assistant", response, mode)
	return nil
}

// runPlan creates the plan file up front so an editor can display it, then
// live-writes the generated plan into it in paced line batches. If the file
// cannot be created the plan is posted as a chat message instead.
func (o *Orchestrator) runPlan(ctx context.Context, sess *session.Session, userInput string, distilledContext string) error {
	systemPrompt := buildSystemPrompt(embed_data.PlanPrompt, distilledContext)

	planFile := fmt.Sprintf("plan-%s.md", time.Now().Format("20060102-150405"))
	header := fmt.Sprintf("# Plan\n\n_Request: %s_\n\n", userInput)

	created := false
	if o.Workspace != nil {
		if err := o.Workspace.CreateFile(planFile, header); err != nil {
			o.Logger.Warn("failed to create plan file, falling back to chat message",
				zap.String("path", planFile), zap.Error(err))
		} else {
			created = true
		}
	}

	planText, err := o.Dispatcher.ChatStream(ctx, userInput, systemPrompt, "", nil)
	if err != nil {
		return err
	}

	if !created {
		sess.AppendMessage("assistant", planText, session.ModePlan)
		return nil
	}

	// The file exists on disk under this exact name; every session update
	// below keeps that key, so the plan never forks into a second entry when
	// the streamed text contains code.
	sess.SetLiveWriting(planFile)
	defer sess.ClearLiveWriting()

	sess.UpdateFile(planFile, header)
	sess.SetActiveFile(planFile)

	if err := o.liveWrite(ctx, sess, planFile, header, planText); err != nil {
		return err
	}

	// The plan already lives in the file; only the summary goes to the log.
	sess.AppendMessage("assistant", fmt.Sprintf("Plan written to %s.", planFile), session.ModePlan)
	return nil
}

// liveWrite streams text into the target file in line batches with a pacing
// delay between batches. The pacing is decoupled from network delivery so it
// stays configurable.
func (o *Orchestrator) liveWrite(ctx context.Context, sess *session.Session, path string, header string, text string) error {
	batch := o.PlanBatchLines
	if batch <= 0 {
		batch = 3
	}

	lines := strings.Split(text, "\n")
	var written strings.Builder
	written.WriteString(header)

	for start := 0; start < len(lines); start += batch {
		end := start + batch
		if end > len(lines) {
			end = len(lines)
		}

		written.WriteString(strings.Join(lines[start:end], "\n"))
		if end < len(lines) {
			written.WriteString("\n")
		}

		content := written.String()
		sess.UpdateFile(path, content)
		if o.Workspace != nil {
			if err := o.Workspace.WriteFile(path, content); err != nil {
				o.Logger.Warn("failed to update plan file", zap.String("path", path), zap.Error(err))
			}
		}

		if o.PacingInterval > 0 && end < len(lines) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.PacingInterval):
			}
		}
	}

	return nil
}

// runAgent performs the two-stage agent call: a requirements analysis, then
// code generation instructed to emit file directives, whose results are
// applied to the workspace and merged into the session.
func (o *Orchestrator) runAgent(ctx context.Context, sess *session.Session, userInput string, distilledContext string) error {
	analysisPrompt := buildSystemPrompt(embed_data.AgentAnalysisPrompt, distilledContext)
	analysis, err := o.Dispatcher.ChatStream(ctx, userInput, analysisPrompt, "", nil)
	if err != nil {
		return err
	}

	codePrompt := fmt.Sprintf("%s\n\n## Requirements Analysis\n\n%s",
		buildSystemPrompt(embed_data.AgentCodePrompt, distilledContext), analysis)
	output, err := o.Dispatcher.ChatStream(ctx, userInput, codePrompt, "", nil)
	if err != nil {
		return err
	}

	fileActions := actions.ExtractFileActions(output)

	firstChanged := ""
	for _, action := range fileActions {
		o.applyToWorkspace(action)

		normalized := sess.SetFile(action.Path, action.Content)
		if firstChanged == "" {
			firstChanged = normalized
		}
	}

	if firstChanged != "" {
		sess.SetActiveFile(firstChanged)
	}

	sess.AppendMessage("assistant", output, session.ModeAgent)
	return nil
}

// applyToWorkspace writes one extracted action to the host file system. A
// per-file failure is logged and skipped; the batch continues.
func (o *Orchestrator) applyToWorkspace(action actions.FileAction) {
	if o.Workspace == nil {
		return
	}

	var err error
	switch action.Operation {
	case actions.OperationCreate:
		err = o.Workspace.CreateFile(action.Path, action.Content)
		if err != nil {
			// The model often marks existing files as creates.
			err = o.Workspace.WriteFile(action.Path, action.Content)
		}
	case actions.OperationModify:
		err = o.Workspace.WriteFile(action.Path, action.Content)
	}

	if err != nil {
		o.Logger.Warn("failed to apply file action",
			zap.String("path", action.Path),
			zap.String("operation", string(action.Operation)),
			zap.Error(err))
	}
}
