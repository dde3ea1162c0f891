package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meysamhadeli/codai-studio/code_analyzer"
	"github.com/meysamhadeli/codai-studio/config"
	"github.com/meysamhadeli/codai-studio/constants/lipgloss"
	"github.com/meysamhadeli/codai-studio/orchestrator"
	"github.com/meysamhadeli/codai-studio/providers"
	"github.com/meysamhadeli/codai-studio/session"
	"github.com/meysamhadeli/codai-studio/token_management"
	contracts2 "github.com/meysamhadeli/codai-studio/token_management/contracts"
	"github.com/meysamhadeli/codai-studio/workspace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RootDependencies wires the components one assistant session needs.
type RootDependencies struct {
	Config          *config.Config
	Logger          *zap.Logger
	Registry        *providers.Registry
	TokenManagement contracts2.ITokenManagement
	Workspace       *workspace.LocalFileSystem
	Distiller       *code_analyzer.ContextDistiller
	Dispatcher      *providers.Dispatcher
	Orchestrator    *orchestrator.Orchestrator
	Session         *session.Session
	Cwd             string
}

var rootCmd = &cobra.Command{
	Use:   "codai-studio",
	Short: "Session-based AI coding assistant with pluggable providers.",
	Long: `codai-studio runs an AI coding assistant session against your workspace.
It distills your project into a rich context document, streams requests to the
active AI provider (local or hosted), and can apply generated file changes
back onto the workspace. Four chat modes are available: ask, plan, agent and
debug.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleChatCommand(rootDependencies)
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}

// handleRootCommand loads configuration and builds the dependency graph.
func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Failed to get current directory: %v", err)))
		return nil
	}

	cfg := config.LoadConfigs(cmd.Root(), cwd)

	logger := newLogger(cfg.LogLevel)

	providersPath := cfg.ProvidersPath
	if !filepath.IsAbs(providersPath) {
		providersPath = filepath.Join(cwd, providersPath)
	}
	registry := providers.NewRegistry(providersPath, logger)

	tokenManagement := token_management.NewTokenManager()
	dispatcher := providers.NewDispatcher(registry, tokenManagement, logger)

	workspaceRoot := cfg.Workspace
	if !filepath.IsAbs(workspaceRoot) {
		workspaceRoot = filepath.Join(cwd, workspaceRoot)
	}

	var localFS *workspace.LocalFileSystem
	var snapshotSource code_analyzer.SnapshotSource
	var fileSystem workspace.FileSystem
	localFS, err = workspace.NewLocalFileSystem(workspaceRoot, logger)
	if err != nil {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Workspace unavailable, file actions disabled: %v", err)))
	} else {
		snapshotSource = localFS
		fileSystem = localFS
	}

	distiller := code_analyzer.NewContextDistiller(snapshotSource, logger)

	orch := orchestrator.New(registry, dispatcher, distiller, fileSystem, logger)
	orch.PacingInterval = time.Duration(cfg.PlanPacingMs) * time.Millisecond

	return &RootDependencies{
		Config:          cfg,
		Logger:          logger,
		Registry:        registry,
		TokenManagement: tokenManagement,
		Workspace:       localFS,
		Distiller:       distiller,
		Dispatcher:      dispatcher,
		Orchestrator:    orch,
		Session:         session.NewSession(),
		Cwd:             cwd,
	}
}

// newLogger builds the diagnostics logger. Terminal-facing output goes
// through lipgloss-styled prints, not here.
func newLogger(level string) *zap.Logger {
	zapConfig := zap.NewProductionConfig()

	parsedLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		parsedLevel = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parsedLevel)
	zapConfig.OutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
