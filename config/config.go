package config

import (
	"fmt"
	"os"

	"github.com/meysamhadeli/codai-studio/constants/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Version       string `mapstructure:"version"`
	Theme         string `mapstructure:"theme"`
	Workspace     string `mapstructure:"workspace"`
	ProvidersPath string `mapstructure:"providers_path"`
	PlanPacingMs  int    `mapstructure:"plan_pacing_ms"`
	LogLevel      string `mapstructure:"log_level"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:       "0.1.0",
	Theme:         "dracula",
	Workspace:     ".",
	ProvidersPath: "studio-providers.json",
	PlanPacingMs:  150,
	LogLevel:      "info",
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment
// variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	setDefaults()

	viper.AutomaticEnv()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	} else {
		viper.SetConfigName("studio-config")
		viper.AddConfigPath(cwd)

		// Support both YAML and JSON formats
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigType("json")
			if err := viper.ReadInConfig(); err != nil {
				fmt.Println(lipgloss.Yellow.Render("No configuration file found, using defaults"))
			}
		}
	}

	bindFlags(rootCmd)

	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Unable to decode into struct: %v", err)))
		os.Exit(1)
	}

	return config
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("workspace", DefaultConfig.Workspace)
	viper.SetDefault("providers_path", DefaultConfig.ProvidersPath)
	viper.SetDefault("plan_pacing_ms", DefaultConfig.PlanPacingMs)
	viper.SetDefault("log_level", DefaultConfig.LogLevel)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "THEME")
	_ = viper.BindEnv("workspace", "WORKSPACE")
	_ = viper.BindEnv("providers_path", "PROVIDERS_PATH")
	_ = viper.BindEnv("plan_pacing_ms", "PLAN_PACING_MS")
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("theme", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("providers_path", rootCmd.PersistentFlags().Lookup("providers_path"))
	_ = viper.BindPFlag("plan_pacing_ms", rootCmd.PersistentFlags().Lookup("plan_pacing_ms"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log_level"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for buffering response from ai. (e.g., 'dracula', 'light', 'dark')")
	rootCmd.PersistentFlags().String("workspace", DefaultConfig.Workspace, "The root directory of the workspace the assistant operates on.")
	rootCmd.PersistentFlags().String("providers_path", DefaultConfig.ProvidersPath, "Path of the JSON file where provider settings are persisted.")
	rootCmd.PersistentFlags().Int("plan_pacing_ms", DefaultConfig.PlanPacingMs, "Delay in milliseconds between line batches while live-writing a plan file.")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level for diagnostics ('debug', 'info', 'warn', 'error').")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}
