package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fluidflow/fluidflow/constants/lipgloss"
)

// Config represents the structure of the configuration file
type Config struct {
	Version         string `mapstructure:"version"`
	Theme           string `mapstructure:"theme"`
	OutputRoot      string `mapstructure:"output_root"`
	EnableCache     bool   `mapstructure:"enable_cache"`
	CleanCode       bool   `mapstructure:"clean_code"`
	LockTimeoutSecs int    `mapstructure:"lock_timeout_secs"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:         "0.3.0",
	Theme:           "dracula",
	OutputRoot:      ".",
	EnableCache:     true,
	CleanCode:       true,
	LockTimeoutSecs: 5,
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	setDefaults()

	viper.AutomaticEnv()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if fileType := GetConfigFileType(cfgFile); fileType != "" {
			viper.SetConfigType(fileType)
		}
		if err := viper.ReadInConfig(); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	} else {
		viper.SetConfigName("fluidflow-config")
		viper.AddConfigPath(cwd)

		// Support both JSON and YAML formats
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigType("json")
			if err := viper.ReadInConfig(); err != nil {
				fmt.Println(lipgloss.Yellow.Render("No configuration file found, using defaults"))
			}
		}
	}

	// Bind CLI flags to override config values
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
	viper.SetDefault("output_root", DefaultConfig.OutputRoot)
	viper.SetDefault("enable_cache", DefaultConfig.EnableCache)
	viper.SetDefault("clean_code", DefaultConfig.CleanCode)
	viper.SetDefault("lock_timeout_secs", DefaultConfig.LockTimeoutSecs)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "THEME")
	_ = viper.BindEnv("output_root", "OUTPUT_ROOT")
	_ = viper.BindEnv("enable_cache", "ENABLE_CACHE")
	_ = viper.BindEnv("clean_code", "CLEAN_CODE")
	_ = viper.BindEnv("lock_timeout_secs", "LOCK_TIMEOUT_SECS")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("theme", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("output_root", rootCmd.PersistentFlags().Lookup("output_root"))
	_ = viper.BindPFlag("enable_cache", rootCmd.PersistentFlags().Lookup("enable_cache"))
	_ = viper.BindPFlag("clean_code", rootCmd.PersistentFlags().Lookup("clean_code"))
	_ = viper.BindPFlag("lock_timeout_secs", rootCmd.PersistentFlags().Lookup("lock_timeout_secs"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for rendering extracted code. (e.g., 'dracula', 'light', 'dark')")
	rootCmd.PersistentFlags().String("output_root", DefaultConfig.OutputRoot, "Directory that extracted files are written into.")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable memoization of parse results while watching a stream")
	rootCmd.PersistentFlags().Bool("clean_code", DefaultConfig.CleanCode, "Run the code cleaner over extracted file content")
	rootCmd.PersistentFlags().Int("lock_timeout_secs", DefaultConfig.LockTimeoutSecs, "Seconds to wait for a file lock before giving up on a write")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}
