package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fluidflow/fluidflow/code_cleaner"
	cleaner_contracts "github.com/fluidflow/fluidflow/code_cleaner/contracts"
	"github.com/fluidflow/fluidflow/config"
	"github.com/fluidflow/fluidflow/constants/lipgloss"
	"github.com/fluidflow/fluidflow/file_writer"
	"github.com/fluidflow/fluidflow/response_parser"
	"github.com/fluidflow/fluidflow/response_parser/contracts"
	"github.com/fluidflow/fluidflow/response_parser/models"
)

// RootDependencies wires the parser stack for all subcommands.
type RootDependencies struct {
	Cwd       string
	SessionID string
	Config    *config.Config
	Parser    contracts.IResponseParser
	Cache     *response_parser.ParseCache
	Writer    *file_writer.FileWriter
}

var rootCmd = &cobra.Command{
	Use:   "fluidflow",
	Short: "Turn marker-format AI responses into project files.",
	Long: `FluidFlow's response toolkit parses the marker-format responses produced by
the generation pipeline (PLAN, EXPLANATION, FILE and GENERATION_META blocks)
and extracts the generated files, tolerating mid-stream truncation and
unclosed blocks. Point it at a response file, stdin, or the clipboard.`,
	Run: func(cmd *cobra.Command, args []string) {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Println(config.DefaultConfig.Version)
			return
		}
		_ = cmd.Help()
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

// handleRootCommand loads configuration and builds the shared dependencies.
func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error getting current directory: %v", err)))
		os.Exit(1)
	}

	cfg := config.LoadConfigs(rootCmd, cwd)
	sessionID := uuid.NewString()

	var cleaner cleaner_contracts.ICodeCleaner
	if cfg.CleanCode {
		cleaner = code_cleaner.NewCodeCleaner()
	}

	diag := func(event string, fields map[string]string) {
		pairs := make([]string, 0, len(fields))
		for key, value := range fields {
			pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
		}
		sort.Strings(pairs)
		pterm.Warning.Printfln("%s %s session=%s", event, strings.Join(pairs, " "), sessionID)
	}

	parser := response_parser.NewParser(cleaner, diag)

	return &RootDependencies{
		Cwd:       cwd,
		SessionID: sessionID,
		Config:    cfg,
		Parser:    parser,
		Cache:     response_parser.NewParseCache(parser),
		Writer:    file_writer.NewFileWriter(cfg.OutputRoot, time.Duration(cfg.LockTimeoutSecs)*time.Second),
	}
}

// parseResponse routes through the memo cache when caching is enabled.
func (deps *RootDependencies) parseResponse(text string) *models.MarkerResponse {
	if deps.Config.EnableCache {
		return deps.Cache.ParseResponse(text)
	}
	return deps.Parser.ParseResponse(text)
}

// sortedPaths returns map keys in stable display order.
func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
