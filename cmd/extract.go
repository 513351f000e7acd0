package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fluidflow/fluidflow/constants/lipgloss"
	"github.com/fluidflow/fluidflow/response_parser/models"
	"github.com/fluidflow/fluidflow/utils"
)

// extractCmd: fluidflow extract
var extractCmd = &cobra.Command{
	Use:   "extract [response-file]",
	Short: "Parse a marker-format response and extract the generated files.",
	Long: `The 'extract' subcommand parses a complete (or truncated) marker-format
response into its plan, explanation and files. Input comes from a file
argument, stdin, or the clipboard. Use --show to render the extracted files
with syntax highlighting and --apply to write them under the output root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := handleRootCommand(cmd)

		fromClipboard, _ := cmd.Flags().GetBool("clipboard")
		show, _ := cmd.Flags().GetBool("show")
		apply, _ := cmd.Flags().GetBool("apply")

		var path string
		if len(args) > 0 {
			path = args[0]
		}

		text, err := utils.ReadResponseInput(path, fromClipboard)
		if err != nil {
			return err
		}

		return runExtract(deps, text, show, apply)
	},
}

func init() {
	extractCmd.Flags().Bool("clipboard", false, "Read the response from the system clipboard instead of a file")
	extractCmd.Flags().Bool("show", false, "Render extracted files with syntax highlighting")
	extractCmd.Flags().Bool("apply", false, "Write extracted files under the output root")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(deps *RootDependencies, text string, show bool, apply bool) error {
	response := deps.parseResponse(text)
	if response == nil {
		return fmt.Errorf("input is not a marker-format response, or no file content has streamed in yet")
	}

	if response.Plan != nil {
		renderPlan(response)
	}

	if response.Explanation != "" {
		fmt.Println(lipgloss.BoxStyle.Render(response.Explanation))
	}

	for _, filePath := range sortedPaths(response.Files) {
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✔ %s", filePath)))
	}

	if response.Truncated {
		pterm.Warning.Printfln("response is truncated; incomplete files: %s",
			strings.Join(response.IncompleteFiles, ", "))
	}

	if show {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		for _, filePath := range sortedPaths(response.Files) {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("--- %s ---", filePath)))
			if err := utils.RenderFileContentWithContext(ctx, filePath, response.Files[filePath], deps.Config.Theme); err != nil {
				return err
			}
		}
	}

	if apply {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		for _, result := range deps.Writer.Apply(ctx, response, response.Plan) {
			switch result.Action {
			case "failed":
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("✘ %s: %v", result.Path, result.Err)))
			case "deleted":
				fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("− %s", result.Path)))
			default:
				fmt.Println(lipgloss.Green.Render(fmt.Sprintf("+ %s", result.Path)))
			}
		}
	}

	return nil
}

func renderPlan(response *models.MarkerResponse) {
	plan := response.Plan

	var lines []string
	if len(plan.Create) > 0 {
		lines = append(lines, fmt.Sprintf("create: %s", strings.Join(plan.Create, ", ")))
	}
	if len(plan.Update) > 0 {
		lines = append(lines, fmt.Sprintf("update: %s", strings.Join(plan.Update, ", ")))
	}
	if len(plan.Delete) > 0 {
		lines = append(lines, fmt.Sprintf("delete: %s", strings.Join(plan.Delete, ", ")))
	}
	lines = append(lines, fmt.Sprintf("total: %d file(s), %d extracted", plan.Total, len(response.Files)))

	fmt.Println(lipgloss.BoxStyle.Render(strings.Join(lines, "\n")))
}
