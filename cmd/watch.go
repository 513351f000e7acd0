package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fluidflow/fluidflow/constants/lipgloss"
	"github.com/fluidflow/fluidflow/response_parser/models"
)

// staleTickLimit is how many polls without growth we tolerate before
// declaring an abandoned stream.
const staleTickLimit = 20

// watchCmd: fluidflow watch
var watchCmd = &cobra.Command{
	Use:   "watch <response-file>",
	Short: "Follow a streaming response file and report per-file progress.",
	Long: `The 'watch' subcommand polls a response file that another process is
appending streamed LLM output to, re-parses the accumulated text on every
change, and renders which planned files are pending, streaming, or complete.
It exits once the response is complete, or once the file stops growing while
a file is still unterminated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := handleRootCommand(cmd)

		intervalMs, _ := cmd.Flags().GetInt("interval")
		apply, _ := cmd.Flags().GetBool("apply")

		return runWatch(deps, args[0], time.Duration(intervalMs)*time.Millisecond, apply)
	},
}

func init() {
	watchCmd.Flags().Int("interval", 500, "Poll interval in milliseconds")
	watchCmd.Flags().Bool("apply", false, "Write extracted files under the output root once the stream completes")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(deps *RootDependencies, path string, interval time.Duration, apply bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner, _ := pterm.DefaultSpinner.
		WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithRemoveWhenDone(true).
		Start("Waiting for response stream...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSize int
	staleTicks := 0
	var response *models.MarkerResponse

	for {
		select {
		case <-ctx.Done():
			spinner.Stop()
			fmt.Println(lipgloss.Yellow.Render("Watch cancelled."))
			return nil
		case <-ticker.C:
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := string(data)

		if len(text) == lastSize {
			staleTicks++
		} else {
			staleTicks = 0
			lastSize = len(text)
		}

		response = deps.parseResponse(text)
		status := deps.Parser.StreamingStatus(text)
		spinner.UpdateText(progressLine(status))

		done := response != nil && !response.Truncated &&
			(response.GenerationMeta == nil || response.GenerationMeta.IsComplete)
		if done && staleTicks >= 1 {
			spinner.Stop()
			break
		}

		if staleTicks >= staleTickLimit {
			spinner.Stop()
			if response == nil {
				return fmt.Errorf("stream stopped growing before any file could be parsed")
			}
			pterm.Warning.Printfln("stream stopped growing; incomplete files: %s",
				strings.Join(response.IncompleteFiles, ", "))
			break
		}
	}

	for _, filePath := range sortedPaths(response.Files) {
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✔ %s", filePath)))
	}

	if deps.Config.EnableCache {
		stats := deps.Cache.GetPerformanceStats()
		fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("parse cache: %v hits / %v requests",
			stats["cache_hits"], stats["total_requests"])))
	}

	if apply {
		for _, result := range deps.Writer.Apply(ctx, response, response.Plan) {
			if result.Action == "failed" {
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("✘ %s: %v", result.Path, result.Err)))
				continue
			}
			fmt.Println(lipgloss.Green.Render(fmt.Sprintf("+ %s", result.Path)))
		}
	}

	return nil
}

func progressLine(status models.StreamingStatus) string {
	line := fmt.Sprintf("%d complete, %d pending", len(status.Complete), len(status.Pending))
	if len(status.Streaming) > 0 {
		line += fmt.Sprintf(", streaming %s", status.Streaming[0])
	}
	return line
}
