package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluidflow/fluidflow/constants/lipgloss"
	"github.com/fluidflow/fluidflow/utils"
)

// statusCmd: fluidflow status
var statusCmd = &cobra.Command{
	Use:   "status [response-file]",
	Short: "Show a one-shot streaming status snapshot for a response.",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := handleRootCommand(cmd)

		fromClipboard, _ := cmd.Flags().GetBool("clipboard")

		var path string
		if len(args) > 0 {
			path = args[0]
		}

		text, err := utils.ReadResponseInput(path, fromClipboard)
		if err != nil {
			return err
		}

		if !deps.Parser.IsMarkerFormat(text) {
			fmt.Println(lipgloss.Yellow.Render("not a marker-format response"))
			return nil
		}

		status := deps.Parser.StreamingStatus(text)
		for _, filePath := range status.Complete {
			fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✔ %s", filePath)))
		}
		for _, filePath := range status.Streaming {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("… %s", filePath)))
		}
		for _, filePath := range status.Pending {
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("· %s", filePath)))
		}

		if meta := deps.Parser.ParseGenerationMeta(text); meta != nil {
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("batch %d/%d, complete: %t",
				meta.CurrentBatch, meta.TotalBatches, meta.IsComplete)))
		}

		if response := deps.parseResponse(text); response != nil && response.Truncated {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("truncated, incomplete: %s",
				strings.Join(response.IncompleteFiles, ", "))))
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("clipboard", false, "Read the response from the system clipboard instead of a file")

	rootCmd.AddCommand(statusCmd)
}
