package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluidflow/fluidflow/constants/lipgloss"
	"github.com/fluidflow/fluidflow/utils"
)

// detectCmd: fluidflow detect
var detectCmd = &cobra.Command{
	Use:   "detect [response-file]",
	Short: "Report whether input is marker format and list every named file.",
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

		fmt.Println(lipgloss.Green.Render("marker format"))
		for _, filePath := range deps.Parser.ExtractFileList(text) {
			fmt.Println(filePath)
		}

		if stripped, _ := cmd.Flags().GetBool("strip"); stripped {
			fmt.Println(deps.Parser.StripMetadata(text))
		}

		return nil
	},
}

func init() {
	detectCmd.Flags().Bool("clipboard", false, "Read the response from the system clipboard instead of a file")
	detectCmd.Flags().Bool("strip", false, "Print the response with closed metadata blocks removed")

	rootCmd.AddCommand(detectCmd)
}
