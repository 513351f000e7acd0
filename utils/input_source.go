package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// ReadResponseInput loads a raw LLM response from the clipboard, a file, or
// stdin ("-" or no path).
func ReadResponseInput(path string, fromClipboard bool) (string, error) {
	if fromClipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("failed to read clipboard: %w", err)
		}
		return text, nil
	}

	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read response file: %w", err)
	}
	return string(data), nil
}
