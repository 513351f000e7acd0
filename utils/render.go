package utils

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// LanguageForPath picks a chroma lexer name from a file path, falling back to
// plain text for anything unrecognized.
func LanguageForPath(path string) string {
	lexer := lexers.Match(path)
	if lexer == nil {
		return "plaintext"
	}
	return lexer.Config().Name
}

// RenderFileContent prints file content with syntax highlighting chosen from
// the file's path.
func RenderFileContent(path string, content string, theme string) error {
	return quick.Highlight(os.Stdout, content+"\n", LanguageForPath(path), "terminal256", theme)
}

// RenderFileContentWithContext prints highlighted file content line by line
// with cancellation support.
func RenderFileContentWithContext(ctx context.Context, path string, content string, theme string) error {
	language := LanguageForPath(path)

	for _, line := range strings.Split(content, "\n") {
		select {
		case <-ctx.Done():
			fmt.Println("\nOutput interrupted...")
			return ctx.Err()
		default:
		}

		if err := quick.Highlight(os.Stdout, line+"\n", language, "terminal256", theme); err != nil {
			return err
		}
	}

	return nil
}
