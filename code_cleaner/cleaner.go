package code_cleaner

import (
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/fluidflow/fluidflow/code_cleaner/contracts"
)

// CodeCleaner normalizes generated file content before it is handed to the
// editor state. It only ever removes artifacts the model wrapped around the
// code; when a rewrite would change how the code parses, the original content
// wins.
type CodeCleaner struct{}

// NewCodeCleaner initializes a new CodeCleaner.
func NewCodeCleaner() contracts.ICodeCleaner {
	return &CodeCleaner{}
}

var markerFragmentRegex = regexp.MustCompile(`^\s*<!--\s*/?FILE:[^>]*-->\s*$`)

// Clean post-processes a single extracted file, keyed by its path.
func (c *CodeCleaner) Clean(path string, content string) string {
	ext := strings.ToLower(filepath.Ext(path))

	// Markdown and plain text may legitimately start with a fence.
	if ext != ".md" && ext != ".txt" {
		content = stripWrappingFence(content)
	}
	content = stripMarkerFragments(content)

	lang := languageFor(ext)
	if lang == nil {
		return content
	}

	cleaned := trimTrailingSpace(content)
	if cleaned != content && introducesParseErrors(lang, content, cleaned) {
		return content
	}
	return cleaned
}

// stripWrappingFence removes a single markdown fence pair wrapping the whole
// content, which models sometimes emit inside FILE blocks.
func stripWrappingFence(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}

	first := strings.TrimSpace(lines[0])
	last := strings.TrimSpace(lines[len(lines)-1])
	if !strings.HasPrefix(first, "```") || last != "```" {
		return content
	}

	return strings.Join(lines[1:len(lines)-1], "\n")
}

// stripMarkerFragments drops lines that are nothing but a leaked FILE marker.
func stripMarkerFragments(content string) string {
	if !strings.Contains(content, "<!--") {
		return content
	}

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if markerFragmentRegex.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// trimTrailingSpace removes trailing whitespace per line, preserving
// indentation.
func trimTrailingSpace(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// languageFor returns the tree-sitter grammar for the JS/TS family this IDE
// generates, or nil for everything else.
func languageFor(ext string) *sitter.Language {
	switch ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".ts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return nil
	}
}

// introducesParseErrors reports whether cleaned has syntax errors that the
// original content did not. Content that already fails to parse is left to
// the caller unchanged either way.
func introducesParseErrors(lang *sitter.Language, original string, cleaned string) bool {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	originalTree := parser.Parse(nil, []byte(original))
	cleanedTree := parser.Parse(nil, []byte(cleaned))

	return cleanedTree.RootNode().HasError() && !originalTree.RootNode().HasError()
}
