package response_parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	contracts2 "github.com/fluidflow/fluidflow/code_cleaner/contracts"
	"github.com/fluidflow/fluidflow/response_parser/contracts"
	"github.com/fluidflow/fluidflow/response_parser/models"
)

// Diagnostics receives structured parse events: recovered file blocks,
// swallowed internal errors. Events are observability signals, never
// user-facing errors. A nil Diagnostics drops all events.
type Diagnostics func(event string, fields map[string]string)

// Parser extracts structured results from marker-format LLM responses. It is
// a pure function of its input text: it keeps no state between calls, so the
// streaming consumer can re-parse the same growing string as often as it
// likes.
type Parser struct {
	cleaner contracts2.ICodeCleaner
	diag    Diagnostics
}

// NewParser initializes a new Parser. A nil cleaner leaves file content
// untouched; a nil diag drops diagnostics.
func NewParser(cleaner contracts2.ICodeCleaner, diag Diagnostics) contracts.IResponseParser {
	return &Parser{
		cleaner: cleaner,
		diag:    diag,
	}
}

func (p *Parser) emit(event string, fields map[string]string) {
	if p.diag != nil {
		p.diag(event, fields)
	}
}

func (p *Parser) clean(path string, content string) string {
	if p.cleaner == nil {
		return content
	}
	return p.cleaner.Clean(path, content)
}

// IsMarkerFormat reports whether the text has committed to the marker format.
// A single FILE opening marker is enough; so is a PLAN marker together with an
// EXPLANATION marker, which covers a streamed response whose first FILE
// marker has not arrived yet.
func (p *Parser) IsMarkerFormat(text string) bool {
	if fileOpenRegex.MatchString(text) {
		return true
	}
	return planMarkerRegex.MatchString(text) && explanationMarkerRegex.MatchString(text)
}

// ParsePlan extracts the PLAN block. A block without its closing marker is
// treated as absent, never partially trusted. Unrecognized lines inside the
// block are ignored so future plan fields do not break older parsers.
func (p *Parser) ParsePlan(text string) *models.FilePlan {
	match := planBlockRegex.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	plan := &models.FilePlan{Sizes: make(map[string]int)}
	for _, line := range strings.Split(match[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "create:"):
			plan.Create = splitPathList(strings.TrimPrefix(line, "create:"))
		case strings.HasPrefix(line, "update:"):
			plan.Update = splitPathList(strings.TrimPrefix(line, "update:"))
		case strings.HasPrefix(line, "delete:"):
			plan.Delete = splitPathList(strings.TrimPrefix(line, "delete:"))
		case strings.HasPrefix(line, "sizes:"):
			parseSizePairs(strings.TrimPrefix(line, "sizes:"), plan.Sizes)
		}
	}

	// Deletions are not streamed work, so they do not count toward the total.
	plan.Total = len(plan.Create) + len(plan.Update)

	return plan
}

// parseSizePairs parses "path:int" pairs. The split is on the last colon of
// each pair, not the first: the numeric suffix is the reliable part. Pairs
// whose suffix fails to parse are skipped.
func parseSizePairs(value string, sizes map[string]int) {
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		idx := strings.LastIndex(pair, ":")
		if idx <= 0 {
			continue
		}
		lineCount, err := strconv.Atoi(strings.TrimSpace(pair[idx+1:]))
		if err != nil {
			continue
		}
		path := strings.TrimSpace(pair[:idx])
		if path == "" {
			continue
		}
		sizes[path] = lineCount
	}
}

// ParseExplanation extracts the free-text EXPLANATION block, or returns ""
// when the block is absent or unclosed.
func (p *Parser) ParseExplanation(text string) string {
	match := explanationBlockRegex.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// ParseGenerationMeta extracts the GENERATION_META block. Malformed fields
// fall back to their defaults silently; the streaming UI relies on partial
// blocks degrading gracefully mid-stream.
func (p *Parser) ParseGenerationMeta(text string) *models.GenerationMeta {
	match := metaBlockRegex.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	meta := &models.GenerationMeta{
		CurrentBatch: 1,
		TotalBatches: 1,
		IsComplete:   true,
	}

	for _, line := range strings.Split(match[1], "\n") {
		line = strings.TrimSpace(line)
		// First colon only: values keep any colons of their own.
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		switch key {
		case "totalFilesPlanned":
			if n, err := strconv.Atoi(value); err == nil {
				meta.TotalFilesPlanned = n
			}
		case "filesInThisBatch":
			meta.FilesInThisBatch = splitPathList(value)
		case "completedFiles":
			meta.CompletedFiles = splitPathList(value)
		case "remainingFiles":
			meta.RemainingFiles = splitPathList(value)
		case "currentBatch":
			if n, err := strconv.Atoi(value); err == nil {
				meta.CurrentBatch = n
			}
		case "totalBatches":
			if n, err := strconv.Atoi(value); err == nil {
				meta.TotalBatches = n
			}
		case "isComplete":
			meta.IsComplete = strings.ToLower(value) == "true"
		}
	}

	return meta
}

// ParseFiles extracts path -> cleaned content from FILE marker pairs.
//
// Properly closed regions are taken first. Openings that never close are then
// recovered: each one ends at the nearest subsequent FILE marker of any kind,
// which handles the model moving on to the next file without closing the
// previous one. An unclosed opening with no marker after it is the
// still-streaming tail of the response; it stays out of the result and is
// reported by ParseStreamingFiles instead.
func (p *Parser) ParseFiles(text string) map[string]string {
	files := make(map[string]string)
	opens, closes := scanFileMarkers(text)

	closedPaths := make(map[string]bool)
	for _, region := range pairFileRegions(opens, closes) {
		closedPaths[region.path] = true
		content := p.clean(region.path, trimBlankLines(text[region.start:region.end]))
		if content == "" {
			continue
		}
		files[region.path] = content
	}

	for _, orphan := range orphanedOpens(opens, closedPaths) {
		end, found := nextFileMarkerAfter(opens, closes, orphan.end)
		if !found {
			continue
		}
		p.emit("unclosed_file_block_recovered", map[string]string{"path": orphan.path})
		content := p.clean(orphan.path, trimBlankLines(text[orphan.end:end]))
		if content == "" {
			continue
		}
		files[orphan.path] = content
	}

	return files
}

// ParseStreamingFiles partitions every FILE region into complete files
// (properly closed or superseded by a later opening) and the single file that
// is still streaming. The streaming file runs to the end of the text, trimmed
// of a trailing non-FILE marker such as the start of GENERATION_META, and its
// content is returned raw: cleaning partial code could corrupt it further.
func (p *Parser) ParseStreamingFiles(text string) models.StreamingFiles {
	result := models.StreamingFiles{
		Complete:  make(map[string]string),
		Streaming: make(map[string]string),
	}

	opens, closes := scanFileMarkers(text)

	closedPaths := make(map[string]bool)
	for _, region := range pairFileRegions(opens, closes) {
		closedPaths[region.path] = true
		content := p.clean(region.path, trimBlankLines(text[region.start:region.end]))
		if content == "" {
			continue
		}
		result.Complete[region.path] = content
	}

	orphans := orphanedOpens(opens, closedPaths)
	if len(orphans) == 0 {
		return result
	}

	// Every orphan but the last was superseded by a later opening, so its
	// boundary is unambiguous and it counts as implicitly complete.
	for _, orphan := range orphans[:len(orphans)-1] {
		end, found := nextFileMarkerAfter(opens, closes, orphan.end)
		if !found {
			end = len(text)
		}
		p.emit("unclosed_file_block_recovered", map[string]string{"path": orphan.path})
		content := p.clean(orphan.path, trimBlankLines(text[orphan.end:end]))
		if content == "" {
			continue
		}
		result.Complete[orphan.path] = content
	}

	last := orphans[len(orphans)-1]
	end := len(text)
	if loc := metadataMarkerRegex.FindStringIndex(text[last.end:]); loc != nil {
		end = last.end + loc[0]
	}
	result.Streaming[last.path] = trimBlankLines(text[last.end:end])
	result.CurrentFile = last.path

	return result
}

// ParseResponse is the top-level entry point. It returns nil when the text is
// not marker format, when nothing is parseable yet, or when parsing itself
// fails internally; the three cases are indistinguishable to the caller,
// which either waits for more streamed text or falls back to another parser.
// It never panics outward.
func (p *Parser) ParseResponse(text string) (response *models.MarkerResponse) {
	defer func() {
		if r := recover(); r != nil {
			p.emit("parse_failure", map[string]string{"error": fmt.Sprint(r)})
			response = nil
		}
	}()

	if !p.IsMarkerFormat(text) {
		return nil
	}

	plan := p.ParsePlan(text)
	explanation := p.ParseExplanation(text)
	meta := p.ParseGenerationMeta(text)

	files := p.ParseFiles(text)
	streaming := p.ParseStreamingFiles(text)

	if len(files) == 0 {
		if len(streaming.Complete) == 0 {
			if len(streaming.Streaming) == 0 {
				// Nothing usable: wait for more stream, or not this format.
				return nil
			}
			return &models.MarkerResponse{
				Files:           make(map[string]string),
				Explanation:     explanation,
				Plan:            plan,
				GenerationMeta:  meta,
				Truncated:       true,
				IncompleteFiles: streamingPaths(streaming),
			}
		}

		incomplete := streamingPaths(streaming)
		return &models.MarkerResponse{
			Files:           streaming.Complete,
			Explanation:     explanation,
			Plan:            plan,
			GenerationMeta:  meta,
			Truncated:       len(incomplete) > 0,
			IncompleteFiles: incomplete,
		}
	}

	// Even when block extraction succeeds, the last file in the document may
	// still be streaming behind the closed ones.
	var incomplete []string
	for path := range streaming.Streaming {
		if _, ok := files[path]; !ok {
			incomplete = append(incomplete, path)
		}
	}

	return &models.MarkerResponse{
		Files:           files,
		Explanation:     explanation,
		Plan:            plan,
		GenerationMeta:  meta,
		Truncated:       len(incomplete) > 0,
		IncompleteFiles: incomplete,
	}
}

// ExtractFileList returns every path the response names, whether from the
// PLAN block or from any FILE opening marker, deduplicated and sorted. Used
// for progress display only.
func (p *Parser) ExtractFileList(text string) []string {
	seen := make(map[string]bool)

	if plan := p.ParsePlan(text); plan != nil {
		for _, path := range plan.Create {
			seen[path] = true
		}
		for _, path := range plan.Update {
			seen[path] = true
		}
	}

	opens, _ := scanFileMarkers(text)
	for _, open := range opens {
		seen[open.path] = true
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return paths
}

// StreamingStatus classifies planned paths for the progress UI: planned but
// not yet seen, currently streaming, or complete.
func (p *Parser) StreamingStatus(text string) models.StreamingStatus {
	status := models.StreamingStatus{}

	streaming := p.ParseStreamingFiles(text)
	for path := range streaming.Complete {
		status.Complete = append(status.Complete, path)
	}
	sort.Strings(status.Complete)

	if streaming.CurrentFile != "" {
		status.Streaming = []string{streaming.CurrentFile}
	}

	if plan := p.ParsePlan(text); plan != nil {
		planned := append(append([]string{}, plan.Create...), plan.Update...)
		for _, path := range planned {
			if path == streaming.CurrentFile {
				continue
			}
			if _, ok := streaming.Complete[path]; ok {
				continue
			}
			status.Pending = append(status.Pending, path)
		}
	}

	return status
}

// StripMetadata removes closed PLAN, EXPLANATION and GENERATION_META blocks
// for clean display. FILE blocks and unclosed metadata blocks are left
// untouched.
func (p *Parser) StripMetadata(text string) string {
	text = planBlockRegex.ReplaceAllString(text, "")
	text = explanationBlockRegex.ReplaceAllString(text, "")
	text = metaBlockRegex.ReplaceAllString(text, "")
	return text
}

func streamingPaths(streaming models.StreamingFiles) []string {
	paths := make([]string, 0, len(streaming.Streaming))
	for path := range streaming.Streaming {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
