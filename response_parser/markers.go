package response_parser

import (
	"regexp"
	"sort"
	"strings"
)

// Marker keywords are case-sensitive; whitespace inside the comment is
// flexible. Paths must carry a letters-only extension, otherwise the comment
// is not treated as a FILE marker at all.
const markerPathPattern = `[\w./-]+\.[A-Za-z]+`

var (
	fileOpenRegex  = regexp.MustCompile(`<!--\s*FILE:\s*(` + markerPathPattern + `)\s*-->`)
	fileCloseRegex = regexp.MustCompile(`<!--\s*/FILE:\s*(` + markerPathPattern + `)\s*-->`)

	planBlockRegex        = regexp.MustCompile(`(?s)<!--\s*PLAN\s*-->(.*?)<!--\s*/PLAN\s*-->`)
	explanationBlockRegex = regexp.MustCompile(`(?s)<!--\s*EXPLANATION\s*-->(.*?)<!--\s*/EXPLANATION\s*-->`)
	metaBlockRegex        = regexp.MustCompile(`(?s)<!--\s*GENERATION_META\s*-->(.*?)<!--\s*/GENERATION_META\s*-->`)

	planMarkerRegex        = regexp.MustCompile(`<!--\s*PLAN\s*-->`)
	explanationMarkerRegex = regexp.MustCompile(`<!--\s*EXPLANATION\s*-->`)

	// Non-FILE markers that can trail a still-streaming file block.
	metadataMarkerRegex = regexp.MustCompile(`<!--\s*/?(?:PLAN|EXPLANATION|GENERATION_META)\s*-->`)
)

// filePosition is a single FILE marker occurrence: the path it names and the
// byte offsets of the whole marker within the scanned text.
type filePosition struct {
	path  string
	start int
	end   int
}

// fileRegion is a paired open/close region; start and end bound the raw
// content between the two markers.
type fileRegion struct {
	path  string
	start int
	end   int
}

// scanFileMarkers collects every FILE opening and closing marker in one pass
// each. All boundary inference works off these position lists instead of a
// second regex pass over the text.
func scanFileMarkers(text string) (opens []filePosition, closes []filePosition) {
	for _, m := range fileOpenRegex.FindAllStringSubmatchIndex(text, -1) {
		opens = append(opens, filePosition{path: text[m[2]:m[3]], start: m[0], end: m[1]})
	}
	for _, m := range fileCloseRegex.FindAllStringSubmatchIndex(text, -1) {
		closes = append(closes, filePosition{path: text[m[2]:m[3]], start: m[0], end: m[1]})
	}
	return opens, closes
}

// pairFileRegions matches openings to the nearest later closing marker with
// the same path, in document order. Once a region is consumed, markers inside
// it are skipped, so nested marker-shaped text in file content cannot open a
// second region.
func pairFileRegions(opens []filePosition, closes []filePosition) []fileRegion {
	var regions []fileRegion
	usedClose := make([]bool, len(closes))
	cursor := 0

	for _, open := range opens {
		if open.start < cursor {
			continue
		}
		for j, closing := range closes {
			if usedClose[j] || closing.path != open.path || closing.start < open.end {
				continue
			}
			regions = append(regions, fileRegion{path: open.path, start: open.end, end: closing.start})
			usedClose[j] = true
			cursor = closing.end
			break
		}
	}

	return regions
}

// orphanedOpens returns the openings whose path never closed, preserving
// document order.
func orphanedOpens(opens []filePosition, closedPaths map[string]bool) []filePosition {
	var orphans []filePosition
	for _, open := range opens {
		if !closedPaths[open.path] {
			orphans = append(orphans, open)
		}
	}
	return orphans
}

// nextFileMarkerAfter finds the start of the nearest FILE marker (opening or
// closing, any path) at or after offset. The second return is false when no
// marker follows, which means the region runs to the end of the text.
func nextFileMarkerAfter(opens []filePosition, closes []filePosition, offset int) (int, bool) {
	starts := make([]int, 0, len(opens)+len(closes))
	for _, open := range opens {
		starts = append(starts, open.start)
	}
	for _, closing := range closes {
		starts = append(starts, closing.start)
	}
	sort.Ints(starts)

	for _, start := range starts {
		if start >= offset {
			return start, true
		}
	}
	return 0, false
}

// trimBlankLines strips leading and trailing blank lines without touching
// interior bytes. File content is source code, so indentation and internal
// blank lines must survive byte-for-byte.
func trimBlankLines(content string) string {
	lines := strings.Split(content, "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n")
}

// splitPathList splits a comma separated path list, trimming entries and
// dropping empty ones.
func splitPathList(value string) []string {
	var paths []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			paths = append(paths, part)
		}
	}
	return paths
}
