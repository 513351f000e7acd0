package response_parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyCleaner simulates a post-processor that rejects everything it sees.
type emptyCleaner struct{}

func (emptyCleaner) Clean(path string, content string) string { return "" }

// suffixCleaner appends a marker so tests can tell cleaned content from raw.
type suffixCleaner struct{}

func (suffixCleaner) Clean(path string, content string) string { return content + "/*cleaned*/" }

func newTestParser() *Parser {
	return &Parser{}
}

// Test format detection: a FILE marker commits to the format, and so does a
// PLAN marker together with an EXPLANATION marker before any file streams in.
func TestIsMarkerFormat(t *testing.T) {
	parser := newTestParser()

	assert.True(t, parser.IsMarkerFormat("<!-- FILE:src/App.tsx -->"))
	assert.True(t, parser.IsMarkerFormat("<!--  FILE:src/App.tsx   -->"), "flexible whitespace")
	assert.True(t, parser.IsMarkerFormat("<!--FILE:src/App.tsx-->"), "no whitespace")
	assert.True(t, parser.IsMarkerFormat("<!-- PLAN -->\ncreate: a.ts\n<!-- EXPLANATION -->"))

	assert.False(t, parser.IsMarkerFormat("just plain text"))
	assert.False(t, parser.IsMarkerFormat("<!-- PLAN -->\ncreate: a.ts\n"), "PLAN alone is not enough")
	assert.False(t, parser.IsMarkerFormat("<!-- file:src/App.tsx -->"), "keywords are case-sensitive")
	assert.False(t, parser.IsMarkerFormat("<!-- FILE:Dockerfile -->"), "paths need an extension")
}

func TestParsePlan(t *testing.T) {
	parser := newTestParser()

	plan := parser.ParsePlan(`<!-- PLAN -->
create: src/App.tsx, src/Header.tsx
update: src/index.css
delete: src/Old.tsx
sizes: src/App.tsx:25, src/Header.tsx:40
priority: high
<!-- /PLAN -->`)

	require.NotNil(t, plan)
	assert.Equal(t, []string{"src/App.tsx", "src/Header.tsx"}, plan.Create)
	assert.Equal(t, []string{"src/index.css"}, plan.Update)
	assert.Equal(t, []string{"src/Old.tsx"}, plan.Delete)
	assert.Equal(t, map[string]int{"src/App.tsx": 25, "src/Header.tsx": 40}, plan.Sizes)
	// delete does not count toward total
	assert.Equal(t, 3, plan.Total)
}

func TestParsePlan_UnclosedBlockIsAbsent(t *testing.T) {
	parser := newTestParser()
	assert.Nil(t, parser.ParsePlan("<!-- PLAN -->\ncreate: a.ts\n"))
	assert.Nil(t, parser.ParsePlan("no plan here"))
}

func TestParsePlan_MalformedSizesSkipped(t *testing.T) {
	parser := newTestParser()

	plan := parser.ParsePlan(`<!-- PLAN -->
create: a.ts
sizes: a.ts:25, b.ts:many, noColonHere, c.ts:10
<!-- /PLAN -->`)

	require.NotNil(t, plan)
	assert.Equal(t, map[string]int{"a.ts": 25, "c.ts": 10}, plan.Sizes)
}

func TestParseExplanation(t *testing.T) {
	parser := newTestParser()

	explanation := parser.ParseExplanation("<!-- EXPLANATION -->\nAdds a header.\n<!-- /EXPLANATION -->")
	assert.Equal(t, "Adds a header.", explanation)

	assert.Equal(t, "", parser.ParseExplanation("<!-- EXPLANATION -->\nstill streaming"))
	assert.Equal(t, "", parser.ParseExplanation("nothing"))
}

func TestParseGenerationMeta(t *testing.T) {
	parser := newTestParser()

	meta := parser.ParseGenerationMeta(`<!-- GENERATION_META -->
totalFilesPlanned: 5
filesInThisBatch: a.ts, b.ts
completedFiles: a.ts
remainingFiles: c.ts, d.ts, e.ts
currentBatch: 1
totalBatches: 2
isComplete: false
<!-- /GENERATION_META -->`)

	require.NotNil(t, meta)
	assert.Equal(t, 5, meta.TotalFilesPlanned)
	assert.Equal(t, []string{"a.ts", "b.ts"}, meta.FilesInThisBatch)
	assert.Equal(t, []string{"a.ts"}, meta.CompletedFiles)
	assert.Equal(t, []string{"c.ts", "d.ts", "e.ts"}, meta.RemainingFiles)
	assert.Equal(t, 1, meta.CurrentBatch)
	assert.Equal(t, 2, meta.TotalBatches)
	assert.False(t, meta.IsComplete)
}

// Malformed fields degrade to their defaults instead of failing the block.
func TestParseGenerationMeta_Defaults(t *testing.T) {
	parser := newTestParser()

	meta := parser.ParseGenerationMeta(`<!-- GENERATION_META -->
totalFilesPlanned: lots
currentBatch: first
isComplete: TRUE
<!-- /GENERATION_META -->`)

	require.NotNil(t, meta)
	assert.Equal(t, 0, meta.TotalFilesPlanned)
	assert.Equal(t, 1, meta.CurrentBatch)
	assert.Equal(t, 1, meta.TotalBatches)
	assert.Empty(t, meta.FilesInThisBatch)
	assert.True(t, meta.IsComplete, "isComplete compares lower-cased")

	meta = parser.ParseGenerationMeta("<!-- GENERATION_META -->\nisComplete: yes\n<!-- /GENERATION_META -->")
	require.NotNil(t, meta)
	assert.False(t, meta.IsComplete, `only the literal "true" counts`)

	assert.Nil(t, parser.ParseGenerationMeta("<!-- GENERATION_META -->\nno closing marker"))
}

func TestParseFiles_WellFormed(t *testing.T) {
	parser := newTestParser()

	files := parser.ParseFiles(`<!-- FILE:src/a.ts -->
const a = 1;
<!-- /FILE:src/a.ts -->
<!-- FILE:src/b.ts -->
const b = 2;
<!-- /FILE:src/b.ts -->`)

	require.Len(t, files, 2)
	assert.Equal(t, "const a = 1;", files["src/a.ts"])
	assert.Equal(t, "const b = 2;", files["src/b.ts"])
}

// Running the parser twice over the same input must yield identical results:
// it keeps no state between calls.
func TestParseFiles_Idempotent(t *testing.T) {
	parser := newTestParser()
	input := "<!-- FILE:a.ts -->\nconst a = 1;\n<!-- FILE:b.ts -->\npartial"

	first := parser.ParseFiles(input)
	second := parser.ParseFiles(input)
	assert.Equal(t, first, second)
}

// An opening with no closing marker is recovered up to the next FILE marker:
// the model moved on to b.ts without closing a.ts, and neither entry may be
// lost.
func TestParseFiles_RecoversUnclosedBlock(t *testing.T) {
	parser := newTestParser()

	files := parser.ParseFiles("<!-- FILE:a.ts -->contentA<!-- FILE:b.ts -->contentB<!-- /FILE:b.ts -->")

	require.Len(t, files, 2)
	assert.Equal(t, "contentA", files["a.ts"])
	assert.Equal(t, "contentB", files["b.ts"])
}

// An orphaned opening immediately followed by a properly closed block for a
// different path must not swallow that block.
func TestParseFiles_RecoveryStopsAtClosedBlock(t *testing.T) {
	parser := newTestParser()

	files := parser.ParseFiles(`<!-- FILE:a.ts -->
const a = 1;
<!-- FILE:b.ts -->
const b = 2;
<!-- /FILE:b.ts -->
trailing prose`)

	require.Len(t, files, 2)
	assert.Equal(t, "const a = 1;", files["a.ts"])
	assert.Equal(t, "const b = 2;", files["b.ts"])
}

// The final unclosed opening is the still-streaming tail of the response; it
// belongs to ParseStreamingFiles, not here.
func TestParseFiles_TrailingUnclosedExcluded(t *testing.T) {
	parser := newTestParser()

	files := parser.ParseFiles("<!-- FILE:a.ts -->\nconst a=1;\n<!-- /FILE:a.ts -->\n<!-- FILE:b.ts -->\nconst b=")

	require.Len(t, files, 1)
	assert.Equal(t, "const a=1;", files["a.ts"])
}

// A path whose content cleans down to nothing must not appear at all.
func TestParseFiles_EmptyAfterCleanDropped(t *testing.T) {
	parser := &Parser{cleaner: emptyCleaner{}}

	files := parser.ParseFiles("<!-- FILE:a.ts -->\nconst a = 1;\n<!-- /FILE:a.ts -->")
	assert.Empty(t, files)
}

// Only boundary blank lines are stripped; interior formatting, indentation
// and trailing spaces on content lines survive byte-for-byte.
func TestParseFiles_PreservesInteriorFormatting(t *testing.T) {
	parser := newTestParser()

	files := parser.ParseFiles("<!-- FILE:a.py -->\n\n\ndef f():\n    return 1  \n\n\n<!-- /FILE:a.py -->")
	assert.Equal(t, "def f():\n    return 1  ", files["a.py"])
}

func TestParseFiles_EmitsRecoveryDiagnostic(t *testing.T) {
	var events []string
	parser := &Parser{diag: func(event string, fields map[string]string) {
		events = append(events, event+":"+fields["path"])
	}}

	parser.ParseFiles("<!-- FILE:a.ts -->contentA<!-- FILE:b.ts -->contentB<!-- /FILE:b.ts -->")
	assert.Equal(t, []string{"unclosed_file_block_recovered:a.ts"}, events)
}

// The streaming set holds at most one entry, and it always matches
// CurrentFile.
func TestParseStreamingFiles_SingletonInvariant(t *testing.T) {
	parser := newTestParser()

	inputs := []string{
		"",
		"just plain text",
		"<!-- FILE:a.ts -->\npartial",
		"<!-- FILE:a.ts -->\nA\n<!-- FILE:b.ts -->\nB\n<!-- FILE:c.ts -->\npartial",
		"<!-- FILE:a.ts -->\nA\n<!-- /FILE:a.ts -->",
	}

	for _, input := range inputs {
		result := parser.ParseStreamingFiles(input)
		assert.LessOrEqual(t, len(result.Streaming), 1, "input: %q", input)
		if result.CurrentFile == "" {
			assert.Empty(t, result.Streaming, "input: %q", input)
		} else {
			_, ok := result.Streaming[result.CurrentFile]
			assert.True(t, ok, "input: %q", input)
		}
	}
}

// Every orphan but the last is implicitly complete; the last keeps streaming
// to the end of the text.
func TestParseStreamingFiles_Partition(t *testing.T) {
	parser := newTestParser()

	result := parser.ParseStreamingFiles(`<!-- FILE:a.ts -->
const a = 1;
<!-- /FILE:a.ts -->
<!-- FILE:b.ts -->
const b = 2;
<!-- FILE:c.ts -->
const c =`)

	assert.Equal(t, "const a = 1;", result.Complete["a.ts"])
	assert.Equal(t, "const b = 2;", result.Complete["b.ts"], "superseded orphan is implicitly complete")
	assert.Equal(t, "const c =", result.Streaming["c.ts"])
	assert.Equal(t, "c.ts", result.CurrentFile)
}

// A trailing metadata marker bounds the streaming file's content.
func TestParseStreamingFiles_TrimsTrailingMetadataMarker(t *testing.T) {
	parser := newTestParser()

	result := parser.ParseStreamingFiles(`<!-- FILE:a.ts -->
const a = 1;
<!-- GENERATION_META -->
totalFilesPlanned: 3
<!-- /GENERATION_META -->`)

	assert.Equal(t, "a.ts", result.CurrentFile)
	assert.Equal(t, "const a = 1;", result.Streaming["a.ts"])
}

// Streaming content bypasses the cleaner: cleaning partial code could corrupt
// it, while complete content is cleaned.
func TestParseStreamingFiles_StreamingContentIsRaw(t *testing.T) {
	parser := &Parser{cleaner: suffixCleaner{}}

	result := parser.ParseStreamingFiles("<!-- FILE:a.ts -->\ndone\n<!-- /FILE:a.ts -->\n<!-- FILE:b.ts -->\npartial")

	assert.Equal(t, "done/*cleaned*/", result.Complete["a.ts"])
	assert.Equal(t, "partial", result.Streaming["b.ts"])
}

func TestParseResponse_WellFormed(t *testing.T) {
	parser := newTestParser()

	response := parser.ParseResponse("<!-- PLAN -->\ncreate: src/App.tsx\n<!-- /PLAN -->\n" +
		"<!-- FILE:src/App.tsx -->\nexport default function App(){return null;}\n<!-- /FILE:src/App.tsx -->")

	require.NotNil(t, response)
	require.NotNil(t, response.Plan)
	assert.Equal(t, []string{"src/App.tsx"}, response.Plan.Create)
	assert.Equal(t, 1, response.Plan.Total)
	assert.Contains(t, response.Files["src/App.tsx"], "export default function App(){return null;}")
	assert.False(t, response.Truncated)
	assert.Empty(t, response.IncompleteFiles)
}

// Mid-stream: the first file closed, the second is cut off. The closed file
// is delivered and the truncation is flagged.
func TestParseResponse_MidStream(t *testing.T) {
	parser := newTestParser()

	response := parser.ParseResponse("<!-- FILE:a.ts -->\nconst a=1;\n<!-- /FILE:a.ts -->\n<!-- FILE:b.ts -->\nconst b=")

	require.NotNil(t, response)
	assert.Equal(t, map[string]string{"a.ts": "const a=1;"}, response.Files)
	assert.True(t, response.Truncated)
	assert.Equal(t, []string{"b.ts"}, response.IncompleteFiles)
}

func TestParseResponse_NonMarkerInput(t *testing.T) {
	parser := newTestParser()
	assert.Nil(t, parser.ParseResponse("just plain text"))
	assert.Nil(t, parser.ParseResponse(""))
}

// Format detected but nothing parseable yet: still nil, the caller waits for
// more stream.
func TestParseResponse_PlanOnlyNotParseableYet(t *testing.T) {
	parser := newTestParser()

	response := parser.ParseResponse("<!-- PLAN -->\ncreate: a.ts\n<!-- /PLAN -->\n<!-- EXPLANATION -->\nsoon\n<!-- /EXPLANATION -->")
	assert.Nil(t, response)
}

// Only a streaming file exists: empty file set, truncated, path reported.
func TestParseResponse_OnlyStreamingFile(t *testing.T) {
	parser := newTestParser()

	response := parser.ParseResponse("<!-- FILE:a.ts -->\nconst a =")

	require.NotNil(t, response)
	assert.Empty(t, response.Files)
	assert.True(t, response.Truncated)
	assert.Equal(t, []string{"a.ts"}, response.IncompleteFiles)
}

// Truncated must be true exactly when incomplete files exist.
func TestParseResponse_TruncationConsistency(t *testing.T) {
	parser := newTestParser()

	inputs := []string{
		"<!-- FILE:a.ts -->\nconst a=1;\n<!-- /FILE:a.ts -->",
		"<!-- FILE:a.ts -->\nconst a=1;\n<!-- /FILE:a.ts -->\n<!-- FILE:b.ts -->\npartial",
		"<!-- FILE:a.ts -->\npartial",
		"<!-- FILE:a.ts -->contentA<!-- FILE:b.ts -->contentB<!-- /FILE:b.ts -->",
	}

	for _, input := range inputs {
		response := parser.ParseResponse(input)
		require.NotNil(t, response, "input: %q", input)
		assert.Equal(t, len(response.IncompleteFiles) > 0, response.Truncated, "input: %q", input)
	}
}

func TestExtractFileList(t *testing.T) {
	parser := newTestParser()

	files := parser.ExtractFileList(`<!-- PLAN -->
create: src/App.tsx, src/Header.tsx
update: src/index.css
<!-- /PLAN -->
<!-- FILE:src/App.tsx -->
content
<!-- /FILE:src/App.tsx -->
<!-- FILE:src/extra.ts -->
partial`)

	assert.Equal(t, []string{"src/App.tsx", "src/Header.tsx", "src/extra.ts", "src/index.css"}, files)
}

func TestStreamingStatus(t *testing.T) {
	parser := newTestParser()

	status := parser.StreamingStatus(`<!-- PLAN -->
create: a.ts, b.ts, c.ts
<!-- /PLAN -->
<!-- FILE:a.ts -->
const a = 1;
<!-- /FILE:a.ts -->
<!-- FILE:b.ts -->
const b =`)

	assert.Equal(t, []string{"a.ts"}, status.Complete)
	assert.Equal(t, []string{"b.ts"}, status.Streaming)
	assert.Equal(t, []string{"c.ts"}, status.Pending)
}

func TestStripMetadata(t *testing.T) {
	parser := newTestParser()

	input := `<!-- PLAN -->
create: a.ts
<!-- /PLAN -->
<!-- EXPLANATION -->
words
<!-- /EXPLANATION -->
<!-- FILE:a.ts -->
const a = 1;
<!-- /FILE:a.ts -->
<!-- GENERATION_META -->
isComplete: true`

	stripped := parser.StripMetadata(input)

	assert.NotContains(t, stripped, "create: a.ts")
	assert.NotContains(t, stripped, "words")
	assert.Contains(t, stripped, "<!-- FILE:a.ts -->")
	assert.Contains(t, stripped, "const a = 1;")
	// unclosed blocks are never stripped
	assert.Contains(t, stripped, "isComplete: true")
}

// An opening nested inside another path's consumed region does not break the
// outer pairing, and is itself recovered as an orphan bounded by the next
// marker.
func TestParseFiles_NestedOpeningInsideClosedRegion(t *testing.T) {
	parser := newTestParser()

	input := "<!-- FILE:a.ts -->\nbefore\n<!-- FILE:b.ts -->\ninner\n<!-- /FILE:a.ts -->\nafter"
	files := parser.ParseFiles(input)

	content, ok := files["a.ts"]
	require.True(t, ok)
	assert.True(t, strings.Contains(content, "inner"), "a.ts consumes through its own closing marker")
	assert.Equal(t, "inner", files["b.ts"], "unsatisfied opening recovered up to the next marker")
}
