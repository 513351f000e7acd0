package models

// FilePlan describes the changes a response intends to make, declared in a
// PLAN block before any file bodies stream in. Sizes are advisory estimates
// of line counts; nothing ties them to the actual content.
type FilePlan struct {
	Create []string
	Update []string
	Delete []string
	Sizes  map[string]int
	Total  int
}

// GenerationMeta carries multi-batch bookkeeping for responses that are too
// large for a single completion.
type GenerationMeta struct {
	TotalFilesPlanned int
	FilesInThisBatch  []string
	CompletedFiles    []string
	RemainingFiles    []string
	CurrentBatch      int
	TotalBatches      int
	IsComplete        bool
}

// StreamingFiles partitions every FILE region found in a response at parse
// time. Complete holds properly closed and implicitly closed files (cleaned),
// Streaming holds the single still-open file at the end of the text (raw,
// uncleaned). CurrentFile names the streaming file, or is empty when every
// file has a resolved boundary.
type StreamingFiles struct {
	Complete    map[string]string
	Streaming   map[string]string
	CurrentFile string
}

// StreamingStatus classifies planned paths for progress display.
type StreamingStatus struct {
	Pending   []string
	Streaming []string
	Complete  []string
}

// MarkerResponse is the assembled result of parsing a marker-format response.
// Files only contains cleaned, non-empty content. Truncated is true exactly
// when IncompleteFiles is non-empty, or when no complete file exists but a
// file is still streaming.
type MarkerResponse struct {
	Files           map[string]string
	Explanation     string
	Plan            *FilePlan
	GenerationMeta  *GenerationMeta
	Truncated       bool
	IncompleteFiles []string
}
