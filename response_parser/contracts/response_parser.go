package contracts

import (
	"github.com/fluidflow/fluidflow/response_parser/models"
)

type IResponseParser interface {
	IsMarkerFormat(text string) bool
	ParsePlan(text string) *models.FilePlan
	ParseExplanation(text string) string
	ParseGenerationMeta(text string) *models.GenerationMeta
	ParseFiles(text string) map[string]string
	ParseStreamingFiles(text string) models.StreamingFiles
	ParseResponse(text string) *models.MarkerResponse
	ExtractFileList(text string) []string
	StreamingStatus(text string) models.StreamingStatus
	StripMetadata(text string) string
}
