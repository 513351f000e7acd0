package contracts

type ICodeCleaner interface {
	Clean(path string, content string) string
}
