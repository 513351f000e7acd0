package file_writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluidflow/fluidflow/response_parser/models"
)

func newTestWriter(t *testing.T) (*FileWriter, string) {
	root := t.TempDir()
	return NewFileWriter(root, 2*time.Second), root
}

func TestApply_WritesFilesAndDirectories(t *testing.T) {
	writer, root := newTestWriter(t)

	response := &models.MarkerResponse{
		Files: map[string]string{
			"src/App.tsx":               "export default function App() { return null; }",
			"src/components/Header.tsx": "export function Header() { return null; }",
		},
	}

	results := writer.Apply(context.Background(), response, nil)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, "written", result.Action)
		assert.NoError(t, result.Err)
	}

	content, err := os.ReadFile(filepath.Join(root, "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "export default function App() { return null; }", string(content))

	_, err = os.Stat(filepath.Join(root, "src", "components", "Header.tsx"))
	assert.NoError(t, err)
}

func TestApply_DeletesPlannedPathsAndPrunesEmptyDirs(t *testing.T) {
	writer, root := newTestWriter(t)

	oldDir := filepath.Join(root, "src", "legacy")
	require.NoError(t, os.MkdirAll(oldDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(oldDir, "Old.tsx"), []byte("old"), 0644))

	response := &models.MarkerResponse{Files: map[string]string{}}
	plan := &models.FilePlan{Delete: []string{"src/legacy/Old.tsx"}}

	results := writer.Apply(context.Background(), response, plan)
	require.Len(t, results, 1)
	assert.Equal(t, "deleted", results[0].Action)

	_, err := os.Stat(filepath.Join(oldDir, "Old.tsx"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldDir)
	assert.True(t, os.IsNotExist(err), "empty directory pruned after deletion")
}

func TestDeleteFile_MissingTargetIsNotAnError(t *testing.T) {
	writer, _ := newTestWriter(t)
	assert.NoError(t, writer.DeleteFile("src/never-existed.ts"))
}

func TestWriteFile_RejectsEscapingPaths(t *testing.T) {
	writer, root := newTestWriter(t)

	err := writer.WriteFile(context.Background(), "../outside.ts", "nope")
	assert.Error(t, err)

	err = writer.WriteFile(context.Background(), "/etc/hosts.ts", "nope")
	assert.Error(t, err)

	entries, readErr := os.ReadDir(filepath.Dir(root))
	require.NoError(t, readErr)
	for _, entry := range entries {
		assert.NotEqual(t, "outside.ts", entry.Name())
	}
}

func TestWriteFile_RemovesLockFile(t *testing.T) {
	writer, root := newTestWriter(t)

	require.NoError(t, writer.WriteFile(context.Background(), "a.ts", "const a = 1;"))

	_, err := os.Stat(filepath.Join(root, "a.ts.lock"))
	assert.True(t, os.IsNotExist(err), "advisory lock file is cleaned up")
}
