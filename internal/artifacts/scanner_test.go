package artifacts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/csvsync/internal/artifacts"
)

func writeWorkspaceFile(testInstance *testing.T, rootDirectory string, relativePath string) {
	testInstance.Helper()
	fullPath := filepath.Join(rootDirectory, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(testInstance, os.WriteFile(fullPath, []byte("data"), 0o644))
}

func TestScannerFindsCSVArtifacts(testInstance *testing.T) {
	testCases := []struct {
		name           string
		patterns       []string
		workspaceFiles []string
		expectedPaths  []string
	}{
		{
			name: "default_pattern_matches_nested_csv",
			workspaceFiles: []string{
				"Adv_Dec.csv",
				"data/Most_Active.csv",
				"advdec.py",
				"requirements.txt",
				"notes/readme.md",
			},
			expectedPaths: []string{"Adv_Dec.csv", "data/Most_Active.csv"},
		},
		{
			name:     "custom_pattern_restricts_to_subdirectory",
			patterns: []string{"data/*.csv"},
			workspaceFiles: []string{
				"Adv_Dec.csv",
				"data/Most_Active.csv",
			},
			expectedPaths: []string{"data/Most_Active.csv"},
		},
		{
			name: "no_artifacts",
			workspaceFiles: []string{
				"advdec.py",
				"requirements.txt",
			},
			expectedPaths: []string{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			workspaceRoot := testInstance.TempDir()
			for _, workspaceFile := range testCase.workspaceFiles {
				writeWorkspaceFile(testInstance, workspaceRoot, workspaceFile)
			}

			scanner, creationError := artifacts.NewScanner(testCase.patterns)
			require.NoError(testInstance, creationError)

			matchedPaths, scanError := scanner.Scan(workspaceRoot)
			require.NoError(testInstance, scanError)
			require.Equal(testInstance, testCase.expectedPaths, matchedPaths)
		})
	}
}

func TestScannerIgnoresGitMetadata(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	writeWorkspaceFile(testInstance, workspaceRoot, "Adv_Dec.csv")
	writeWorkspaceFile(testInstance, workspaceRoot, ".git/info/index.csv")

	scanner, creationError := artifacts.NewScanner(nil)
	require.NoError(testInstance, creationError)

	matchedPaths, scanError := scanner.Scan(workspaceRoot)
	require.NoError(testInstance, scanError)
	require.Equal(testInstance, []string{"Adv_Dec.csv"}, matchedPaths)
}

func TestScannerRejectsInvalidPatterns(testInstance *testing.T) {
	_, creationError := artifacts.NewScanner([]string{"[unclosed"})
	require.Error(testInstance, creationError)
}

func TestScannerRequiresRootDirectory(testInstance *testing.T) {
	scanner, creationError := artifacts.NewScanner(nil)
	require.NoError(testInstance, creationError)

	_, scanError := scanner.Scan("  ")
	require.Error(testInstance, scanError)
}
