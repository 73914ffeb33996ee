package syncjob_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/csvsync/internal/syncjob"
)

func writeJobFile(testInstance *testing.T, contents string) string {
	testInstance.Helper()

	jobFilePath := filepath.Join(testInstance.TempDir(), "job.yaml")
	require.NoError(testInstance, os.WriteFile(jobFilePath, []byte(contents), 0o644))
	return jobFilePath
}

func TestLoadJobDefinitionAppliesDefaults(testInstance *testing.T) {
	jobFilePath := writeJobFile(testInstance, `
repository:
  path: /srv/market-data
script:
  path: advdec.py
`)

	definition, loadError := syncjob.LoadJobDefinition(jobFilePath)
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, "/srv/market-data", definition.Repository.Path)
	require.Equal(testInstance, "origin", definition.Repository.Remote)
	require.Equal(testInstance, "advdec.py", definition.Script.Path)
	require.Equal(testInstance, "Add or update CSV files", definition.Commit.Message)
	require.Equal(testInstance, "csvsync-bot", definition.Commit.AuthorName)
	require.Equal(testInstance, "csvsync-bot@users.noreply.github.com", definition.Commit.AuthorEmail)
	require.Empty(testInstance, definition.Artifacts.Patterns)
}

func TestLoadJobDefinitionKeepsExplicitValues(testInstance *testing.T) {
	jobFilePath := writeJobFile(testInstance, `
repository:
  path: /srv/market-data
  url: https://github.com/example/market-data.git
  remote: upstream
  branch: release
script:
  path: advdec.py
  requirements: requirements.txt
  credential_env: GOOGLE_SHEETS_CREDENTIALS
artifacts:
  patterns:
    - "data/*.csv"
commit:
  message: Publish market snapshots
  author_name: data-bot
  author_email: data-bot@example.com
`)

	definition, loadError := syncjob.LoadJobDefinition(jobFilePath)
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, "upstream", definition.Repository.Remote)
	require.Equal(testInstance, "release", definition.Repository.Branch)
	require.Equal(testInstance, "https://github.com/example/market-data.git", definition.Repository.URL)
	require.Equal(testInstance, "requirements.txt", definition.Script.Requirements)
	require.Equal(testInstance, "GOOGLE_SHEETS_CREDENTIALS", definition.Script.CredentialEnvironmentVariable)
	require.Equal(testInstance, []string{"data/*.csv"}, definition.Artifacts.Patterns)
	require.Equal(testInstance, "Publish market snapshots", definition.Commit.Message)
	require.Equal(testInstance, "data-bot", definition.Commit.AuthorName)
	require.Equal(testInstance, "data-bot@example.com", definition.Commit.AuthorEmail)
}

func TestLoadJobDefinitionValidation(testInstance *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{
			name: "missing_workspace_path",
			contents: `
script:
  path: advdec.py
`,
		},
		{
			name: "missing_script_path",
			contents: `
repository:
  path: /srv/market-data
`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			jobFilePath := writeJobFile(testInstance, testCase.contents)
			_, loadError := syncjob.LoadJobDefinition(jobFilePath)
			require.Error(testInstance, loadError)
		})
	}
}

func TestLoadJobDefinitionInputErrors(testInstance *testing.T) {
	_, emptyPathError := syncjob.LoadJobDefinition("   ")
	require.Error(testInstance, emptyPathError)

	_, missingFileError := syncjob.LoadJobDefinition(filepath.Join(testInstance.TempDir(), "absent.yaml"))
	require.Error(testInstance, missingFileError)

	malformedPath := writeJobFile(testInstance, "repository: [broken")
	_, parseError := syncjob.LoadJobDefinition(malformedPath)
	require.Error(testInstance, parseError)
}
