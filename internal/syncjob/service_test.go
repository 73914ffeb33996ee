package syncjob_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/csvsync/internal/execshell"
	"github.com/temirov/csvsync/internal/gitrepo"
	"github.com/temirov/csvsync/internal/history"
	"github.com/temirov/csvsync/internal/syncjob"
)

const (
	testBranchNameConstant           = "main"
	testRemoteNameConstant           = "origin"
	testRemoteURLConstant            = "git@github.com:example/market-data.git"
	testRepositoryIdentifierConstant = "example/market-data"
	testScriptPathConstant           = "advdec.py"
	testCredentialVariableConstant   = "GOOGLE_SHEETS_CREDENTIALS"
	testCredentialValueConstant      = "service-account-json"
	testCommitHashConstant           = "0123456789abcdef0123456789abcdef01234567"
	testNoArtifactsOutputConstant    = "No CSV files found. No changes to commit.\n"
	testUnchangedOutputConstant      = "CSV files unchanged. No changes to commit.\n"
	testCommittedOutputConstant      = "Committed 2 CSV file(s).\n"
)

type commitRequest struct {
	message  string
	identity gitrepo.CommitIdentity
}

type pushRequest struct {
	remoteName string
	branchName string
}

type stubRepository struct {
	isWorkTree    bool
	workTreeError error
	currentBranch string
	branchError   error
	remoteURL     string
	remoteError   error
	stageError    error
	commitError   error
	pushError     error

	stagedPaths    [][]string
	commitRequests []commitRequest
	pushRequests   []pushRequest
}

func (repository *stubRepository) IsWorkTree(executionContext context.Context, repositoryPath string) (bool, error) {
	return repository.isWorkTree, repository.workTreeError
}

func (repository *stubRepository) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	return repository.currentBranch, repository.branchError
}

func (repository *stubRepository) RemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	return repository.remoteURL, repository.remoteError
}

func (repository *stubRepository) StagePaths(executionContext context.Context, repositoryPath string, paths []string) error {
	repository.stagedPaths = append(repository.stagedPaths, paths)
	return repository.stageError
}

func (repository *stubRepository) CreateCommit(executionContext context.Context, repositoryPath string, commitMessage string, identity gitrepo.CommitIdentity) error {
	repository.commitRequests = append(repository.commitRequests, commitRequest{message: commitMessage, identity: identity})
	return repository.commitError
}

func (repository *stubRepository) Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	repository.pushRequests = append(repository.pushRequests, pushRequest{remoteName: remoteName, branchName: branchName})
	return repository.pushError
}

type stubScriptExecutor struct {
	scriptError   error
	executedCalls []execshell.CommandDetails
}

func (executor *stubScriptExecutor) ExecutePython(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.executedCalls = append(executor.executedCalls, details)
	return execshell.ExecutionResult{}, executor.scriptError
}

type stubProvisioner struct {
	provisionError error
	provisionCalls int
}

func (provisioner *stubProvisioner) Provision(executionContext context.Context, workingDirectory string, manifestPath string) error {
	provisioner.provisionCalls++
	return provisioner.provisionError
}

type stubScanner struct {
	artifactPaths []string
	scanError     error
}

func (scanner *stubScanner) Scan(rootDirectory string) ([]string, error) {
	return scanner.artifactPaths, scanner.scanError
}

type recordingRunRecorder struct {
	records []history.RunRecord
}

func (recorder *recordingRunRecorder) RecordRun(executionContext context.Context, record history.RunRecord) error {
	recorder.records = append(recorder.records, record)
	return nil
}

type recordingEventEmitter struct {
	events []history.Event
}

func (emitter *recordingEventEmitter) Emit(event history.Event) error {
	emitter.events = append(emitter.events, event)
	return nil
}

type serviceFixture struct {
	repository *stubRepository
	executor   *stubScriptExecutor
	scanner    *stubScanner
	recorder   *recordingRunRecorder
	emitter    *recordingEventEmitter
	output     *bytes.Buffer
	job        syncjob.JobDefinition
}

func newServiceFixture(testInstance *testing.T, artifactPaths []string) *serviceFixture {
	testInstance.Helper()

	return &serviceFixture{
		repository: &stubRepository{
			isWorkTree:    true,
			currentBranch: testBranchNameConstant,
			remoteURL:     testRemoteURLConstant,
		},
		executor: &stubScriptExecutor{},
		scanner:  &stubScanner{artifactPaths: artifactPaths},
		recorder: &recordingRunRecorder{},
		emitter:  &recordingEventEmitter{},
		output:   &bytes.Buffer{},
		job: syncjob.JobDefinition{
			Repository: syncjob.RepositoryDefinition{
				Path:   testInstance.TempDir(),
				Remote: testRemoteNameConstant,
				Branch: testBranchNameConstant,
			},
			Script: syncjob.ScriptDefinition{
				Path:                          testScriptPathConstant,
				CredentialEnvironmentVariable: testCredentialVariableConstant,
			},
			Commit: syncjob.CommitDefinition{
				Message:     "Add or update CSV files",
				AuthorName:  "csvsync-bot",
				AuthorEmail: "csvsync-bot@users.noreply.github.com",
			},
		},
	}
}

func (fixture *serviceFixture) buildService(testInstance *testing.T) *syncjob.Service {
	testInstance.Helper()

	service, creationError := syncjob.NewService(syncjob.Dependencies{
		Logger:         zap.NewNop(),
		Repository:     fixture.repository,
		ScriptExecutor: fixture.executor,
		Scanner:        fixture.scanner,
		Recorder:       fixture.recorder,
		Events:         fixture.emitter,
		HeadResolver: func(repositoryPath string) (string, error) {
			return testCommitHashConstant, nil
		},
		CredentialResolver: func(variableName string) string {
			if variableName == testCredentialVariableConstant {
				return testCredentialValueConstant
			}
			return ""
		},
		Output: fixture.output,
	})
	require.NoError(testInstance, creationError)
	return service
}

func TestServiceRequiresCoreCollaborators(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)

	_, missingRepositoryError := syncjob.NewService(syncjob.Dependencies{ScriptExecutor: fixture.executor, Scanner: fixture.scanner})
	require.Error(testInstance, missingRepositoryError)

	_, missingExecutorError := syncjob.NewService(syncjob.Dependencies{Repository: fixture.repository, Scanner: fixture.scanner})
	require.Error(testInstance, missingExecutorError)

	_, missingScannerError := syncjob.NewService(syncjob.Dependencies{Repository: fixture.repository, ScriptExecutor: fixture.executor})
	require.Error(testInstance, missingScannerError)
}

func TestServiceRunWithoutArtifacts(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)
	service := fixture.buildService(testInstance)

	runResult, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, history.RunStatusNoChanges, runResult.Status)
	require.Empty(testInstance, runResult.ArtifactPaths)

	require.Equal(testInstance, testNoArtifactsOutputConstant, fixture.output.String())
	require.Empty(testInstance, fixture.repository.stagedPaths)
	require.Empty(testInstance, fixture.repository.commitRequests)
	require.Empty(testInstance, fixture.repository.pushRequests)

	require.Len(testInstance, fixture.recorder.records, 1)
	require.Equal(testInstance, history.RunStatusNoChanges, fixture.recorder.records[0].Status)
	require.Equal(testInstance, testRepositoryIdentifierConstant, fixture.recorder.records[0].Repository)
}

func TestServiceRunCommitsAndPushesArtifacts(testInstance *testing.T) {
	artifactPaths := []string{"Adv_Dec.csv", "data/Most_Active.csv"}
	fixture := newServiceFixture(testInstance, artifactPaths)
	service := fixture.buildService(testInstance)

	runResult, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, history.RunStatusSucceeded, runResult.Status)
	require.Equal(testInstance, artifactPaths, runResult.ArtifactPaths)
	require.Equal(testInstance, testCommitHashConstant, runResult.CommitHash)

	require.Equal(testInstance, testCommittedOutputConstant, fixture.output.String())

	require.Len(testInstance, fixture.repository.stagedPaths, 1)
	require.Equal(testInstance, artifactPaths, fixture.repository.stagedPaths[0])

	require.Len(testInstance, fixture.repository.commitRequests, 1)
	require.Equal(testInstance, fixture.job.Commit.Message, fixture.repository.commitRequests[0].message)
	require.Equal(testInstance, fixture.job.Commit.AuthorName, fixture.repository.commitRequests[0].identity.Name)
	require.Equal(testInstance, fixture.job.Commit.AuthorEmail, fixture.repository.commitRequests[0].identity.Email)

	require.Len(testInstance, fixture.repository.pushRequests, 1)
	require.Equal(testInstance, testRemoteNameConstant, fixture.repository.pushRequests[0].remoteName)
	require.Equal(testInstance, testBranchNameConstant, fixture.repository.pushRequests[0].branchName)

	require.Len(testInstance, fixture.recorder.records, 1)
	require.Equal(testInstance, history.RunStatusSucceeded, fixture.recorder.records[0].Status)
	require.Equal(testInstance, 2, fixture.recorder.records[0].ArtifactCount)
	require.Equal(testInstance, testCommitHashConstant, fixture.recorder.records[0].CommitHash)

	require.Len(testInstance, fixture.executor.executedCalls, 1)
	require.Equal(testInstance, []string{testScriptPathConstant}, fixture.executor.executedCalls[0].Arguments)
	require.Equal(testInstance, testCredentialValueConstant, fixture.executor.executedCalls[0].EnvironmentVariables[testCredentialVariableConstant])
}

func TestServiceRunScriptFailureSkipsGitMutations(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"Adv_Dec.csv"})
	fixture.executor.scriptError = errors.New("script exploded")
	service := fixture.buildService(testInstance)

	runResult, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "script stage failed")
	require.Equal(testInstance, history.RunStatusFailed, runResult.Status)

	require.Empty(testInstance, fixture.repository.stagedPaths)
	require.Empty(testInstance, fixture.repository.commitRequests)
	require.Empty(testInstance, fixture.repository.pushRequests)

	require.Len(testInstance, fixture.recorder.records, 1)
	require.Equal(testInstance, history.RunStatusFailed, fixture.recorder.records[0].Status)
	require.Equal(testInstance, "script", fixture.recorder.records[0].FailureStage)
}

func TestServiceRunTreatsUnchangedContentAsNoChanges(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"Adv_Dec.csv"})
	fixture.repository.commitError = gitrepo.ErrNoChangesToCommit
	service := fixture.buildService(testInstance)

	runResult, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, history.RunStatusNoChanges, runResult.Status)

	require.Equal(testInstance, testUnchangedOutputConstant, fixture.output.String())
	require.Empty(testInstance, fixture.repository.pushRequests)

	require.Len(testInstance, fixture.recorder.records, 1)
	require.Equal(testInstance, history.RunStatusNoChanges, fixture.recorder.records[0].Status)
	require.Equal(testInstance, 1, fixture.recorder.records[0].ArtifactCount)
}

func TestServiceRunDryRunLeavesRepositoryUntouched(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"Adv_Dec.csv", "data/Most_Active.csv"})
	service := fixture.buildService(testInstance)

	runResult, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{DryRun: true})
	require.NoError(testInstance, runError)
	require.True(testInstance, runResult.DryRun)
	require.Equal(testInstance, history.RunStatusSucceeded, runResult.Status)

	require.Contains(testInstance, fixture.output.String(), "Dry run: would commit 2 CSV file(s)")
	require.Contains(testInstance, fixture.output.String(), "Adv_Dec.csv, data/Most_Active.csv")

	require.Empty(testInstance, fixture.repository.stagedPaths)
	require.Empty(testInstance, fixture.repository.commitRequests)
	require.Empty(testInstance, fixture.repository.pushRequests)
	require.Empty(testInstance, fixture.recorder.records)
}

func TestServiceRunPushFailureRetainsCommitHash(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"Adv_Dec.csv"})
	fixture.repository.pushError = errors.New("non-fast-forward")
	service := fixture.buildService(testInstance)

	_, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "push stage failed")

	require.Len(testInstance, fixture.recorder.records, 1)
	require.Equal(testInstance, history.RunStatusFailed, fixture.recorder.records[0].Status)
	require.Equal(testInstance, "push", fixture.recorder.records[0].FailureStage)
	require.Equal(testInstance, testCommitHashConstant, fixture.recorder.records[0].CommitHash)
}

func TestServiceRunClonesMissingWorkspace(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)
	fixture.job.Repository.Path = fixture.job.Repository.Path + "/missing"
	fixture.job.Repository.URL = "https://github.com/example/market-data.git"

	cloneRequests := make([]gitrepo.CloneOptions, 0, 1)
	service, creationError := syncjob.NewService(syncjob.Dependencies{
		Logger:         zap.NewNop(),
		Repository:     fixture.repository,
		ScriptExecutor: fixture.executor,
		Scanner:        fixture.scanner,
		Recorder:       fixture.recorder,
		Cloner: func(executionContext context.Context, options gitrepo.CloneOptions) error {
			cloneRequests = append(cloneRequests, options)
			return nil
		},
		HeadResolver: func(repositoryPath string) (string, error) {
			return testCommitHashConstant, nil
		},
		Output: fixture.output,
	})
	require.NoError(testInstance, creationError)

	_, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.NoError(testInstance, runError)
	require.Len(testInstance, cloneRequests, 1)
	require.Equal(testInstance, fixture.job.Repository.URL, cloneRequests[0].RemoteURL)
	require.Equal(testInstance, fixture.job.Repository.Path, cloneRequests[0].TargetDirectory)
	require.Equal(testInstance, testBranchNameConstant, cloneRequests[0].BranchName)
}

func TestServiceRunFailsForMissingWorkspaceWithoutRemote(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)
	fixture.job.Repository.Path = fixture.job.Repository.Path + "/missing"
	fixture.job.Repository.URL = ""
	service := fixture.buildService(testInstance)

	_, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "workspace stage failed")

	require.Len(testInstance, fixture.recorder.records, 1)
	require.Equal(testInstance, "workspace", fixture.recorder.records[0].FailureStage)
}

func TestServiceRunResolvesBranchWhenJobOmitsIt(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"Adv_Dec.csv"})
	fixture.job.Repository.Branch = ""
	fixture.repository.currentBranch = "release"
	service := fixture.buildService(testInstance)

	_, runError := service.Run(context.Background(), fixture.job, syncjob.RuntimeOptions{})
	require.NoError(testInstance, runError)
	require.Len(testInstance, fixture.repository.pushRequests, 1)
	require.Equal(testInstance, "release", fixture.repository.pushRequests[0].branchName)
}
