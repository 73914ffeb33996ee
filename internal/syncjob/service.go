package syncjob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/csvsync/internal/execshell"
	"github.com/temirov/csvsync/internal/gitrepo"
	"github.com/temirov/csvsync/internal/history"
)

// RunStage identifies the pipeline step a run failed in.
type RunStage string

// Pipeline stages recorded in the ledger and event log.
const (
	RunStageWorkspace RunStage = RunStage("workspace")
	RunStageProvision RunStage = RunStage("provision")
	RunStageScript    RunStage = RunStage("script")
	RunStageScan      RunStage = RunStage("scan")
	RunStageStage     RunStage = RunStage("stage")
	RunStageCommit    RunStage = RunStage("commit")
	RunStagePush      RunStage = RunStage("push")
	RunStageFinished  RunStage = RunStage("finished")
)

const (
	noArtifactsMessageConstant             = "No CSV files found. No changes to commit."
	noContentChangesMessageConstant        = "CSV files unchanged. No changes to commit."
	artifactsCommittedTemplateConstant     = "Committed %d CSV file(s).\n"
	dryRunSummaryTemplateConstant          = "Dry run: would commit %d CSV file(s): %s\n"
	dryRunPathSeparatorConstant            = ", "
	informationalMessageSuffixConstant     = "\n"
	workspaceMissingRemoteMessageConstant  = "workspace does not exist and the job definition names no repository url"
	workspaceNotRepositoryTemplateConstant = "workspace %s is not a git repository"
	runStageFailureTemplateConstant        = "%s stage failed: %w"

	runStartedMessageConstant         = "sync run started"
	runFinishedMessageConstant        = "sync run finished"
	runFailedMessageConstant          = "sync run failed"
	credentialMissingMessageConstant  = "credential environment variable is not set; script may fail"
	workspaceClonedMessageConstant    = "workspace cloned"
	artifactsDetectedMessageConstant  = "csv artifacts detected"
	runRecordErrorMessageConstant     = "unable to record run outcome"
	eventEmitErrorMessageConstant     = "unable to append run event"

	logFieldRunIdentifierConstant = "run_id"
	logFieldRepositoryConstant    = "repository"
	logFieldBranchConstant        = "branch"
	logFieldStageConstant         = "stage"
	logFieldArtifactCountConstant = "artifact_count"
	logFieldArtifactPathsConstant = "artifact_paths"
	logFieldCommitHashConstant    = "commit_hash"
	logFieldCredentialConstant    = "credential_env"
	logFieldWorkspaceConstant     = "workspace"
)

// RepositoryService performs git operations inside the workspace.
type RepositoryService interface {
	IsWorkTree(executionContext context.Context, repositoryPath string) (bool, error)
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	RemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
	StagePaths(executionContext context.Context, repositoryPath string, paths []string) error
	CreateCommit(executionContext context.Context, repositoryPath string, commitMessage string, identity gitrepo.CommitIdentity) error
	Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
}

// ScriptExecutor runs the external data-producing script.
type ScriptExecutor interface {
	ExecutePython(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// EnvironmentProvisioner prepares the script runtime before execution.
type EnvironmentProvisioner interface {
	Provision(executionContext context.Context, workingDirectory string, manifestPath string) error
}

// ArtifactScanner enumerates artifact paths beneath the workspace root.
type ArtifactScanner interface {
	Scan(rootDirectory string) ([]string, error)
}

// RunRecorder persists run outcomes.
type RunRecorder interface {
	RecordRun(executionContext context.Context, record history.RunRecord) error
}

// EventEmitter appends pipeline lifecycle events.
type EventEmitter interface {
	Emit(event history.Event) error
}

// ClonerFunc clones the repository when the workspace does not exist yet.
type ClonerFunc func(executionContext context.Context, options gitrepo.CloneOptions) error

// HeadResolverFunc reports the workspace HEAD commit hash.
type HeadResolverFunc func(repositoryPath string) (string, error)

// CredentialResolverFunc resolves the credential value exported to the script.
type CredentialResolverFunc func(variableName string) string

// Dependencies configures collaborators for the sync service.
type Dependencies struct {
	Logger             *zap.Logger
	Repository         RepositoryService
	ScriptExecutor     ScriptExecutor
	Provisioner        EnvironmentProvisioner
	Scanner            ArtifactScanner
	Recorder           RunRecorder
	Events             EventEmitter
	Cloner             ClonerFunc
	HeadResolver       HeadResolverFunc
	CredentialResolver CredentialResolverFunc
	Output             io.Writer
	Clock              func() time.Time
}

// RuntimeOptions captures user-provided execution modifiers.
type RuntimeOptions struct {
	DryRun bool
}

// RunResult summarizes a completed pipeline execution.
type RunResult struct {
	RunIdentifier string
	Status        history.RunStatus
	ArtifactPaths []string
	CommitHash    string
	DryRun        bool
}

// Service executes sync runs.
type Service struct {
	dependencies Dependencies
}

const (
	serviceRepositoryRequiredMessageConstant = "sync service requires a repository service"
	serviceExecutorRequiredMessageConstant   = "sync service requires a script executor"
	serviceScannerRequiredMessageConstant    = "sync service requires an artifact scanner"
)

// NewService constructs a Service, applying default collaborators where omitted.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, errors.New(serviceRepositoryRequiredMessageConstant)
	}
	if dependencies.ScriptExecutor == nil {
		return nil, errors.New(serviceExecutorRequiredMessageConstant)
	}
	if dependencies.Scanner == nil {
		return nil, errors.New(serviceScannerRequiredMessageConstant)
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Cloner == nil {
		dependencies.Cloner = gitrepo.CloneRepository
	}
	if dependencies.HeadResolver == nil {
		dependencies.HeadResolver = gitrepo.HeadCommitHash
	}
	if dependencies.CredentialResolver == nil {
		dependencies.CredentialResolver = os.Getenv
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Clock == nil {
		dependencies.Clock = time.Now
	}
	return &Service{dependencies: dependencies}, nil
}

// Run executes one pipeline pass for the provided job definition.
//
// Failures are fail-fast: the failing stage is recorded and no later stage
// runs. A push failure after a local commit is reported as a failed run with
// the commit hash retained in the ledger.
func (service *Service) Run(executionContext context.Context, job JobDefinition, runtimeOptions RuntimeOptions) (RunResult, error) {
	runIdentifier := uuid.NewString()
	startedAt := service.dependencies.Clock()

	service.dependencies.Logger.Info(
		runStartedMessageConstant,
		zap.String(logFieldRunIdentifierConstant, runIdentifier),
		zap.String(logFieldWorkspaceConstant, job.Repository.Path),
	)
	service.emitEvent(runIdentifier, RunStageWorkspace, "")

	runState := runState{
		runIdentifier: runIdentifier,
		startedAt:     startedAt,
		branch:        job.Repository.Branch,
	}

	if workspaceError := service.ensureWorkspace(executionContext, job, &runState); workspaceError != nil {
		return service.failRun(executionContext, job, runState, RunStageWorkspace, workspaceError)
	}

	if provisionError := service.provision(executionContext, job); provisionError != nil {
		return service.failRun(executionContext, job, runState, RunStageProvision, provisionError)
	}

	if scriptError := service.executeScript(executionContext, job, runIdentifier); scriptError != nil {
		return service.failRun(executionContext, job, runState, RunStageScript, scriptError)
	}

	artifactPaths, scanError := service.dependencies.Scanner.Scan(job.Repository.Path)
	if scanError != nil {
		return service.failRun(executionContext, job, runState, RunStageScan, scanError)
	}
	runState.artifactPaths = artifactPaths

	if len(artifactPaths) == 0 {
		return service.finishWithoutCommit(executionContext, job, runState, noArtifactsMessageConstant)
	}

	service.dependencies.Logger.Info(
		artifactsDetectedMessageConstant,
		zap.String(logFieldRunIdentifierConstant, runIdentifier),
		zap.Int(logFieldArtifactCountConstant, len(artifactPaths)),
		zap.Strings(logFieldArtifactPathsConstant, artifactPaths),
	)

	if runtimeOptions.DryRun {
		fmt.Fprintf(service.dependencies.Output, dryRunSummaryTemplateConstant, len(artifactPaths), strings.Join(artifactPaths, dryRunPathSeparatorConstant))
		return RunResult{
			RunIdentifier: runIdentifier,
			Status:        history.RunStatusSucceeded,
			ArtifactPaths: artifactPaths,
			DryRun:        true,
		}, nil
	}

	if stageError := service.dependencies.Repository.StagePaths(executionContext, job.Repository.Path, artifactPaths); stageError != nil {
		return service.failRun(executionContext, job, runState, RunStageStage, stageError)
	}

	identity := gitrepo.CommitIdentity{Name: job.Commit.AuthorName, Email: job.Commit.AuthorEmail}
	commitError := service.dependencies.Repository.CreateCommit(executionContext, job.Repository.Path, job.Commit.Message, identity)
	if commitError != nil {
		if errors.Is(commitError, gitrepo.ErrNoChangesToCommit) {
			return service.finishWithoutCommit(executionContext, job, runState, noContentChangesMessageConstant)
		}
		return service.failRun(executionContext, job, runState, RunStageCommit, commitError)
	}

	if commitHash, headError := service.dependencies.HeadResolver(job.Repository.Path); headError == nil {
		runState.commitHash = commitHash
	}

	if pushError := service.dependencies.Repository.Push(executionContext, job.Repository.Path, job.Repository.Remote, runState.branch); pushError != nil {
		return service.failRun(executionContext, job, runState, RunStagePush, pushError)
	}

	fmt.Fprintf(service.dependencies.Output, artifactsCommittedTemplateConstant, len(artifactPaths))

	finishedAt := service.dependencies.Clock()
	record := history.RunRecord{
		RunIdentifier: runIdentifier,
		Repository:    runState.repositoryIdentifier,
		Branch:        runState.branch,
		Status:        history.RunStatusSucceeded,
		ArtifactCount: len(artifactPaths),
		CommitHash:    runState.commitHash,
		StartedAt:     runState.startedAt,
		FinishedAt:    finishedAt,
	}
	service.recordRun(executionContext, record)
	service.emitEvent(runIdentifier, RunStageFinished, string(history.RunStatusSucceeded))

	service.dependencies.Logger.Info(
		runFinishedMessageConstant,
		zap.String(logFieldRunIdentifierConstant, runIdentifier),
		zap.String(logFieldBranchConstant, runState.branch),
		zap.Int(logFieldArtifactCountConstant, len(artifactPaths)),
		zap.String(logFieldCommitHashConstant, runState.commitHash),
	)

	return RunResult{
		RunIdentifier: runIdentifier,
		Status:        history.RunStatusSucceeded,
		ArtifactPaths: artifactPaths,
		CommitHash:    runState.commitHash,
	}, nil
}

type runState struct {
	runIdentifier        string
	startedAt            time.Time
	branch               string
	repositoryIdentifier string
	commitHash           string
	artifactPaths        []string
}

func (service *Service) ensureWorkspace(executionContext context.Context, job JobDefinition, state *runState) error {
	workspaceExists := true
	if _, statError := os.Stat(job.Repository.Path); statError != nil {
		if !os.IsNotExist(statError) {
			return statError
		}
		workspaceExists = false
	}

	if !workspaceExists {
		if len(strings.TrimSpace(job.Repository.URL)) == 0 {
			return errors.New(workspaceMissingRemoteMessageConstant)
		}
		cloneOptions := gitrepo.CloneOptions{
			RemoteURL:       job.Repository.URL,
			TargetDirectory: job.Repository.Path,
			BranchName:      job.Repository.Branch,
		}
		if cloneError := service.dependencies.Cloner(executionContext, cloneOptions); cloneError != nil {
			return cloneError
		}
		service.dependencies.Logger.Info(
			workspaceClonedMessageConstant,
			zap.String(logFieldRunIdentifierConstant, state.runIdentifier),
			zap.String(logFieldWorkspaceConstant, job.Repository.Path),
		)
	}

	isWorkTree, workTreeError := service.dependencies.Repository.IsWorkTree(executionContext, job.Repository.Path)
	if workTreeError != nil {
		return workTreeError
	}
	if !isWorkTree {
		return fmt.Errorf(workspaceNotRepositoryTemplateConstant, job.Repository.Path)
	}

	if len(strings.TrimSpace(state.branch)) == 0 {
		currentBranch, branchError := service.dependencies.Repository.CurrentBranch(executionContext, job.Repository.Path)
		if branchError != nil {
			return branchError
		}
		state.branch = currentBranch
	}

	state.repositoryIdentifier = service.resolveRepositoryIdentifier(executionContext, job)
	return nil
}

func (service *Service) resolveRepositoryIdentifier(executionContext context.Context, job JobDefinition) string {
	remoteURL, remoteError := service.dependencies.Repository.RemoteURL(executionContext, job.Repository.Path, job.Repository.Remote)
	if remoteError != nil {
		return job.Repository.Path
	}
	parsedRemote, parseError := gitrepo.ParseRemoteURL(remoteURL)
	if parseError != nil {
		return remoteURL
	}
	return parsedRemote.Identifier()
}

func (service *Service) provision(executionContext context.Context, job JobDefinition) error {
	if service.dependencies.Provisioner == nil {
		return nil
	}
	return service.dependencies.Provisioner.Provision(executionContext, job.Repository.Path, job.Script.Requirements)
}

func (service *Service) executeScript(executionContext context.Context, job JobDefinition, runIdentifier string) error {
	environmentVariables := map[string]string{}
	credentialVariable := strings.TrimSpace(job.Script.CredentialEnvironmentVariable)
	if len(credentialVariable) > 0 {
		credentialValue := service.dependencies.CredentialResolver(credentialVariable)
		if len(credentialValue) == 0 {
			service.dependencies.Logger.Warn(
				credentialMissingMessageConstant,
				zap.String(logFieldRunIdentifierConstant, runIdentifier),
				zap.String(logFieldCredentialConstant, credentialVariable),
			)
		}
		environmentVariables[credentialVariable] = credentialValue
	}

	_, scriptError := service.dependencies.ScriptExecutor.ExecutePython(executionContext, execshell.CommandDetails{
		Arguments:            []string{job.Script.Path},
		WorkingDirectory:     job.Repository.Path,
		EnvironmentVariables: environmentVariables,
	})
	return scriptError
}

func (service *Service) finishWithoutCommit(executionContext context.Context, job JobDefinition, state runState, message string) (RunResult, error) {
	fmt.Fprint(service.dependencies.Output, message+informationalMessageSuffixConstant)
	service.dependencies.Logger.Info(
		message,
		zap.String(logFieldRunIdentifierConstant, state.runIdentifier),
		zap.String(logFieldRepositoryConstant, state.repositoryIdentifier),
	)

	record := history.RunRecord{
		RunIdentifier: state.runIdentifier,
		Repository:    state.repositoryIdentifier,
		Branch:        state.branch,
		Status:        history.RunStatusNoChanges,
		ArtifactCount: len(state.artifactPaths),
		StartedAt:     state.startedAt,
		FinishedAt:    service.dependencies.Clock(),
	}
	service.recordRun(executionContext, record)
	service.emitEvent(state.runIdentifier, RunStageFinished, string(history.RunStatusNoChanges))

	return RunResult{
		RunIdentifier: state.runIdentifier,
		Status:        history.RunStatusNoChanges,
		ArtifactPaths: state.artifactPaths,
	}, nil
}

func (service *Service) failRun(executionContext context.Context, job JobDefinition, state runState, stage RunStage, failure error) (RunResult, error) {
	service.dependencies.Logger.Error(
		runFailedMessageConstant,
		zap.String(logFieldRunIdentifierConstant, state.runIdentifier),
		zap.String(logFieldStageConstant, string(stage)),
		zap.Error(failure),
	)

	record := history.RunRecord{
		RunIdentifier: state.runIdentifier,
		Repository:    state.repositoryIdentifier,
		Branch:        state.branch,
		Status:        history.RunStatusFailed,
		ArtifactCount: len(state.artifactPaths),
		CommitHash:    state.commitHash,
		FailureStage:  string(stage),
		StartedAt:     state.startedAt,
		FinishedAt:    service.dependencies.Clock(),
	}
	service.recordRun(executionContext, record)
	service.emitEvent(state.runIdentifier, stage, failure.Error())

	return RunResult{RunIdentifier: state.runIdentifier, Status: history.RunStatusFailed}, fmt.Errorf(runStageFailureTemplateConstant, stage, failure)
}

func (service *Service) recordRun(executionContext context.Context, record history.RunRecord) {
	if service.dependencies.Recorder == nil {
		return
	}
	if recordError := service.dependencies.Recorder.RecordRun(executionContext, record); recordError != nil {
		service.dependencies.Logger.Warn(runRecordErrorMessageConstant, zap.Error(recordError))
	}
}

func (service *Service) emitEvent(runIdentifier string, stage RunStage, message string) {
	if service.dependencies.Events == nil {
		return
	}
	event := history.Event{RunIdentifier: runIdentifier, Stage: string(stage), Message: message}
	if emitError := service.dependencies.Events.Emit(event); emitError != nil {
		service.dependencies.Logger.Warn(eventEmitErrorMessageConstant, zap.Error(emitError))
	}
}
