package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/csvsync/internal/execshell"
)

const (
	gitRevParseSubcommandConstant         = "rev-parse"
	gitIsInsideWorkTreeFlagConstant       = "--is-inside-work-tree"
	gitAbbreviatedReferenceFlagConstant   = "--abbrev-ref"
	gitHeadReferenceConstant              = "HEAD"
	gitStatusSubcommandConstant           = "status"
	gitStatusPorcelainFlagConstant        = "--porcelain"
	gitRemoteSubcommandConstant           = "remote"
	gitRemoteGetURLSubcommandConstant     = "get-url"
	gitAddSubcommandConstant              = "add"
	gitAddPathspecSeparatorConstant       = "--"
	gitCommitSubcommandConstant           = "commit"
	gitCommitMessageFlagConstant          = "-m"
	gitCommitAuthorFlagConstant           = "--author"
	gitConfigOptionFlagConstant           = "-c"
	gitUserNameOptionTemplateConstant     = "user.name=%s"
	gitUserEmailOptionTemplateConstant    = "user.email=%s"
	gitCommitAuthorTemplateConstant       = "%s <%s>"
	gitPushSubcommandConstant             = "push"
	trueLiteralConstant                   = "true"
	detachedHeadLabelConstant             = "HEAD"
	nothingToCommitMarkerConstant         = "nothing to commit"

	executorNotConfiguredMessageConstant    = "repository manager requires a git executor"
	repositoryPathRequiredMessageConstant   = "repository path must be provided"
	commitMessageRequiredMessageConstant    = "commit message must be provided"
	commitIdentityRequiredMessageConstant   = "commit identity requires both name and email"
	stagedPathsRequiredMessageConstant      = "at least one path must be staged"
	detachedHeadMessageConstant             = "repository is in a detached HEAD state"
	noChangesToCommitMessageConstant        = "no staged changes to commit"
	workTreeCheckErrorTemplateConstant      = "unable to verify work tree at %s: %w"
	currentBranchErrorTemplateConstant      = "unable to resolve current branch in %s: %w"
	remoteLookupErrorTemplateConstant       = "unable to read %s remote in %s: %w"
	statusErrorTemplateConstant             = "unable to collect status in %s: %w"
	stageErrorTemplateConstant              = "unable to stage paths in %s: %w"
	commitErrorTemplateConstant             = "unable to create commit in %s: %w"
	pushErrorTemplateConstant               = "unable to push %s to %s from %s: %w"
)

// GitExecutor runs git commands on behalf of the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CommitIdentity describes the fixed author and committer applied to automated commits.
type CommitIdentity struct {
	Name  string
	Email string
}

// ErrNoChangesToCommit indicates the staged artifact set matched the committed state.
var ErrNoChangesToCommit = errors.New(noChangesToCommitMessageConstant)

// RepositoryManager performs git operations inside a repository workspace.
type RepositoryManager struct {
	gitExecutor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager around the provided executor.
func NewRepositoryManager(gitExecutor GitExecutor) (*RepositoryManager, error) {
	if gitExecutor == nil {
		return nil, errors.New(executorNotConfiguredMessageConstant)
	}
	return &RepositoryManager{gitExecutor: gitExecutor}, nil
}

// IsWorkTree reports whether the provided path is inside a git work tree.
func (manager *RepositoryManager) IsWorkTree(executionContext context.Context, repositoryPath string) (bool, error) {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return false, errors.New(repositoryPathRequiredMessageConstant)
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitIsInsideWorkTreeFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		commandFailure := execshell.CommandFailedError{}
		if errors.As(executionError, &commandFailure) {
			return false, nil
		}
		return false, fmt.Errorf(workTreeCheckErrorTemplateConstant, repositoryPath, executionError)
	}

	return strings.TrimSpace(executionResult.StandardOutput) == trueLiteralConstant, nil
}

// CurrentBranch resolves the branch the repository currently has checked out.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitAbbreviatedReferenceFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", fmt.Errorf(currentBranchErrorTemplateConstant, repositoryPath, executionError)
	}

	branchName := strings.TrimSpace(executionResult.StandardOutput)
	if branchName == detachedHeadLabelConstant {
		return "", errors.New(detachedHeadMessageConstant)
	}
	return branchName, nil
}

// RemoteURL reads the fetch URL configured for the named remote.
func (manager *RepositoryManager) RemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, remoteName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", fmt.Errorf(remoteLookupErrorTemplateConstant, remoteName, repositoryPath, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// WorkTreeStatus returns the porcelain status lines for the repository.
func (manager *RepositoryManager) WorkTreeStatus(executionContext context.Context, repositoryPath string) ([]string, error) {
	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return nil, fmt.Errorf(statusErrorTemplateConstant, repositoryPath, executionError)
	}

	trimmedOutput := strings.TrimSpace(executionResult.StandardOutput)
	if len(trimmedOutput) == 0 {
		return nil, nil
	}
	return strings.Split(trimmedOutput, "\n"), nil
}

// StagePaths stages exactly the provided repository-relative paths.
func (manager *RepositoryManager) StagePaths(executionContext context.Context, repositoryPath string, paths []string) error {
	if len(paths) == 0 {
		return errors.New(stagedPathsRequiredMessageConstant)
	}

	stageArguments := []string{gitAddSubcommandConstant, gitAddPathspecSeparatorConstant}
	stageArguments = append(stageArguments, paths...)

	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        stageArguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return fmt.Errorf(stageErrorTemplateConstant, repositoryPath, executionError)
	}
	return nil
}

// CreateCommit records a commit with the supplied message under the fixed bot identity.
//
// ErrNoChangesToCommit is returned when the staged content matches HEAD.
func (manager *RepositoryManager) CreateCommit(executionContext context.Context, repositoryPath string, commitMessage string, identity CommitIdentity) error {
	if len(strings.TrimSpace(commitMessage)) == 0 {
		return errors.New(commitMessageRequiredMessageConstant)
	}
	if len(strings.TrimSpace(identity.Name)) == 0 || len(strings.TrimSpace(identity.Email)) == 0 {
		return errors.New(commitIdentityRequiredMessageConstant)
	}

	commitArguments := []string{
		gitConfigOptionFlagConstant, fmt.Sprintf(gitUserNameOptionTemplateConstant, identity.Name),
		gitConfigOptionFlagConstant, fmt.Sprintf(gitUserEmailOptionTemplateConstant, identity.Email),
		gitCommitSubcommandConstant,
		gitCommitMessageFlagConstant, commitMessage,
		gitCommitAuthorFlagConstant, fmt.Sprintf(gitCommitAuthorTemplateConstant, identity.Name, identity.Email),
	}

	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        commitArguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		commandFailure := execshell.CommandFailedError{}
		if errors.As(executionError, &commandFailure) {
			combinedOutput := commandFailure.Result.StandardOutput + commandFailure.Result.StandardError
			if strings.Contains(combinedOutput, nothingToCommitMarkerConstant) {
				return ErrNoChangesToCommit
			}
		}
		return fmt.Errorf(commitErrorTemplateConstant, repositoryPath, executionError)
	}
	return nil
}

// Push publishes the branch to the named remote.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant, remoteName, branchName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return fmt.Errorf(pushErrorTemplateConstant, branchName, remoteName, repositoryPath, executionError)
	}
	return nil
}
