package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
)

const (
	gitStatusSubcommandNameConstant   = "status"
	gitAddSubcommandNameConstant      = "add"
	gitCommitSubcommandNameConstant   = "commit"
	gitPushSubcommandNameConstant     = "push"
	gitRevParseSubcommandNameConstant = "rev-parse"
	gitMessageFlagConstant            = "-m"
	pipInstallSubcommandNameConstant  = "install"
	pipRequirementsFlagConstant       = "-r"
)

const (
	gitStatusStartTemplateConstant               = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant             = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant             = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant    = "Unable to review working tree status in %s: %s"
	gitAddStartTemplateConstant                  = "Staging %s in %s"
	gitAddSuccessTemplateConstant                = "Staged %s in %s"
	gitAddFailureTemplateConstant                = "Failed to stage %s in %s (exit code %d%s)"
	gitAddExecutionFailureTemplateConstant       = "Unable to stage %s in %s: %s"
	gitCommitStartTemplateConstant               = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant             = "Created commit in %s with message %q"
	gitCommitFailureTemplateConstant             = "Failed to create commit in %s with message %q (exit code %d%s)"
	gitCommitExecutionFailureTemplateConstant    = "Unable to create commit in %s with message %q: %s"
	gitPushStartTemplateConstant                 = "Pushing %s to %s from %s"
	gitPushSuccessTemplateConstant               = "Pushed %s to %s from %s"
	gitPushFailureTemplateConstant               = "Failed to push %s to %s from %s (exit code %d%s)"
	gitPushExecutionFailureTemplateConstant      = "Unable to push %s to %s from %s: %s"
	pipInstallStartTemplateConstant              = "Installing Python dependencies from %s"
	pipInstallSuccessTemplateConstant            = "Installed Python dependencies from %s"
	pipInstallFailureTemplateConstant            = "Failed to install Python dependencies from %s (exit code %d%s)"
	pipInstallExecutionFailureTemplateConstant   = "Unable to install Python dependencies from %s: %s"
	pythonScriptStartTemplateConstant            = "Executing script %s in %s"
	pythonScriptSuccessTemplateConstant          = "Executed script %s in %s"
	pythonScriptFailureTemplateConstant          = "Script %s failed in %s (exit code %d%s)"
	pythonScriptExecutionFailureTemplateConstant = "Unable to execute script %s in %s: %s"
	stagedPathsFallbackLabelConstant             = "changes"
	pushDefaultReferenceLabelConstant            = "current branch"
	pipManifestFallbackLabelConstant             = "declared requirements"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle stages.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandPip:
		return formatter.describePipMessage(command, result, failure, stage)
	case CommandPython:
		return formatter.describePythonMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	subcommand := formatter.findGitSubcommand(command.Details.Arguments)
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch subcommand {
	case gitStatusSubcommandNameConstant:
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitStatusSuccessTemplateConstant, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitStatusFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(gitStatusExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	case gitAddSubcommandNameConstant:
		stagedPaths := formatter.describeStagedPaths(command.Details.Arguments)
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitAddStartTemplateConstant, stagedPaths, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitAddSuccessTemplateConstant, stagedPaths, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitAddFailureTemplateConstant, stagedPaths, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(gitAddExecutionFailureTemplateConstant, stagedPaths, workingDirectory, formatter.describeFailure(failure))
		}
	case gitCommitSubcommandNameConstant:
		commitMessage := formatter.extractCommitMessage(command.Details.Arguments)
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCommitStartTemplateConstant, workingDirectory, commitMessage)
		case messageStageSuccess:
			return fmt.Sprintf(gitCommitSuccessTemplateConstant, workingDirectory, commitMessage)
		case messageStageFailure:
			return fmt.Sprintf(gitCommitFailureTemplateConstant, workingDirectory, commitMessage, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(gitCommitExecutionFailureTemplateConstant, workingDirectory, commitMessage, formatter.describeFailure(failure))
		}
	case gitPushSubcommandNameConstant:
		remoteName, referenceName := formatter.extractPushTarget(command.Details.Arguments)
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitPushStartTemplateConstant, referenceName, remoteName, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitPushSuccessTemplateConstant, referenceName, remoteName, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitPushFailureTemplateConstant, referenceName, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(gitPushExecutionFailureTemplateConstant, referenceName, remoteName, workingDirectory, formatter.describeFailure(failure))
		}
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describePipMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	subcommand := formatter.firstNonFlagArgument(command.Details.Arguments)
	if subcommand != pipInstallSubcommandNameConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	manifestPath := findFlagValue(command.Details.Arguments, pipRequirementsFlagConstant)
	if len(manifestPath) == 0 {
		manifestPath = pipManifestFallbackLabelConstant
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(pipInstallStartTemplateConstant, manifestPath)
	case messageStageSuccess:
		return fmt.Sprintf(pipInstallSuccessTemplateConstant, manifestPath)
	case messageStageFailure:
		return fmt.Sprintf(pipInstallFailureTemplateConstant, manifestPath, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(pipInstallExecutionFailureTemplateConstant, manifestPath, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describePythonMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	scriptPath := formatter.firstNonFlagArgument(command.Details.Arguments)
	if len(scriptPath) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(pythonScriptStartTemplateConstant, scriptPath, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(pythonScriptSuccessTemplateConstant, scriptPath, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(pythonScriptFailureTemplateConstant, scriptPath, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(pythonScriptExecutionFailureTemplateConstant, scriptPath, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory))
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) describeStagedPaths(arguments []string) string {
	stagedPaths := make([]string, 0, len(arguments))
	for argumentIndex := 1; argumentIndex < len(arguments); argumentIndex++ {
		if strings.HasPrefix(arguments[argumentIndex], "-") {
			continue
		}
		stagedPaths = append(stagedPaths, arguments[argumentIndex])
	}
	if len(stagedPaths) == 0 {
		return stagedPathsFallbackLabelConstant
	}
	return strings.Join(stagedPaths, commandArgumentsJoinSeparatorConstant)
}

func (formatter CommandMessageFormatter) extractCommitMessage(arguments []string) string {
	return findFlagValue(arguments, gitMessageFlagConstant)
}

func (formatter CommandMessageFormatter) extractPushTarget(arguments []string) (string, string) {
	positionalArguments := make([]string, 0, len(arguments))
	for argumentIndex := 1; argumentIndex < len(arguments); argumentIndex++ {
		if strings.HasPrefix(arguments[argumentIndex], "-") {
			continue
		}
		positionalArguments = append(positionalArguments, arguments[argumentIndex])
	}

	remoteName := emptyStringConstant
	referenceName := pushDefaultReferenceLabelConstant
	if len(positionalArguments) > 0 {
		remoteName = positionalArguments[0]
	}
	if len(positionalArguments) > 1 {
		referenceName = positionalArguments[1]
	}
	return remoteName, referenceName
}

// findGitSubcommand scans for a recognized subcommand, skipping the values of
// leading -c options that precede it on commit invocations.
func (formatter CommandMessageFormatter) findGitSubcommand(arguments []string) string {
	recognizedSubcommands := map[string]struct{}{
		gitStatusSubcommandNameConstant:   {},
		gitAddSubcommandNameConstant:      {},
		gitCommitSubcommandNameConstant:   {},
		gitPushSubcommandNameConstant:     {},
		gitRevParseSubcommandNameConstant: {},
	}
	for _, argument := range arguments {
		if _, recognized := recognizedSubcommands[argument]; recognized {
			return argument
		}
	}
	return formatter.firstNonFlagArgument(arguments)
}

func (formatter CommandMessageFormatter) firstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		if strings.HasPrefix(argument, "-") {
			continue
		}
		return argument
	}
	return emptyStringConstant
}

func findFlagValue(arguments []string, flag string) string {
	for argumentIndex := 0; argumentIndex < len(arguments)-1; argumentIndex++ {
		if arguments[argumentIndex] == flag {
			return arguments[argumentIndex+1]
		}
	}
	return emptyStringConstant
}
