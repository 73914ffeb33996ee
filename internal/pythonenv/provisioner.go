package pythonenv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/csvsync/internal/execshell"
)

const (
	pythonVersionFlagConstant       = "--version"
	pipInstallSubcommandConstant    = "install"
	pipRequirementsFlagConstant     = "-r"
	executorRequiredMessageConstant = "python provisioner requires a shell executor"

	interpreterCheckErrorTemplateConstant    = "python interpreter unavailable: %w"
	dependencyInstallErrorTemplateConstant   = "dependency installation failed for %s: %w"
	interpreterDetectedMessageConstant       = "python interpreter detected"
	dependenciesInstalledMessageConstant     = "python dependencies installed"
	noManifestDeclaredMessageConstant        = "no dependency manifest declared; skipping installation"
	interpreterVersionFieldNameConstant      = "interpreter_version"
	dependencyManifestFieldNameConstant      = "dependency_manifest"
)

// ScriptExecutor runs Python and pip commands on behalf of the provisioner.
type ScriptExecutor interface {
	ExecutePython(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecutePip(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Provisioner verifies the interpreter and installs declared dependencies.
type Provisioner struct {
	executor ScriptExecutor
	logger   *zap.Logger
}

// NewProvisioner constructs a Provisioner around the provided executor.
func NewProvisioner(executor ScriptExecutor, logger *zap.Logger) (*Provisioner, error) {
	if executor == nil {
		return nil, errors.New(executorRequiredMessageConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{executor: executor, logger: logger}, nil
}

// Provision checks interpreter availability and installs the dependency
// manifest when one is declared. Installation failures halt the sync run.
func (provisioner *Provisioner) Provision(executionContext context.Context, workingDirectory string, manifestPath string) error {
	versionResult, versionError := provisioner.executor.ExecutePython(executionContext, execshell.CommandDetails{
		Arguments:        []string{pythonVersionFlagConstant},
		WorkingDirectory: workingDirectory,
	})
	if versionError != nil {
		return fmt.Errorf(interpreterCheckErrorTemplateConstant, versionError)
	}

	provisioner.logger.Debug(
		interpreterDetectedMessageConstant,
		zap.String(interpreterVersionFieldNameConstant, strings.TrimSpace(versionResult.StandardOutput+versionResult.StandardError)),
	)

	trimmedManifestPath := strings.TrimSpace(manifestPath)
	if len(trimmedManifestPath) == 0 {
		provisioner.logger.Debug(noManifestDeclaredMessageConstant)
		return nil
	}

	if _, installError := provisioner.executor.ExecutePip(executionContext, execshell.CommandDetails{
		Arguments:        []string{pipInstallSubcommandConstant, pipRequirementsFlagConstant, trimmedManifestPath},
		WorkingDirectory: workingDirectory,
	}); installError != nil {
		return fmt.Errorf(dependencyInstallErrorTemplateConstant, trimmedManifestPath, installError)
	}

	provisioner.logger.Info(
		dependenciesInstalledMessageConstant,
		zap.String(dependencyManifestFieldNameConstant, trimmedManifestPath),
	)
	return nil
}
