// Package sync wires the sync command that runs the CSV pipeline once.
package sync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/csvsync/internal/syncjob"
	"github.com/temirov/csvsync/internal/utils"
)

const (
	commandUseConstant                   = "sync [job-file]"
	commandShortDescriptionConstant      = "Run the CSV sync pipeline once"
	commandLongDescriptionConstant       = "sync executes the configured script, detects CSV artifacts, and commits and pushes them under the bot identity."
	jobFlagNameConstant                  = "job"
	jobFlagDescriptionConstant           = "Path to the sync job definition (YAML)"
	dryRunFlagNameConstant               = "dry-run"
	dryRunFlagDescriptionConstant        = "Preview the commit without touching the repository"
	jobFilePathRequiredMessageConstant   = "sync job definition required; provide a positional argument, --job flag, or configuration"
	jobDefinitionErrorTemplateConstant   = "unable to load sync job definition: %w"
	serviceAssemblyErrorTemplateConstant = "unable to assemble sync service: %w"
	cleanupFailureMessageConstant        = "unable to release sync resources"
)

// LoggerProvider supplies the zap logger configured by the root command.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	command.Flags().String(jobFlagNameConstant, "", jobFlagDescriptionConstant)
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	jobFilePath := resolveJobFilePath(command, arguments, configuration)
	if len(jobFilePath) == 0 {
		return errors.New(jobFilePathRequiredMessageConstant)
	}

	jobDefinition, jobError := syncjob.LoadJobDefinition(jobFilePath)
	if jobError != nil {
		return fmt.Errorf(jobDefinitionErrorTemplateConstant, jobError)
	}

	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	service, cleanup, assemblyError := syncjob.AssembleService(command.Context(), syncjob.AssemblyOptions{
		Logger:               logger,
		HumanReadableLogging: humanReadableLogging,
		Job:                  jobDefinition,
		LedgerPath:           configuration.LedgerPath,
		EventLogPath:         configuration.EventLogPath,
		Output:               utils.NewFlushingWriter(command.OutOrStdout()),
	})
	if assemblyError != nil {
		return fmt.Errorf(serviceAssemblyErrorTemplateConstant, assemblyError)
	}
	defer func() {
		if cleanupError := cleanup(); cleanupError != nil {
			logger.Warn(cleanupFailureMessageConstant, zap.Error(cleanupError))
		}
	}()

	dryRun := configuration.DryRun
	if command.Flags().Changed(dryRunFlagNameConstant) {
		dryRun, _ = command.Flags().GetBool(dryRunFlagNameConstant)
	}

	_, runError := service.Run(command.Context(), jobDefinition, syncjob.RuntimeOptions{DryRun: dryRun})
	return runError
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveJobFilePath(command *cobra.Command, arguments []string, configuration CommandConfiguration) string {
	if len(arguments) > 0 {
		return strings.TrimSpace(arguments[0])
	}

	if command.Flags().Changed(jobFlagNameConstant) {
		flagValue, _ := command.Flags().GetString(jobFlagNameConstant)
		return strings.TrimSpace(flagValue)
	}

	contextAccessor := utils.NewCommandContextAccessor()
	if jobFilePath, jobFilePathAvailable := contextAccessor.JobFilePath(command.Context()); jobFilePathAvailable {
		trimmedPath := strings.TrimSpace(jobFilePath)
		if len(trimmedPath) > 0 {
			return trimmedPath
		}
	}

	return configuration.JobFile
}
