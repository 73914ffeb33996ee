// Package schedule wires the schedule command that runs the CSV pipeline on a fixed interval.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/csvsync/internal/syncjob"
	"github.com/temirov/csvsync/internal/utils"
)

const (
	commandUseConstant                   = "schedule [job-file]"
	commandShortDescriptionConstant      = "Run the CSV sync pipeline on a fixed interval"
	commandLongDescriptionConstant       = "schedule repeats the sync pipeline every interval until interrupted, skipping ticks while a run is in flight."
	jobFlagNameConstant                  = "job"
	jobFlagDescriptionConstant           = "Path to the sync job definition (YAML)"
	intervalFlagNameConstant             = "interval"
	intervalFlagDescriptionConstant      = "Delay between pipeline runs"
	immediateFlagNameConstant            = "immediate"
	immediateFlagDescriptionConstant     = "Run the pipeline once before waiting for the first tick"
	jobFilePathRequiredMessageConstant   = "sync job definition required; provide a positional argument, --job flag, or configuration"
	invalidIntervalMessageConstant       = "interval must be greater than zero"
	jobDefinitionErrorTemplateConstant   = "unable to load sync job definition: %w"
	serviceAssemblyErrorTemplateConstant = "unable to assemble sync service: %w"
	cleanupFailureMessageConstant        = "unable to release schedule resources"
	scheduleStartedMessageConstant       = "schedule started"
	scheduleStoppedMessageConstant       = "schedule stopped"
	runFailedMessageConstant             = "scheduled run failed"
	logFieldIntervalConstant             = "interval"
	logFieldJobFileConstant              = "job_file"
)

// LoggerProvider supplies the zap logger configured by the root command.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the schedule command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the schedule command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	command.Flags().String(jobFlagNameConstant, "", jobFlagDescriptionConstant)
	command.Flags().Duration(intervalFlagNameConstant, 0, intervalFlagDescriptionConstant)
	command.Flags().Bool(immediateFlagNameConstant, false, immediateFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	jobFilePath := resolveJobFilePath(command, arguments, configuration)
	if len(jobFilePath) == 0 {
		return errors.New(jobFilePathRequiredMessageConstant)
	}

	interval := configuration.Interval
	if command.Flags().Changed(intervalFlagNameConstant) {
		interval, _ = command.Flags().GetDuration(intervalFlagNameConstant)
	}
	if interval <= 0 {
		return errors.New(invalidIntervalMessageConstant)
	}

	runImmediately := configuration.RunImmediately
	if command.Flags().Changed(immediateFlagNameConstant) {
		runImmediately, _ = command.Flags().GetBool(immediateFlagNameConstant)
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

	logger.Info(
		scheduleStartedMessageConstant,
		zap.Duration(logFieldIntervalConstant, interval),
		zap.String(logFieldJobFileConstant, jobFilePath),
	)

	signalContext, stopSignalHandling := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalHandling()

	return runLoop(signalContext, logger, service, jobDefinition, interval, runImmediately)
}

// runLoop drives the ticker until the context is cancelled. Runs execute
// sequentially on the loop goroutine, so a tick arriving mid-run is dropped
// by the ticker rather than queued.
func runLoop(executionContext context.Context, logger *zap.Logger, service *syncjob.Service, jobDefinition syncjob.JobDefinition, interval time.Duration, runImmediately bool) error {
	executeOnce := func() {
		if _, runError := service.Run(executionContext, jobDefinition, syncjob.RuntimeOptions{}); runError != nil {
			if errors.Is(runError, context.Canceled) {
				return
			}
			logger.Error(runFailedMessageConstant, zap.Error(runError))
		}
	}

	if runImmediately {
		executeOnce()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-executionContext.Done():
			logger.Info(scheduleStoppedMessageConstant)
			return nil
		case <-ticker.C:
			executeOnce()
		}
	}
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
