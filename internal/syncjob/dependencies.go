package syncjob

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/csvsync/internal/artifacts"
	"github.com/temirov/csvsync/internal/execshell"
	"github.com/temirov/csvsync/internal/gitrepo"
	"github.com/temirov/csvsync/internal/history"
	"github.com/temirov/csvsync/internal/pythonenv"
	"github.com/temirov/csvsync/internal/ui"
)

// AssemblyOptions configures default collaborator construction for a sync service.
type AssemblyOptions struct {
	Logger               *zap.Logger
	HumanReadableLogging bool
	Job                  JobDefinition
	LedgerPath           string
	EventLogPath         string
	Output               io.Writer
}

// CleanupFunc releases resources owned by an assembled service.
type CleanupFunc func() error

// AssembleService wires the production collaborators for the sync pipeline:
// an OS-backed shell executor, the repository manager, the Python
// provisioner, the artifact scanner, and the optional run ledger and event
// log. The returned cleanup function closes the ledger resources.
func AssembleService(executionContext context.Context, options AssemblyOptions) (*Service, CleanupFunc, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, nil, executorError
	}
	if options.HumanReadableLogging {
		shellExecutor.SetCommandEventObserver(ui.NewConsoleCommandEventLogger(logger))
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(shellExecutor)
	if managerError != nil {
		return nil, nil, managerError
	}

	provisioner, provisionerError := pythonenv.NewProvisioner(shellExecutor, logger)
	if provisionerError != nil {
		return nil, nil, provisionerError
	}

	scanner, scannerError := artifacts.NewScanner(options.Job.Artifacts.Patterns)
	if scannerError != nil {
		return nil, nil, scannerError
	}

	closers := make([]CleanupFunc, 0, 2)
	cleanup := func() error {
		var firstError error
		for _, closer := range closers {
			if closeError := closer(); closeError != nil && firstError == nil {
				firstError = closeError
			}
		}
		return firstError
	}

	dependencies := Dependencies{
		Logger:         logger,
		Repository:     repositoryManager,
		ScriptExecutor: shellExecutor,
		Provisioner:    provisioner,
		Scanner:        scanner,
		Output:         options.Output,
	}

	if len(strings.TrimSpace(options.LedgerPath)) > 0 {
		store, storeError := history.NewStore(options.LedgerPath)
		if storeError != nil {
			return nil, nil, storeError
		}
		closers = append(closers, store.Close)
		if initError := store.Init(executionContext); initError != nil {
			_ = cleanup()
			return nil, nil, initError
		}
		dependencies.Recorder = store
	}

	if len(strings.TrimSpace(options.EventLogPath)) > 0 {
		eventLog, eventLogError := history.NewEventLog(options.EventLogPath)
		if eventLogError != nil {
			_ = cleanup()
			return nil, nil, eventLogError
		}
		closers = append(closers, eventLog.Close)
		dependencies.Events = eventLog
	}

	service, serviceError := NewService(dependencies)
	if serviceError != nil {
		_ = cleanup()
		return nil, nil, serviceError
	}
	return service, cleanup, nil
}
