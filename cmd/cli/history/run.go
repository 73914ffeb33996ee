// Package history wires the history command that lists recorded pipeline runs.
package history

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	runledger "github.com/temirov/csvsync/internal/history"
)

const (
	commandUseConstant               = "history"
	commandShortDescriptionConstant  = "List recorded sync runs"
	commandLongDescriptionConstant   = "history prints the most recent pipeline runs from the run ledger, newest first."
	ledgerFlagNameConstant           = "ledger"
	ledgerFlagDescriptionConstant    = "Path to the run ledger database"
	limitFlagNameConstant            = "limit"
	limitFlagDescriptionConstant     = "Maximum number of runs to display"
	ledgerMissingTemplateConstant    = "run ledger not found at %s\n"
	ledgerOpenErrorTemplateConstant  = "unable to open run ledger: %w"
	ledgerQueryErrorTemplateConstant = "unable to list runs: %w"
	noRunsMessageConstant            = "No runs recorded."
	tableHeaderConstant              = "STARTED\tSTATUS\tREPOSITORY\tBRANCH\tFILES\tCOMMIT\tDETAIL"
	tableRowTemplateConstant         = "%s\t%s\t%s\t%s\t%d\t%s\t%s\n"
	startedAtDisplayLayoutConstant   = "2006-01-02 15:04:05"
	shortCommitHashLengthConstant    = 12
	emptyColumnPlaceholderConstant   = "-"
)

var (
	succeededStatusPrinter = color.New(color.FgGreen)
	noChangesStatusPrinter = color.New(color.FgYellow)
	failedStatusPrinter    = color.New(color.FgRed)
)

// CommandBuilder assembles the history command.
type CommandBuilder struct {
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the history command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(ledgerFlagNameConstant, "", ledgerFlagDescriptionConstant)
	command.Flags().Int(limitFlagNameConstant, 0, limitFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()

	ledgerPath := configuration.LedgerPath
	if command.Flags().Changed(ledgerFlagNameConstant) {
		flagValue, _ := command.Flags().GetString(ledgerFlagNameConstant)
		if trimmedValue := strings.TrimSpace(flagValue); len(trimmedValue) > 0 {
			ledgerPath = trimmedValue
		}
	}

	limit := configuration.Limit
	if command.Flags().Changed(limitFlagNameConstant) {
		if flagValue, _ := command.Flags().GetInt(limitFlagNameConstant); flagValue > 0 {
			limit = flagValue
		}
	}

	if _, statError := os.Stat(ledgerPath); statError != nil {
		fmt.Fprintf(command.OutOrStdout(), ledgerMissingTemplateConstant, ledgerPath)
		return nil
	}

	store, storeError := runledger.NewStore(ledgerPath)
	if storeError != nil {
		return fmt.Errorf(ledgerOpenErrorTemplateConstant, storeError)
	}
	defer store.Close()

	records, listError := store.ListRecentRuns(command.Context(), limit)
	if listError != nil {
		return fmt.Errorf(ledgerQueryErrorTemplateConstant, listError)
	}

	if len(records) == 0 {
		fmt.Fprintln(command.OutOrStdout(), noRunsMessageConstant)
		return nil
	}

	tableWriter := tabwriter.NewWriter(command.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tableWriter, tableHeaderConstant)
	for _, record := range records {
		fmt.Fprintf(
			tableWriter,
			tableRowTemplateConstant,
			record.StartedAt.Local().Format(startedAtDisplayLayoutConstant),
			renderStatus(record.Status),
			valueOrPlaceholder(record.Repository),
			valueOrPlaceholder(record.Branch),
			record.ArtifactCount,
			shortCommitHash(record.CommitHash),
			renderDetail(record),
		)
	}
	return tableWriter.Flush()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func renderStatus(status runledger.RunStatus) string {
	switch status {
	case runledger.RunStatusSucceeded:
		return succeededStatusPrinter.Sprint(string(status))
	case runledger.RunStatusNoChanges:
		return noChangesStatusPrinter.Sprint(string(status))
	case runledger.RunStatusFailed:
		return failedStatusPrinter.Sprint(string(status))
	default:
		return string(status)
	}
}

func renderDetail(record runledger.RunRecord) string {
	if record.Status == runledger.RunStatusFailed && len(record.FailureStage) > 0 {
		return record.FailureStage
	}
	duration := record.FinishedAt.Sub(record.StartedAt)
	if duration <= 0 {
		return emptyColumnPlaceholderConstant
	}
	return duration.Round(time.Second).String()
}

func shortCommitHash(commitHash string) string {
	trimmedHash := strings.TrimSpace(commitHash)
	if len(trimmedHash) == 0 {
		return emptyColumnPlaceholderConstant
	}
	if len(trimmedHash) > shortCommitHashLengthConstant {
		return trimmedHash[:shortCommitHashLengthConstant]
	}
	return trimmedHash
}

func valueOrPlaceholder(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return emptyColumnPlaceholderConstant
	}
	return value
}
