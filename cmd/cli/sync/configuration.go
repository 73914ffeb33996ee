package sync

import "strings"

const (
	defaultLedgerPathConstant   = ".csvsync/runs.db"
	defaultEventLogPathConstant = ".csvsync/events.log"

	ledgerPathConfigurationKeySuffixConstant   = ".ledger_path"
	eventLogPathConfigurationKeySuffixConstant = ".event_log_path"
)

// CommandConfiguration stores persisted settings for the sync command.
type CommandConfiguration struct {
	JobFile      string `mapstructure:"job_file"`
	LedgerPath   string `mapstructure:"ledger_path"`
	EventLogPath string `mapstructure:"event_log_path"`
	DryRun       bool   `mapstructure:"dry_run"`
}

// DefaultCommandConfiguration returns the baseline sync configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		LedgerPath:   defaultLedgerPathConstant,
		EventLogPath: defaultEventLogPathConstant,
	}
}

// DefaultConfigurationValues exposes sync defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + ledgerPathConfigurationKeySuffixConstant:   defaultLedgerPathConstant,
		configurationKeyPrefix + eventLogPathConfigurationKeySuffixConstant: defaultEventLogPathConstant,
	}
}

// Sanitize trims whitespace and fills defaulted fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	configuration.JobFile = strings.TrimSpace(configuration.JobFile)
	configuration.LedgerPath = strings.TrimSpace(configuration.LedgerPath)
	configuration.EventLogPath = strings.TrimSpace(configuration.EventLogPath)
	if len(configuration.LedgerPath) == 0 {
		configuration.LedgerPath = defaultLedgerPathConstant
	}
	if len(configuration.EventLogPath) == 0 {
		configuration.EventLogPath = defaultEventLogPathConstant
	}
	return configuration
}
