package schedule

import (
	"strings"
	"time"
)

const (
	defaultIntervalConstant     = time.Hour
	defaultLedgerPathConstant   = ".csvsync/runs.db"
	defaultEventLogPathConstant = ".csvsync/events.log"

	intervalConfigurationKeySuffixConstant       = ".interval"
	runImmediatelyConfigurationKeySuffixConstant = ".run_immediately"
)

// CommandConfiguration stores persisted settings for the schedule command.
type CommandConfiguration struct {
	JobFile        string        `mapstructure:"job_file"`
	LedgerPath     string        `mapstructure:"ledger_path"`
	EventLogPath   string        `mapstructure:"event_log_path"`
	Interval       time.Duration `mapstructure:"interval"`
	RunImmediately bool          `mapstructure:"run_immediately"`
}

// DefaultCommandConfiguration returns the baseline schedule configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		LedgerPath:   defaultLedgerPathConstant,
		EventLogPath: defaultEventLogPathConstant,
		Interval:     defaultIntervalConstant,
	}
}

// DefaultConfigurationValues exposes schedule defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + intervalConfigurationKeySuffixConstant:       defaultIntervalConstant.String(),
		configurationKeyPrefix + runImmediatelyConfigurationKeySuffixConstant: false,
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
	if configuration.Interval <= 0 {
		configuration.Interval = defaultIntervalConstant
	}
	return configuration
}
