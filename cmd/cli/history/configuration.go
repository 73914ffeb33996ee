package history

import "strings"

const (
	defaultLedgerPathConstant = ".csvsync/runs.db"
	defaultLimitConstant      = 20

	limitConfigurationKeySuffixConstant = ".limit"
)

// CommandConfiguration stores persisted settings for the history command.
type CommandConfiguration struct {
	LedgerPath string `mapstructure:"ledger_path"`
	Limit      int    `mapstructure:"limit"`
}

// DefaultCommandConfiguration returns the baseline history configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		LedgerPath: defaultLedgerPathConstant,
		Limit:      defaultLimitConstant,
	}
}

// DefaultConfigurationValues exposes history defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + limitConfigurationKeySuffixConstant: defaultLimitConstant,
	}
}

// Sanitize trims whitespace and fills defaulted fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	configuration.LedgerPath = strings.TrimSpace(configuration.LedgerPath)
	if len(configuration.LedgerPath) == 0 {
		configuration.LedgerPath = defaultLedgerPathConstant
	}
	if configuration.Limit <= 0 {
		configuration.Limit = defaultLimitConstant
	}
	return configuration
}
