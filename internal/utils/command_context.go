package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	jobFilePathContextKeyConstant           = commandContextKey("jobFilePath")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// WithJobFilePath attaches the sync job definition path to the provided context.
func (accessor CommandContextAccessor) WithJobFilePath(parentContext context.Context, jobFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, jobFilePathContextKeyConstant, jobFilePath)
}

// JobFilePath extracts the sync job definition path from the provided context.
func (accessor CommandContextAccessor) JobFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	jobFilePath, jobFilePathAvailable := executionContext.Value(jobFilePathContextKeyConstant).(string)
	if !jobFilePathAvailable {
		return "", false
	}
	return jobFilePath, true
}
