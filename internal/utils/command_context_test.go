package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/csvsync/internal/utils"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	contextWithValues := accessor.WithConfigurationFilePath(context.Background(), "config.yaml")
	contextWithValues = accessor.WithJobFilePath(contextWithValues, "job.yaml")

	configurationFilePath, configurationAvailable := accessor.ConfigurationFilePath(contextWithValues)
	require.True(testInstance, configurationAvailable)
	require.Equal(testInstance, "config.yaml", configurationFilePath)

	jobFilePath, jobAvailable := accessor.JobFilePath(contextWithValues)
	require.True(testInstance, jobAvailable)
	require.Equal(testInstance, "job.yaml", jobFilePath)
}

func TestCommandContextAccessorMissingValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, configurationAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, configurationAvailable)

	_, jobAvailable := accessor.JobFilePath(nil)
	require.False(testInstance, jobAvailable)
}
