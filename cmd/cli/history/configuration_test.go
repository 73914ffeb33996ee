package history_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/csvsync/cmd/cli/history"
)

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	sanitizedEmpty := history.CommandConfiguration{}.Sanitize()
	require.Equal(testInstance, ".csvsync/runs.db", sanitizedEmpty.LedgerPath)
	require.Equal(testInstance, 20, sanitizedEmpty.Limit)

	sanitizedExplicit := history.CommandConfiguration{LedgerPath: " /var/lib/csvsync/runs.db ", Limit: 5}.Sanitize()
	require.Equal(testInstance, "/var/lib/csvsync/runs.db", sanitizedExplicit.LedgerPath)
	require.Equal(testInstance, 5, sanitizedExplicit.Limit)

	sanitizedNegative := history.CommandConfiguration{Limit: -1}.Sanitize()
	require.Equal(testInstance, 20, sanitizedNegative.Limit)
}
