package history_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/csvsync/internal/history"
)

func TestEventLogAppendsJSONLines(testInstance *testing.T) {
	logPath := filepath.Join(testInstance.TempDir(), "state", "events.log")

	eventLog, creationError := history.NewEventLog(logPath)
	require.NoError(testInstance, creationError)

	events := []history.Event{
		{RunIdentifier: "run-1", Stage: "workspace"},
		{RunIdentifier: "run-1", Stage: "finished", Message: "succeeded"},
	}
	for _, event := range events {
		require.NoError(testInstance, eventLog.Emit(event))
	}
	require.NoError(testInstance, eventLog.Close())

	logFile, openError := os.Open(logPath)
	require.NoError(testInstance, openError)
	defer logFile.Close()

	lineScanner := bufio.NewScanner(logFile)
	decodedEvents := make([]map[string]any, 0, len(events))
	for lineScanner.Scan() {
		var decodedEvent map[string]any
		require.NoError(testInstance, json.Unmarshal(lineScanner.Bytes(), &decodedEvent))
		decodedEvents = append(decodedEvents, decodedEvent)
	}
	require.NoError(testInstance, lineScanner.Err())
	require.Len(testInstance, decodedEvents, 2)

	require.Equal(testInstance, "run-1", decodedEvents[0]["run_id"])
	require.Equal(testInstance, "workspace", decodedEvents[0]["stage"])
	require.NotEmpty(testInstance, decodedEvents[0]["ts"])
	require.NotContains(testInstance, decodedEvents[0], "message")

	require.Equal(testInstance, "finished", decodedEvents[1]["stage"])
	require.Equal(testInstance, "succeeded", decodedEvents[1]["message"])
}

func TestEventLogAppendsAcrossReopen(testInstance *testing.T) {
	logPath := filepath.Join(testInstance.TempDir(), "events.log")

	firstLog, firstError := history.NewEventLog(logPath)
	require.NoError(testInstance, firstError)
	require.NoError(testInstance, firstLog.Emit(history.Event{RunIdentifier: "run-1", Stage: "workspace"}))
	require.NoError(testInstance, firstLog.Close())

	secondLog, secondError := history.NewEventLog(logPath)
	require.NoError(testInstance, secondError)
	require.NoError(testInstance, secondLog.Emit(history.Event{RunIdentifier: "run-2", Stage: "workspace"}))
	require.NoError(testInstance, secondLog.Close())

	contents, readError := os.ReadFile(logPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(contents), "run-1")
	require.Contains(testInstance, string(contents), "run-2")
}
