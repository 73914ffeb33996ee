package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	eventLogDirectoryPermissionsConstant = 0o755
	eventLogFilePermissionsConstant      = 0o644
	eventLogOpenErrorTemplateConstant    = "unable to open event log: %w"
	eventLogWriteErrorTemplateConstant   = "unable to append event: %w"
	eventLogNewlineConstant              = "\n"
)

// Event describes one pipeline lifecycle notification.
type Event struct {
	RunIdentifier string `json:"run_id"`
	Stage         string `json:"stage"`
	Message       string `json:"message,omitempty"`
}

// EventLog appends JSON-lines events to a file.
type EventLog struct {
	mutex sync.Mutex
	file  *os.File
}

// NewEventLog opens the event log at the provided path, creating parent directories.
func NewEventLog(logPath string) (*EventLog, error) {
	if directoryError := os.MkdirAll(filepath.Dir(logPath), eventLogDirectoryPermissionsConstant); directoryError != nil {
		return nil, fmt.Errorf(eventLogOpenErrorTemplateConstant, directoryError)
	}

	file, openError := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, eventLogFilePermissionsConstant)
	if openError != nil {
		return nil, fmt.Errorf(eventLogOpenErrorTemplateConstant, openError)
	}
	return &EventLog{file: file}, nil
}

// Emit appends one timestamped event.
func (eventLog *EventLog) Emit(event Event) error {
	eventLog.mutex.Lock()
	defer eventLog.mutex.Unlock()

	payload := struct {
		Timestamp string `json:"ts"`
		Event
	}{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Event:     event,
	}

	encodedPayload, marshalError := json.Marshal(payload)
	if marshalError != nil {
		return fmt.Errorf(eventLogWriteErrorTemplateConstant, marshalError)
	}

	if _, writeError := eventLog.file.Write(append(encodedPayload, []byte(eventLogNewlineConstant)...)); writeError != nil {
		return fmt.Errorf(eventLogWriteErrorTemplateConstant, writeError)
	}
	return nil
}

// Close releases the underlying file handle.
func (eventLog *EventLog) Close() error {
	if eventLog == nil || eventLog.file == nil {
		return nil
	}
	return eventLog.file.Close()
}
