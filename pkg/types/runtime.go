package types

import "time"

// RunStatus represents the lifecycle state of a build run or a model run.
type RunStatus string

// RunStatus values represent the lifecycle states of a run.
const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSuccess   RunStatus = "SUCCESS"
	RunFailed    RunStatus = "FAILED"
	RunSkipped   RunStatus = "SKIPPED"
	RunCancelled RunStatus = "CANCELLED"
)

// RunState represents one invocation of the build (all selected models).
type RunState struct {
	RunID       string     `json:"runId"`
	Status      RunStatus  `json:"status"`
	Target      string     `json:"target"`
	Selected    []string   `json:"selected,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ModelRun records the materialization of a single model within a run.
type ModelRun struct {
	RunID           string          `json:"runId"`
	Model           string          `json:"model"`
	Status          RunStatus       `json:"status"`
	Materialization Materialization `json:"materialization"`
	Relation        string          `json:"relation"`
	Error           string          `json:"error,omitempty"`
	StartedAt       time.Time       `json:"startedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// CheckResult records the outcome of one data check execution.
type CheckResult struct {
	RunID      string      `json:"runId,omitempty"`
	Model      string      `json:"model"`
	CheckType  CheckType   `json:"checkType"`
	Column     string      `json:"column,omitempty"`
	Status     CheckStatus `json:"status"`
	Violations int64       `json:"violations"`
	Reason     string      `json:"reason,omitempty"`
	CheckedAt  time.Time   `json:"checkedAt"`
}

// EventKind classifies the type of audit event.
type EventKind string

// EventKind values enumerate the categories of recorded events.
const (
	EventRunStarted      EventKind = "RUN_STARTED"
	EventRunCompleted    EventKind = "RUN_COMPLETED"
	EventRunFailed       EventKind = "RUN_FAILED"
	EventModelBuilt      EventKind = "MODEL_BUILT"
	EventModelFailed     EventKind = "MODEL_FAILED"
	EventModelSkipped    EventKind = "MODEL_SKIPPED"
	EventCheckFailed     EventKind = "CHECK_FAILED"
	EventAlertDispatched EventKind = "ALERT_DISPATCHED"
)

// Event is an append-only audit log entry recording what happened and when.
type Event struct {
	Kind      EventKind              `json:"kind"`
	RunID     string                 `json:"runId,omitempty"`
	Model     string                 `json:"model,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// AlertType defines the alert sink type.
type AlertType string

// AlertType values enumerate the supported alert sink backends.
const (
	AlertConsole AlertType = "console"
	AlertWebhook AlertType = "webhook"
	AlertFile    AlertType = "file"
	AlertSNS     AlertType = "sns"
)

// AlertLevel classifies alert severity.
type AlertLevel string

const (
	AlertLevelError   AlertLevel = "error"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelInfo    AlertLevel = "info"
)

// Alert represents an alert event to be dispatched.
type Alert struct {
	Level     AlertLevel             `json:"level"`
	RunID     string                 `json:"runId,omitempty"`
	Model     string                 `json:"model,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
