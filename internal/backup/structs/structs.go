// Package structs defines the bot users backup domain models.
package structs

// Status is the state of the export job
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusStopped   Status = "stopped"
)

// Action is an operation requested on the export job
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionClear  Action = "clear"
	ActionImport Action = "import"
)

// Keys names the status store keys of the export job
type Keys struct {
	Status   string
	Progress string
	Total    string
	FilePath string
	Error    string
	Lock     string
}

// NewKeys derives the job keys from a prefix such as "background_export_tg"
func NewKeys(prefix string) Keys {
	return Keys{
		Status:   prefix + "_status",
		Progress: prefix + "_progress",
		Total:    prefix + "_total",
		FilePath: prefix + "_file_path",
		Error:    prefix + "_error",
		Lock:     prefix + "_lock",
	}
}

// Snapshot returns the keys read by a status poll, in snapshot order
func (k Keys) Snapshot() []string {
	return []string{k.Status, k.Progress, k.Total, k.FilePath, k.Error}
}

// All returns every key of the job, lock included
func (k Keys) All() []string {
	return append(k.Snapshot(), k.Lock)
}

// Snapshot is the five field view of the export job returned to pollers
type Snapshot struct {
	Status   Status  `json:"status"`
	Progress int64   `json:"progress"`
	Total    int64   `json:"total"`
	FilePath *string `json:"filePath"`
	Error    *string `json:"error"`

	// Degraded is set when the status store could not be read.
	Degraded bool `json:"-"`
}

// IdleSnapshot is the snapshot of a job that never ran or was cleared
func IdleSnapshot() *Snapshot {
	return &Snapshot{Status: StatusIdle}
}

// ActionRequest is the body of the action endpoint
type ActionRequest struct {
	Action Action `json:"action" binding:"required,oneof=start stop clear"`
}

// ImportResult is the body returned after an import
type ImportResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
