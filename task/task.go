package task

import (
	"time"
)

type State string

const (
	StateUploading  State = "uploading"
	StateExtracting State = "extracting"
	StateSearching  State = "searching"
	StateAnalyzing  State = "analyzing"
	StatePreparing  State = "preparing"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type Task struct {
	ID         string    `json:"id"`
	State      State     `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message"`
	UpdatedAt  time.Time `json:"-"`
	OutputPath string    `json:"-"` // Set only once State == StateCompleted
	StagingDir string    `json:"-"`
}
