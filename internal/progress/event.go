// Package progress tracks long-running intake jobs and fans their status
// out to subscribers. Events flow through an in-process broker backing
// the SSE endpoint; a NATS sink mirrors them onto the message bus for
// out-of-process consumers.
package progress

import "time"

// Stages a job moves through, in order. Error can occur at any point.
const (
	StageInitializing     = "initializing"
	StageProcessing       = "processing"
	StageProcessingPDFs   = "processing_pdfs"
	StageProcessingEmails = "processing_emails"
	StageExtracting       = "extracting_parameters"
	StageFinalizing       = "finalizing"
	StageCompleted        = "completed"
	StageError            = "error"
)

// Event is one progress update for a job.
type Event struct {
	JobID       string    `json:"job_id"`
	Stage       string    `json:"stage"`
	CurrentFile string    `json:"current_file,omitempty"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Terminal reports whether no further events will follow.
func (e Event) Terminal() bool {
	return e.Stage == StageCompleted || e.Stage == StageError
}

// FilePercent maps per-file progress into the 20-80 band reserved for
// file processing. processed counts files already finished.
func FilePercent(processed, total int) int {
	if total <= 0 {
		return 20
	}
	return 20 + processed*60/total
}
