package domain

import "errors"

// Error taxonomy for the orchestration core. All errors surfaced to callers
// wrap one of these sentinels so boundaries can classify with errors.Is.
var (
	// ErrNotFound is returned when no task exists for the given id
	ErrNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a status change is not permitted
	// by the task state machine, or a progress update would move backwards
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidOperation is returned when a caller requests an operation
	// that is not valid for the task's kind or current status
	ErrInvalidOperation = errors.New("operation not valid for task")

	// ErrAlreadyTerminal is returned when cancelling a task that already
	// reached a terminal status; idempotent no-op, reported not fatal
	ErrAlreadyTerminal = errors.New("task already in terminal status")

	// ErrInvalidOptions rejects malformed conversion options before a task
	// is created
	ErrInvalidOptions = errors.New("invalid conversion options")

	// ErrDestinationConflict rejects a submission whose output path is
	// already claimed by a live task
	ErrDestinationConflict = errors.New("destination path already in use")

	// ErrResolution marks a media reference that could not be resolved;
	// terminal for the task, never retried
	ErrResolution = errors.New("failed to resolve media reference")

	// ErrTransfer marks a byte-transfer failure
	ErrTransfer = errors.New("transfer failed")

	// ErrTranscode marks a conversion failure
	ErrTranscode = errors.New("transcode failed")

	// ErrTransferPaused is returned by a transfer worker after it
	// acknowledged a pause request and stopped at a safe boundary
	ErrTransferPaused = errors.New("transfer paused")
)
