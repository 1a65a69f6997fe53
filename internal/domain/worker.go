package domain

import "context"

// Resolver produces the media metadata needed to plan a download from a
// remote reference. Implementations report unreachable or unsupported
// references with an error wrapping ErrResolution.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (*MediaMetadata, error)
}

// TransferRequest carries everything a transfer worker needs for one run
type TransferRequest struct {
	TaskID      string
	Reference   string
	Destination string
	Metadata    *MediaMetadata
	// ResumeOffset is the byte offset to continue from; zero means a fresh
	// transfer. Workers that cannot continue from the offset restart from
	// zero and report it through OnResumeFallback.
	ResumeOffset int64
}

// TransferCallbacks are the signals a transfer worker sends back while
// running. Workers never touch the task store directly.
type TransferCallbacks struct {
	// OnProgress reports bytes-transferred mapped to 0-100
	OnProgress func(percent int)
	// OnPauseAck confirms a pause took effect at a safe boundary, reporting
	// the byte offset reached and whether the source supports continuation
	OnPauseAck func(offset int64, resumable bool)
	// OnResumeFallback reports that a requested resume offset could not be
	// honored and the transfer restarted from the beginning
	OnResumeFallback func()
}

// TransferWorker performs the byte-level fetch for a download task.
//
// Run blocks until the transfer finishes. It returns nil on completion,
// ErrTransferPaused after acknowledging a pause via the pause channel,
// ctx.Err() when cancelled, and an error wrapping ErrTransfer otherwise.
// Cancellation must leave no partial output behind; pause must not corrupt
// partially written output.
type TransferWorker interface {
	Run(ctx context.Context, req TransferRequest, pause <-chan struct{}, cb TransferCallbacks) error
}

// TranscodeRequest carries everything a transcode worker needs for one run
type TranscodeRequest struct {
	TaskID     string
	InputPath  string
	OutputPath string
	Options    ConversionOptions
}

// TranscodeWorker performs the conversion for a conversion task. Run blocks
// until the conversion finishes, reporting processed-duration progress as
// 0-100. It returns ctx.Err() when cancelled and an error wrapping
// ErrTranscode on failure; cancellation removes any partial output.
type TranscodeWorker interface {
	Run(ctx context.Context, req TranscodeRequest, onProgress func(percent int)) error
}
