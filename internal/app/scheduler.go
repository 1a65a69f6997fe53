package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

// Notifier receives task lifecycle notifications outside the event bus,
// e.g. desktop notifications. May be left nil.
type Notifier interface {
	NotifyTaskStarted(t *domain.Task)
	NotifyTaskCompleted(t *domain.Task)
	NotifyTaskFailed(t *domain.Task, err error)
}

// Scheduler admits pending tasks into execution under a concurrency budget
// shared across downloads and conversions, drives the workers, and mediates
// pause/resume/cancel requests against running work. All state-mutating
// decisions are serialized by the scheduler's mutex; workers only talk back
// through callbacks, never by touching the store.
type Scheduler struct {
	store     *Store
	bus       *EventBus
	resolver  domain.Resolver
	transfer  domain.TransferWorker
	transcode domain.TranscodeWorker
	history   domain.HistoryRepository
	notifier  Notifier
	config    *domain.SchedulerConfig
	storage   *domain.StorageConfig
	logger    *zap.Logger

	mu      sync.Mutex
	baseCtx context.Context
	queue   []string // task ids awaiting admission, FIFO
	running map[string]*runHandle
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// runHandle is the scheduler's grip on one admitted task
type runHandle struct {
	cancel       context.CancelFunc
	pause        chan struct{} // closed to request cooperative pause
	pauseReq     bool
	cancelReq    bool
	graceTimer   *time.Timer
	ackOffset    int64
	ackResumable bool
}

// NewScheduler creates a scheduler over the given store, bus and workers.
// history and notifier may be nil.
func NewScheduler(
	store *Store,
	bus *EventBus,
	resolver domain.Resolver,
	transfer domain.TransferWorker,
	transcode domain.TranscodeWorker,
	history domain.HistoryRepository,
	notifier Notifier,
	config *domain.SchedulerConfig,
	storage *domain.StorageConfig,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		store:     store,
		bus:       bus,
		resolver:  resolver,
		transfer:  transfer,
		transcode: transcode,
		history:   history,
		notifier:  notifier,
		config:    config,
		storage:   storage,
		logger:    logger,
		running:   make(map[string]*runHandle),
	}
}

// Start begins admitting tasks. Submissions made before Start wait in the
// queue and are admitted here.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already running")
	}
	s.baseCtx = ctx
	s.started = true
	s.closed = false
	s.admitLocked()
	return nil
}

// Stop cancels all running tasks and waits for their workers to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not running")
	}
	s.closed = true
	for _, h := range s.running {
		h.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return nil
}

// IsRunning returns whether the scheduler is admitting tasks
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.closed
}

// SubmitDownload creates a download task for a remote media reference and
// attempts admission immediately
func (s *Scheduler) SubmitDownload(reference string) (*domain.Task, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: empty media reference", domain.ErrInvalidOperation)
	}

	t := domain.NewDownloadTask(reference)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Create(t); err != nil {
		return nil, err
	}
	s.queue = append(s.queue, t.ID)
	s.publishLocked(domain.Event{Type: domain.EventAdded, TaskID: t.ID, Task: t.Clone(), Time: time.Now()})
	s.logger.Info("Download task submitted",
		zap.String("id", t.ID),
		zap.String("reference", reference))
	s.admitLocked()
	return t.Clone(), nil
}

// SubmitConversion creates a conversion task for a local media file and
// attempts admission immediately. Options are validated before the task
// exists; the output path must not be claimed by a live task.
func (s *Scheduler) SubmitConversion(inputPath, outputPath string, options domain.ConversionOptions) (*domain.Task, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if inputPath == "" {
		return nil, fmt.Errorf("%w: empty input path", domain.ErrInvalidOptions)
	}
	if outputPath == "" {
		return nil, fmt.Errorf("%w: empty output path", domain.ErrInvalidOptions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.OutputClaimed(outputPath) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDestinationConflict, outputPath)
	}

	t := domain.NewConversionTask(inputPath, outputPath, options)
	if err := s.store.Create(t); err != nil {
		return nil, err
	}
	s.queue = append(s.queue, t.ID)
	s.publishLocked(domain.Event{Type: domain.EventAdded, TaskID: t.ID, Task: t.Clone(), Time: time.Now()})
	s.logger.Info("Conversion task submitted",
		zap.String("id", t.ID),
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", string(options.Format)))
	s.admitLocked()
	return t.Clone(), nil
}

// Get returns a snapshot of the task with the given id
func (s *Scheduler) Get(id string) (*domain.Task, error) {
	return s.store.Get(id)
}

// List returns snapshots of all tasks in creation order
func (s *Scheduler) List() []*domain.Task {
	return s.store.List()
}

// TaskStats represents live task counts by status
type TaskStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Stats returns live task counts by status
func (s *Scheduler) Stats() *TaskStats {
	stats := &TaskStats{}
	for _, t := range s.store.List() {
		stats.Total++
		switch t.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusActive:
			stats.Active++
		case domain.StatusPaused:
			stats.Paused++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Pause requests cooperative suspension of an active download. The task
// stays active until the transfer worker acknowledges at a safe boundary;
// there is no forced fallback to paused.
func (s *Scheduler) Pause(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if t.Kind != domain.KindDownload {
		return fmt.Errorf("%w: conversions cannot be paused", domain.ErrInvalidOperation)
	}
	if t.Status != domain.StatusActive {
		return fmt.Errorf("%w: pause requires an active download, task is %s", domain.ErrInvalidOperation, t.Status)
	}
	h, ok := s.running[id]
	if !ok {
		return fmt.Errorf("%w: task is not running", domain.ErrInvalidOperation)
	}
	if !h.pauseReq {
		h.pauseReq = true
		close(h.pause)
		s.logger.Info("Pause requested", zap.String("id", id))
	}
	return nil
}

// Resume re-enters a paused download into the admission queue, preserving
// its progress and byte offset
func (s *Scheduler) Resume(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if t.Status != domain.StatusPaused {
		return fmt.Errorf("%w: resume requires a paused download, task is %s", domain.ErrInvalidOperation, t.Status)
	}
	for _, queued := range s.queue {
		if queued == id {
			return nil // already waiting for a slot
		}
	}
	s.queue = append(s.queue, id)
	s.logger.Info("Resume requested",
		zap.String("id", id),
		zap.Int64("offset", t.ResumeOffset))
	s.admitLocked()
	return nil
}

// Cancel aborts a task in any non-terminal status. Pending and paused tasks
// are cancelled immediately; running tasks are signalled and transition once
// the worker acknowledges, or after the grace period elapses, whichever
// comes first. Cancelling a terminal task reports ErrAlreadyTerminal.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if t.IsTerminal() {
		return fmt.Errorf("%w: task is %s", domain.ErrAlreadyTerminal, t.Status)
	}

	if h, ok := s.running[id]; ok {
		if !h.cancelReq {
			h.cancelReq = true
			h.cancel()
			grace := s.config.CancelGracePeriod
			if grace > 0 {
				h.graceTimer = time.AfterFunc(grace, func() { s.forceCancel(id, h) })
			}
			s.logger.Info("Cancel requested", zap.String("id", id))
		}
		return nil
	}

	// pending or paused: no slot held, cancel immediately
	s.dequeueLocked(id)
	s.applyTerminalLocked(id, domain.StatusCancelled, nil)
	return nil
}

// Subscribe registers an event bus subscriber
func (s *Scheduler) Subscribe(buffer int) (<-chan domain.Event, func()) {
	return s.bus.Subscribe(buffer)
}

// admitLocked moves queued tasks into execution while the budget allows.
// Entries whose task has been cancelled in the meantime are skipped.
func (s *Scheduler) admitLocked() {
	if !s.started || s.closed {
		return
	}
	for len(s.queue) > 0 && len(s.running) < s.config.ConcurrentLimit {
		id := s.queue[0]
		s.queue = s.queue[1:]

		t, err := s.store.Get(id)
		if err != nil {
			continue
		}
		if t.Status != domain.StatusPending && t.Status != domain.StatusPaused {
			continue
		}

		ctx, cancel := context.WithCancel(s.baseCtx)
		h := &runHandle{cancel: cancel, pause: make(chan struct{})}
		s.running[id] = h

		s.wg.Add(1)
		go s.runTask(ctx, t, h)
	}
}

// runTask executes one admitted task end to end. The snapshot t reflects
// the task at admission time.
func (s *Scheduler) runTask(ctx context.Context, t *domain.Task, h *runHandle) {
	defer s.wg.Done()

	var err error
	switch t.Kind {
	case domain.KindDownload:
		err = s.runDownload(ctx, t, h)
	case domain.KindConversion:
		err = s.runConversion(ctx, t)
	default:
		err = fmt.Errorf("unknown task kind: %s", t.Kind)
	}
	s.finish(t.ID, h, err)
}

// runDownload resolves the reference when needed, then streams bytes via
// the transfer worker. Resolution failures are terminal without the task
// ever becoming active.
func (s *Scheduler) runDownload(ctx context.Context, t *domain.Task, h *runHandle) error {
	if t.Metadata == nil {
		meta, err := s.resolver.Resolve(ctx, t.Input)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", domain.ErrResolution, err)
		}

		destination := t.Output
		if destination == "" {
			destination = s.destinationFor(meta)
		}

		s.mu.Lock()
		if s.store.OutputClaimed(destination) {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", domain.ErrDestinationConflict, destination)
		}
		if err := s.store.SetResolved(t.ID, meta, destination); err != nil {
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()

		t.Metadata = meta
		t.Output = destination
	}

	if err := s.activate(t.ID); err != nil {
		return err
	}

	req := domain.TransferRequest{
		TaskID:       t.ID,
		Reference:    t.Input,
		Destination:  t.Output,
		Metadata:     t.Metadata,
		ResumeOffset: t.ResumeOffset,
	}
	cb := domain.TransferCallbacks{
		OnProgress: func(percent int) { s.reportProgress(t.ID, percent) },
		OnPauseAck: func(offset int64, resumable bool) {
			s.mu.Lock()
			h.ackOffset = offset
			h.ackResumable = resumable
			s.mu.Unlock()
		},
		OnResumeFallback: func() {
			s.mu.Lock()
			if err := s.store.SetResumeState(t.ID, 0, true); err == nil {
				s.logger.Warn("Source does not support continuation, restarting transfer",
					zap.String("id", t.ID))
			}
			s.mu.Unlock()
		},
	}
	return s.transfer.Run(ctx, req, h.pause, cb)
}

// runConversion drives the transcode worker for a conversion task
func (s *Scheduler) runConversion(ctx context.Context, t *domain.Task) error {
	if err := s.activate(t.ID); err != nil {
		return err
	}

	req := domain.TranscodeRequest{
		TaskID:     t.ID,
		InputPath:  t.Input,
		OutputPath: t.Output,
		Options:    *t.Options,
	}
	return s.transcode.Run(ctx, req, func(percent int) { s.reportProgress(t.ID, percent) })
}

// activate transitions an admitted task to active and announces it
func (s *Scheduler) activate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.store.SetStatus(id, domain.StatusActive, nil)
	if err != nil {
		return err
	}
	s.publishLocked(domain.Event{
		Type: domain.EventStatusChanged, TaskID: id,
		From: from, To: domain.StatusActive, Time: time.Now(),
	})
	if s.notifier != nil {
		if t, gerr := s.store.Get(id); gerr == nil {
			go s.notifier.NotifyTaskStarted(t)
		}
	}
	return nil
}

// reportProgress applies a worker progress report, discarding regressive
// or late reports
func (s *Scheduler) reportProgress(id string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.store.UpdateProgress(id, percent)
	if err != nil {
		return
	}
	s.publishLocked(domain.Event{
		Type: domain.EventProgress, TaskID: id,
		Progress: applied, Time: time.Now(),
	})
}

// finish settles a task after its worker returned. The error decides the
// terminal (or paused) outcome. Late finishes of tasks the grace timer has
// already detached are ignored.
func (s *Scheduler) finish(id string, h *runHandle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.running[id]; !ok || cur != h {
		s.logger.Debug("Ignoring signal from detached worker", zap.String("id", id))
		return
	}
	delete(s.running, id)
	if h.graceTimer != nil {
		h.graceTimer.Stop()
	}

	switch {
	// a cancel request settles the outcome no matter how the worker
	// returned; a pause ack racing an accepted cancel must not leave the
	// task paused with the cancel dropped
	case h.cancelReq || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.applyTerminalLocked(id, domain.StatusCancelled, nil)

	case err == nil:
		s.applyTerminalLocked(id, domain.StatusCompleted, nil)

	case errors.Is(err, domain.ErrTransferPaused):
		if serr := s.store.SetResumeState(id, h.ackOffset, false); serr != nil {
			s.logger.Error("Failed to record resume offset", zap.String("id", id), zap.Error(serr))
		}
		from, serr := s.store.SetStatus(id, domain.StatusPaused, nil)
		if serr != nil {
			s.logger.Warn("Pause acknowledged for task no longer pausable",
				zap.String("id", id), zap.Error(serr))
		} else {
			s.publishLocked(domain.Event{
				Type: domain.EventStatusChanged, TaskID: id,
				From: from, To: domain.StatusPaused, Time: time.Now(),
			})
			s.logger.Info("Download paused",
				zap.String("id", id),
				zap.Int64("offset", h.ackOffset),
				zap.Bool("resumable", h.ackResumable))
		}

	default:
		s.applyTerminalLocked(id, domain.StatusFailed, err)
	}

	s.admitLocked()
}

// forceCancel fires when a cancelled worker missed the grace period: the
// task is transitioned and the worker detached, its late signals ignored
func (s *Scheduler) forceCancel(id string, h *runHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.running[id]; !ok || cur != h {
		return // worker acknowledged in time
	}
	delete(s.running, id)
	s.logger.Warn("Worker missed cancellation grace period, detaching",
		zap.String("id", id))
	s.applyTerminalLocked(id, domain.StatusCancelled, nil)
	s.admitLocked()
}

// applyTerminalLocked transitions a task to a terminal status, publishes
// the outcome, and hands the summary to the persistence bridge and the
// notifier, both fire-and-forget
func (s *Scheduler) applyTerminalLocked(id string, to domain.TaskStatus, cause error) {
	from, err := s.store.SetStatus(id, to, cause)
	if err != nil {
		s.logger.Warn("Terminal transition rejected",
			zap.String("id", id),
			zap.String("to", string(to)),
			zap.Error(err))
		return
	}

	if to == domain.StatusCompleted {
		// completion raised progress to 100; the final report precedes the
		// status change on the stream
		s.publishLocked(domain.Event{
			Type: domain.EventProgress, TaskID: id,
			Progress: 100, Time: time.Now(),
		})
	}

	s.publishLocked(domain.Event{
		Type: domain.EventStatusChanged, TaskID: id,
		From: from, To: to, Time: time.Now(),
	})

	t, gerr := s.store.Get(id)
	if gerr != nil {
		return
	}

	switch to {
	case domain.StatusCompleted:
		s.publishLocked(domain.Event{Type: domain.EventCompleted, TaskID: id, Time: time.Now()})
		s.logger.Info("Task completed", zap.String("id", id), zap.String("output", t.Output))
		if s.notifier != nil {
			go s.notifier.NotifyTaskCompleted(t)
		}
	case domain.StatusFailed:
		s.publishLocked(domain.Event{
			Type: domain.EventFailed, TaskID: id,
			Error: t.ErrorMessage, Time: time.Now(),
		})
		s.logger.Error("Task failed", zap.String("id", id), zap.String("error", t.ErrorMessage))
		if s.notifier != nil {
			go s.notifier.NotifyTaskFailed(t, cause)
		}
	case domain.StatusCancelled:
		s.logger.Info("Task cancelled", zap.String("id", id))
	}

	if s.history != nil {
		record := domain.NewTaskRecord(t)
		go func() {
			if err := s.history.RecordTerminal(record); err != nil {
				s.logger.Error("Failed to record task history",
					zap.String("id", record.ID), zap.Error(err))
			}
		}()
	}
}

// publishLocked emits an event while holding the scheduler mutex, which
// serializes publication and preserves per-task ordering
func (s *Scheduler) publishLocked(e domain.Event) {
	s.bus.Publish(e)
}

// dequeueLocked removes a task id from the admission queue if present
func (s *Scheduler) dequeueLocked(id string) {
	for i, queued := range s.queue {
		if queued == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// destinationFor derives a destination path for a resolved download
func (s *Scheduler) destinationFor(meta *domain.MediaMetadata) string {
	name := sanitizeFileName(meta.Title)
	if name == "" {
		name = "download"
	}
	ext := meta.SourceFormat
	if ext == "" {
		ext = "bin"
	}
	return filepath.Join(s.storage.DownloadsDir, name+"."+ext)
}

// sanitizeFileName strips characters that are unsafe in file names
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r == 0:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
