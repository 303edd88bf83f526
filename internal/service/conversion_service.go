package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"csvjson/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Conversion Service: runs CSV → JSON jobs off the UI thread
// ─────────────────────────────────────────────────────────────

// Frontend events.
const (
	EventRunning   = "convert:running"
	EventStatus    = "convert:status"
	EventFileError = "convert:file-error"
	EventDone      = "convert:done"
)

// Validation errors returned by Start before any work begins.
var (
	ErrNoInputFiles      = errors.New("please select CSV files first")
	ErrNoOutputDir       = errors.New("please choose an output directory")
	ErrConversionRunning = errors.New("a conversion is already running")
)

// conversionKey is the single guard slot: one conversion at a time.
const conversionKey = "conversion"

// StatusEvent is the payload of EventStatus.
type StatusEvent struct {
	Message string  `json:"message"`
	Percent float64 `json:"percent"`
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	File    string  `json:"file,omitempty"`
}

// FileErrorEvent is the payload of EventFileError.
type FileErrorEvent struct {
	File    string `json:"file"`
	Op      string `json:"op"`
	Message string `json:"message"`
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	CreateRun(log *etl.RunLog) error
}

// ConversionService validates and runs conversion jobs.
// It is decoupled from the Wails App struct via EventEmitter and Notifier.
type ConversionService struct {
	converter *etl.Converter
	runs      RunRecorder
	emitter   EventEmitter
	notifier  Notifier
	logger    *zap.Logger
	guard     runningJobsGuard

	// watcher lifecycle
	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	watchDone   chan struct{}
}

// NewConversionService creates a ConversionService ready for use.
// Nil collaborators are replaced with no-ops; runs may stay nil.
func NewConversionService(
	converter *etl.Converter,
	runs RunRecorder,
	emitter EventEmitter,
	notifier Notifier,
	logger *zap.Logger,
) *ConversionService {
	if converter == nil {
		converter = etl.NewConverter()
	}
	if emitter == nil {
		emitter = noopEmitter{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionService{
		converter: converter,
		runs:      runs,
		emitter:   emitter,
		notifier:  notifier,
		logger:    logger.Named("convert"),
	}
}

// Fields returns the allow-list the converter projects onto.
func (s *ConversionService) Fields() []string {
	out := make([]string, len(s.converter.Fields))
	copy(out, s.converter.Fields)
	return out
}

// Preview reads the header and first rows of one input file.
func (s *ConversionService) Preview(ctx context.Context, path string, maxRows int) (*etl.PreviewResult, error) {
	if maxRows <= 0 {
		maxRows = 10
	}
	return s.converter.Preview(ctx, path, maxRows)
}

// ── Run ────────────────────────────────────────────────────

// Start validates job and runs it on a background goroutine. It returns the
// job ID as soon as the run has begun. Progress reaches the frontend only
// through the update channel drained by a single consumer goroutine.
func (s *ConversionService) Start(ctx context.Context, job etl.ConversionJob) (string, error) {
	job, err := s.prepare(job)
	if err != nil {
		return "", err
	}
	if !s.guard.TryLock(conversionKey) {
		return "", ErrConversionRunning
	}

	s.logger.Info("conversion started",
		zap.String("job", job.ID),
		zap.Int("files", len(job.Files)),
		zap.Bool("merge", job.Merge),
		zap.String("outputDir", job.OutputDir))
	s.emitter.Emit(ctx, EventRunning, true)

	// A started conversion is not cancellable.
	runCtx := context.WithoutCancel(ctx)
	updates := make(chan etl.Update, 16)

	go func() {
		defer close(updates)
		s.converter.Run(runCtx, &job, updates)
	}()
	go func() {
		defer s.guard.Unlock(conversionKey)
		s.consume(runCtx, updates, true)
		s.emitter.Emit(runCtx, EventRunning, false)
	}()

	return job.ID, nil
}

// RunSync validates job and runs it to completion on the caller's goroutine.
// Per-file errors are logged and returned in the result, not shown as modals.
func (s *ConversionService) RunSync(ctx context.Context, job etl.ConversionJob) (*etl.ConversionResult, error) {
	job, err := s.prepare(job)
	if err != nil {
		return nil, err
	}
	if !s.guard.TryLock(conversionKey) {
		return nil, ErrConversionRunning
	}
	defer s.guard.Unlock(conversionKey)

	// Like Start, a run is not cancelled once it has begun.
	runCtx := context.WithoutCancel(ctx)
	updates := make(chan etl.Update, 16)
	go func() {
		defer close(updates)
		s.converter.Run(runCtx, &job, updates)
	}()
	return s.consume(runCtx, updates, false), nil
}

// Running reports whether a conversion is in flight.
func (s *ConversionService) Running() bool {
	return s.guard.IsRunning(conversionKey)
}

// Wait blocks until the running conversion finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *ConversionService) Wait(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the watcher.
func (s *ConversionService) Stop() {
	s.StopWatch()
}

func (s *ConversionService) prepare(job etl.ConversionJob) (etl.ConversionJob, error) {
	if len(job.Files) == 0 {
		return job, ErrNoInputFiles
	}
	if strings.TrimSpace(job.OutputDir) == "" {
		return job, ErrNoOutputDir
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Merge && strings.TrimSpace(job.MergedFileName) == "" {
		job.MergedFileName = etl.DefaultMergedFileName
	}
	job.Files = append([]string(nil), job.Files...)
	return job, nil
}

// consume is the only reader of updates. It turns them into frontend events
// and, when interactive, modal messages. It returns the run result.
func (s *ConversionService) consume(ctx context.Context, updates <-chan etl.Update, interactive bool) *etl.ConversionResult {
	var result *etl.ConversionResult
	for u := range updates {
		switch u.Kind {
		case etl.UpdateStatus:
			s.logger.Debug("status", zap.String("message", u.Message), zap.Float64("percent", u.Percent))
			s.emitter.Emit(ctx, EventStatus, StatusEvent{
				Message: u.Message,
				Percent: u.Percent,
				Index:   u.Index,
				Total:   u.Total,
				File:    u.File,
			})

		case etl.UpdateFileError:
			op, cause := "", u.Err
			var fe *etl.FileError
			if errors.As(u.Err, &fe) {
				op, cause = fe.Op, fe.Err
			}
			msg := fmt.Sprintf("Error processing file %s: %v", u.File, cause)
			s.logger.Warn("file failed", zap.String("file", u.File), zap.String("op", op), zap.Error(cause))
			s.emitter.Emit(ctx, EventFileError, FileErrorEvent{File: u.File, Op: op, Message: msg})
			if interactive {
				s.notifier.Error("Error", msg)
			}

		case etl.UpdateDone:
			result = u.Result
		}
	}
	if result == nil {
		return nil
	}

	if s.runs != nil {
		if err := s.runs.CreateRun(etl.NewRunLog(result)); err != nil {
			s.logger.Error("failed to save run log", zap.String("job", result.JobID), zap.Error(err))
		}
	}

	s.logger.Info("conversion finished",
		zap.String("job", result.JobID),
		zap.String("status", result.Status),
		zap.Int("filesSucceeded", result.FilesSucceeded),
		zap.Int("filesFailed", result.FilesFailed),
		zap.Int("rowsWritten", result.RowsWritten),
		zap.Duration("duration", result.Duration))
	s.emitter.Emit(ctx, EventDone, result)
	if interactive {
		s.notifier.Info("Done", fmt.Sprintf("Converted %d of %d files", result.FilesSucceeded, result.FilesTotal))
	}
	return result
}
