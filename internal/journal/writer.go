package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/cyfral-controller/internal/intercom"
)

const (
	// DefaultBufferSize is the number of events a Writer queues before
	// Record starts dropping.
	DefaultBufferSize = 256

	// DefaultPruneInterval is how often a Writer deletes expired entries.
	DefaultPruneInterval = 24 * time.Hour

	writeTimeout = 5 * time.Second
	pruneTimeout = 30 * time.Second
)

var (
	// ErrQueueFull is returned by Writer.Record when the buffer is full.
	// The event is dropped.
	ErrQueueFull = errors.New("journal queue full")

	// ErrWriterClosed is returned by Writer.Record after Close.
	ErrWriterClosed = errors.New("journal writer closed")
)

// Logger is the logging interface used by Writer.
// Compatible with *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// store is the part of Journal a Writer drives.
type store interface {
	Record(ctx context.Context, evt intercom.Event) error
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	BufferSize    int           // default DefaultBufferSize
	Retention     time.Duration // zero disables pruning
	PruneInterval time.Duration // default DefaultPruneInterval
	Logger        Logger
}

// Writer appends events to a Journal from its own goroutine, so the
// controller loop never waits on SQLite. It also owns journal pruning.
//
// Thread Safety:
//   - Record is safe for concurrent use and never blocks.
//   - Start and Close must each be called once.
type Writer struct {
	journal       store
	logger        Logger
	queue         chan intercom.Event
	retention     time.Duration
	pruneInterval time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWriter returns a Writer for j. Events recorded before Start are
// written once it runs.
//
// Returns:
//   - *Writer: Ready to Start; satisfies intercom.Recorder
func NewWriter(j *Journal, cfg WriterConfig) *Writer {
	return newWriter(j, cfg)
}

func newWriter(j store, cfg WriterConfig) *Writer {
	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	interval := cfg.PruneInterval
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Writer{
		journal:       j,
		logger:        logger,
		queue:         make(chan intercom.Event, size),
		retention:     cfg.Retention,
		pruneInterval: interval,
		done:          make(chan struct{}),
	}
}

// Record queues evt for writing.
//
// Returns:
//   - error: ErrQueueFull if the buffer is full, ErrWriterClosed after Close
func (w *Writer) Record(_ context.Context, evt intercom.Event) error {
	select {
	case <-w.done:
		return ErrWriterClosed
	default:
	}

	select {
	case w.queue <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the write goroutine. With a retention set it prunes
// once straight away and then every prune interval.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.writeLoop()
}

// Close stops the writer after flushing queued events.
// Safe to call multiple times.
func (w *Writer) Close() error {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()

	var tick <-chan time.Time
	if w.retention > 0 {
		w.prune()
		ticker := time.NewTicker(w.pruneInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case evt := <-w.queue:
			w.write(evt)
		case <-tick:
			w.prune()
		case <-w.done:
			w.flush()
			return
		}
	}
}

func (w *Writer) flush() {
	for {
		select {
		case evt := <-w.queue:
			w.write(evt)
		default:
			return
		}
	}
}

func (w *Writer) write(evt intercom.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := w.journal.Record(ctx, evt); err != nil {
		w.logger.Warn("journal write failed", "kind", string(evt.Kind), "error", err)
	}
}

func (w *Writer) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	n, err := w.journal.Prune(ctx, w.retention)
	if err != nil {
		w.logger.Warn("journal prune failed", "error", err)
		return
	}
	if n > 0 {
		w.logger.Info("journal pruned", "deleted", n, "retention", w.retention.String())
	} else {
		w.logger.Debug("journal prune found nothing to delete")
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
