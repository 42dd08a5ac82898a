package eventlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	activeFileName = "events.jsonl"
	rotatedPrefix  = "events-"
	rotatedSuffix  = ".jsonl"

	// memBufferLimit bounds the in-memory buffer used while the disk
	// is failing.
	memBufferLimit = 1024
)

// Config holds the event log settings.
type Config struct {
	// Dir is the directory holding the active and rotated log files.
	Dir string

	// RotationSize is the active file size in bytes that triggers
	// rotation.
	RotationSize int64

	// RetentionCount is the number of rotated files kept before the
	// oldest is deleted.
	RetentionCount int

	// RetentionAge deletes rotated files older than this. Zero
	// disables age-based cleanup.
	RetentionAge time.Duration

	// QueueSize bounds the queue between the hot path and the
	// writer.
	QueueSize int

	// SuppressionTTL is the window within which identical detection
	// events are suppressed. Zero disables suppression.
	SuppressionTTL time.Duration
}

// Logger is the append-only session event log.
//
// Append never blocks the caller longer than a bounded enqueue;
// persistence happens on a dedicated writer goroutine. Critical kinds
// (alert transitions, session boundaries) are never dropped.
type Logger struct {
	cfg       Config
	sessionID string
	log       *slog.Logger

	events   chan Event
	critical chan Event
	wg       sync.WaitGroup

	// writer-goroutine state
	file      *os.File
	size      int64
	memBuffer []Event

	suppress *gocache.Cache

	summaryMu sync.Mutex
	summary   Summary

	dropped       atomic.Uint64
	writeFailures atomic.Uint64
	closed        atomic.Bool
}

// New opens the active log file and starts the writer. sessionID tags
// the exported summary.
func New(cfg Config, sessionID string, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory %s: %w", cfg.Dir, err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Dir, activeFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat event log: %w", err)
	}

	l := &Logger{
		cfg:       cfg,
		sessionID: sessionID,
		log:       logger.With("service", "eventlog"),
		events:    make(chan Event, cfg.QueueSize),
		critical:  make(chan Event, cfg.QueueSize),
		file:      f,
		size:      info.Size(),
		summary:   Summary{SessionID: sessionID},
	}
	if cfg.SuppressionTTL > 0 {
		l.suppress = gocache.New(cfg.SuppressionTTL, 2*cfg.SuppressionTTL)
	}

	l.wg.Add(1)
	go l.writer()

	return l, nil
}

// Append queues an event for persistence. Detection events may be
// suppressed (identical payload within the suppression TTL) or dropped
// oldest-first under queue pressure; critical events block briefly
// instead of being lost. Append must not be called after Close.
func (l *Logger) Append(ev Event) {
	if l.closed.Load() {
		return
	}

	l.summaryMu.Lock()
	l.summary.observe(ev)
	l.summaryMu.Unlock()

	if ev.Kind.Critical() {
		l.critical <- ev
		return
	}

	if ev.Kind == KindDetection && l.suppressed(ev) {
		return
	}

	select {
	case l.events <- ev:
	default:
		// Queue full: make room by discarding the oldest queued
		// detection event, then try once more.
		select {
		case <-l.events:
			l.dropped.Add(1)
		default:
		}
		select {
		case l.events <- ev:
		default:
			l.dropped.Add(1)
		}
	}
}

// RecordFrame accounts one processed frame in the session summary.
func (l *Logger) RecordFrame() {
	l.summaryMu.Lock()
	l.summary.TotalFrames++
	l.summaryMu.Unlock()
}

// Dropped reports how many non-critical events were lost to queue
// pressure or disk failure.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// WriteFailures reports how many write attempts failed.
func (l *Logger) WriteFailures() uint64 {
	return l.writeFailures.Load()
}

// suppressed reports whether an identical detection event was appended
// within the suppression TTL.
func (l *Logger) suppressed(ev Event) bool {
	if l.suppress == nil {
		return false
	}
	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		return false
	}
	key := string(raw)
	if _, found := l.suppress.Get(key); found {
		return true
	}
	l.suppress.SetDefault(key, struct{}{})
	return false
}

// Close stops accepting events, drains the queues and closes the file.
// The summary remains exportable afterwards.
func (l *Logger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	close(l.critical)
	close(l.events)
	l.wg.Wait()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Export writes the session summary as indented JSON. fps and
// latencyMS are the closing rolling metrics.
func (l *Logger) Export(path string, fps, latencyMS float64) error {
	l.summaryMu.Lock()
	summary := l.summary
	summary.Alerts = append([]AlertWindow(nil), l.summary.Alerts...)
	l.summaryMu.Unlock()

	summary.RollingFPS = fps
	summary.RollingLatencyMS = latencyMS

	data, err := json.MarshalIndent(&summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session summary: %w", err)
	}
	return nil
}

// writer drains the queues and performs all file I/O. Critical events
// are preferred when both queues have work.
func (l *Logger) writer() {
	defer l.wg.Done()

	events, critical := l.events, l.critical
	for events != nil || critical != nil {
		// Prefer critical events when available.
		select {
		case ev, ok := <-critical:
			if !ok {
				critical = nil
				continue
			}
			l.writeEvent(ev)
			continue
		default:
		}

		select {
		case ev, ok := <-critical:
			if !ok {
				critical = nil
			} else {
				l.writeEvent(ev)
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
			} else {
				l.writeEvent(ev)
			}
		}
	}
}

// writeEvent persists one event as a single NDJSON line, rotating
// first when the active file would exceed the rotation size. On disk
// failure the event is buffered in memory up to a bound.
func (l *Logger) writeEvent(ev Event) {
	line, err := json.Marshal(&ev)
	if err != nil {
		l.log.Error("failed to marshal event", "kind", ev.Kind, "error", err)
		return
	}
	line = append(line, '\n')

	if l.size > 0 && l.size+int64(len(line)) > l.cfg.RotationSize {
		if err := l.rotate(); err != nil {
			l.log.Error("event log rotation failed", "error", err)
		}
	}

	n, err := l.file.Write(line)
	if err != nil {
		l.writeFailures.Add(1)
		l.buffer(ev)
		return
	}
	l.size += int64(n)
	l.flushBuffer()
}

// buffer keeps an event in memory while the disk is failing. The
// buffer is bounded; the oldest non-critical entry gives way first.
func (l *Logger) buffer(ev Event) {
	if len(l.memBuffer) >= memBufferLimit {
		for i, buffered := range l.memBuffer {
			if !buffered.Kind.Critical() {
				l.memBuffer = append(l.memBuffer[:i], l.memBuffer[i+1:]...)
				l.dropped.Add(1)
				break
			}
		}
		if len(l.memBuffer) >= memBufferLimit {
			// Buffer full of critical events: oldest gives way.
			l.memBuffer = l.memBuffer[1:]
			l.dropped.Add(1)
		}
	}
	l.memBuffer = append(l.memBuffer, ev)
}

// flushBuffer retries buffered events after a successful write.
func (l *Logger) flushBuffer() {
	for len(l.memBuffer) > 0 {
		ev := l.memBuffer[0]
		line, err := json.Marshal(&ev)
		if err != nil {
			l.memBuffer = l.memBuffer[1:]
			continue
		}
		line = append(line, '\n')
		n, err := l.file.Write(line)
		if err != nil {
			l.writeFailures.Add(1)
			return
		}
		l.size += int64(n)
		l.memBuffer = l.memBuffer[1:]
	}
}

// rotate closes the active file, renames it with a timestamp suffix
// and opens a fresh one, then prunes rotated files past retention.
func (l *Logger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close active log: %w", err)
	}

	active := filepath.Join(l.cfg.Dir, activeFileName)
	stamp := time.Now().Format("20060102T150405.000000000")
	rotated := filepath.Join(l.cfg.Dir, rotatedPrefix+stamp+rotatedSuffix)
	if err := os.Rename(active, rotated); err != nil {
		return fmt.Errorf("failed to rename rotated log: %w", err)
	}

	f, err := os.OpenFile(active, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to reopen event log: %w", err)
	}
	l.file = f
	l.size = 0

	if err := l.prune(); err != nil {
		l.log.Warn("event log retention cleanup failed", "error", err)
	}
	return nil
}

// prune removes rotated files beyond the retention count and past the
// retention age, oldest first.
func (l *Logger) prune() error {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return err
	}

	var rotated []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, rotatedPrefix) && strings.HasSuffix(name, rotatedSuffix) {
			rotated = append(rotated, name)
		}
	}
	// Timestamp suffixes sort chronologically.
	sort.Strings(rotated)

	excess := len(rotated) - l.cfg.RetentionCount
	for i := 0; i < excess; i++ {
		if err := os.Remove(filepath.Join(l.cfg.Dir, rotated[i])); err != nil {
			return err
		}
	}
	if excess > 0 {
		rotated = rotated[excess:]
	}

	if l.cfg.RetentionAge <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-l.cfg.RetentionAge)
	for _, name := range rotated {
		path := filepath.Join(l.cfg.Dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}
	return nil
}
