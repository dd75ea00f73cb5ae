package sessionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	// DirName is the session log directory next to the config file.
	DirName = "session-logs"

	defaultMaxFiles   = 50
	defaultMaxEntries = 2000
	defaultEmitEvery  = 50 * time.Millisecond
)

// Test seams.
var (
	nowFn     = time.Now
	newUUIDFn = uuid.NewString
)

// Options configures a Recorder. Zero values use defaults.
type Options struct {
	MaxFiles   int
	MaxEntries int
	// OnUpdate is pinged after writes, at most once per EmitEvery. The ping
	// carries no data; receivers fetch Snapshot.
	OnUpdate  func()
	EmitEvery time.Duration
}

// Recorder keeps the current run's entries in memory and appends them to a
// JSONL file named session-<timestamp>-<uuid>.jsonl.
//
// Recorder never logs through slog; its own failures go to stderr.
type Recorder struct {
	mu       sync.RWMutex
	file     *os.File
	path     string
	ring     ringBuffer
	seq      uint64
	lastEmit time.Time
	opts     Options
}

// NewRecorder creates an in-memory recorder. Call Open to add the file.
func NewRecorder(opts Options) *Recorder {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = defaultMaxFiles
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.EmitEvery <= 0 {
		opts.EmitEvery = defaultEmitEvery
	}
	return &Recorder{ring: newRingBuffer(opts.MaxEntries), opts: opts}
}

// Open creates the session file inside dir and prunes older sessions down to
// MaxFiles. It returns the new file path.
func (r *Recorder) Open(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("session log: mkdir: %w", err)
	}
	name := fmt.Sprintf("session-%s-%s.jsonl", nowFn().Format("20060102-150405"), newUUIDFn())
	fullPath := filepath.Join(dir, name)

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return "", fmt.Errorf("session log: open: %w", err)
	}

	r.mu.Lock()
	r.file = f
	r.path = fullPath
	r.mu.Unlock()

	r.prune(dir, name)
	return fullPath, nil
}

// prune removes the oldest session files beyond MaxFiles, never the active one.
func (r *Recorder) prune(dir, current string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[session-log] failed to read log directory: %v\n", err)
		return
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "session-") && strings.HasSuffix(name, ".jsonl") {
			names = append(names, name)
		}
	}
	// The timestamp prefix orders files by creation time.
	sort.Strings(names)

	excess := len(names) - r.opts.MaxFiles
	for _, name := range names {
		if excess <= 0 {
			break
		}
		if name == current {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			fmt.Fprintf(os.Stderr, "[session-log] failed to delete old log file %s: %v\n", name, err)
			continue
		}
		excess--
	}
}

// Write implements Sink.
func (r *Recorder) Write(entry Entry) {
	var writeErr error
	var syncFile *os.File
	shouldEmit := false

	r.mu.Lock()
	r.seq++
	entry.Seq = r.seq
	if r.file != nil {
		raw, err := json.Marshal(entry)
		if err != nil {
			writeErr = err
		} else if _, err := r.file.Write(append(raw, '\n')); err != nil {
			writeErr = err
		} else if entry.Level == "error" {
			syncFile = r.file
		}
	}
	r.ring.push(entry)
	now := nowFn()
	if r.opts.OnUpdate != nil && now.Sub(r.lastEmit) >= r.opts.EmitEvery {
		r.lastEmit = now
		shouldEmit = true
	}
	r.mu.Unlock()

	// Sync outside the lock so disk latency never blocks other writers.
	if syncFile != nil {
		if err := syncFile.Sync(); err != nil && !isCloseRace(err) {
			fmt.Fprintf(os.Stderr, "[session-log] failed to sync log file: %v\n", err)
		}
	}
	if writeErr != nil {
		fmt.Fprintf(os.Stderr, "[session-log] failed to write log entry: %v\n", writeErr)
	}
	if shouldEmit {
		r.opts.OnUpdate()
	}
}

// Snapshot returns the retained entries, oldest first.
func (r *Recorder) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ring.snapshot()
}

// Path returns the session file path, or "" before Open.
func (r *Recorder) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Close closes the session file. Entries keep accumulating in memory.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// isCloseRace matches Sync failures caused by a concurrent Close.
func isCloseRace(err error) bool {
	return errors.Is(err, os.ErrClosed) ||
		(runtime.GOOS == "windows" && errors.Is(err, syscall.EINVAL))
}

// ringBuffer is a fixed-capacity circular buffer. Callers hold Recorder.mu.
type ringBuffer struct {
	buf   []Entry
	head  int
	count int
}

func newRingBuffer(capacity int) ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return ringBuffer{buf: make([]Entry, capacity)}
}

func (rb *ringBuffer) push(entry Entry) {
	bufCap := len(rb.buf)
	if rb.count < bufCap {
		rb.buf[(rb.head+rb.count)%bufCap] = entry
		rb.count++
		return
	}
	rb.buf[rb.head] = entry
	rb.head = (rb.head + 1) % bufCap
}

func (rb *ringBuffer) snapshot() []Entry {
	out := make([]Entry, rb.count)
	first := min(len(rb.buf)-rb.head, rb.count)
	copy(out, rb.buf[rb.head:rb.head+first])
	if rest := rb.count - first; rest > 0 {
		copy(out[first:], rb.buf[:rest])
	}
	return out
}
