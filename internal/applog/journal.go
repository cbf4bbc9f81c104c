package applog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DirName is the log directory created next to the config file.
	DirName = "logs"

	defaultCapacity = 500
	maxLogFiles     = 20
	emitMinInterval = 50 * time.Millisecond
	timestampLayout = "20060102150405"
)

// Entry is one captured log record.
type Entry struct {
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Source    string `json:"source"`
}

// Journal is a bounded in-memory log with an optional JSONL mirror. notify
// is called, throttled, after an entry is added; receivers fetch Entries.
type Journal struct {
	mu       sync.Mutex
	entries  ring
	seq      uint64
	file     *os.File
	path     string
	lastPing time.Time
	notify   func()
}

// NewJournal creates a journal holding at most capacity entries. Capacity
// <= 0 uses the default.
func NewJournal(capacity int, notify func()) *Journal {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Journal{entries: newRing(capacity), notify: notify}
}

// OpenFile starts mirroring entries to a new file under dir and trims old
// files beyond the retention count.
func (j *Journal) OpenFile(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("termlaunch-%s-%d.jsonl", now.Format("20060102-150405"), os.Getpid())
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}

	j.mu.Lock()
	prev := j.file
	j.file = f
	j.path = path
	j.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	trimOldFiles(dir, name)
	return path, nil
}

// Path returns the active log file path, or "".
func (j *Journal) Path() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.path
}

// Record is an EntryFunc that appends to the journal.
func (j *Journal) Record(ts time.Time, level slog.Level, msg string, group string) {
	entry := Entry{
		Timestamp: ts.Format(timestampLayout),
		Level:     levelName(level),
		Message:   msg,
		Source:    group,
	}

	// slog must not be called while mu is held: the tee handler calls back here.
	var writeErr error
	ping := false

	j.mu.Lock()
	j.seq++
	entry.Seq = j.seq
	if j.file != nil {
		raw, err := json.Marshal(entry)
		if err == nil {
			_, err = j.file.Write(append(raw, '\n'))
		}
		writeErr = err
	}
	j.entries.push(entry)
	now := time.Now()
	if now.Sub(j.lastPing) >= emitMinInterval {
		j.lastPing = now
		ping = true
	}
	notify := j.notify
	j.mu.Unlock()

	if writeErr != nil {
		fmt.Fprintf(os.Stderr, "[app-log] failed to write log entry: %v\n", writeErr)
	}
	if ping && notify != nil {
		notify()
	}
}

// Entries returns the retained entries, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries.snapshot()
}

// Close stops the file mirror. The in-memory entries stay readable.
func (j *Journal) Close() error {
	j.mu.Lock()
	f := j.file
	j.file = nil
	j.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

func trimOldFiles(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[app-log] failed to read log dir: %v\n", err)
		return
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "termlaunch-") && strings.HasSuffix(name, ".jsonl") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	excess := len(names) - maxLogFiles
	for _, name := range names {
		if excess <= 0 {
			break
		}
		if name == keep {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			fmt.Fprintf(os.Stderr, "[app-log] failed to remove old log file: %v\n", err)
			continue
		}
		excess--
	}
}

// ring is a fixed-capacity circular buffer that overwrites its oldest entry.
type ring struct {
	buf   []Entry
	head  int
	count int
}

func newRing(capacity int) ring {
	if capacity < 1 {
		capacity = 1
	}
	return ring{buf: make([]Entry, capacity)}
}

func (r *ring) push(e Entry) {
	n := len(r.buf)
	if r.count < n {
		r.buf[(r.head+r.count)%n] = e
		r.count++
		return
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % n
}

func (r *ring) snapshot() []Entry {
	out := make([]Entry, r.count)
	first := min(len(r.buf)-r.head, r.count)
	copy(out, r.buf[r.head:r.head+first])
	if rest := r.count - first; rest > 0 {
		copy(out[first:], r.buf[:rest])
	}
	return out
}
