package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFile is a writer that appends to <dir>/<prefix>-YYYY-MM-DD.log,
// switching files when the date changes.
type DailyFile struct {
	mu      sync.Mutex
	dir     string
	prefix  string
	name    string
	current *os.File
	now     func() time.Time
}

// NewDailyFile creates dir if needed and opens today's file.
func NewDailyFile(dir, prefix string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	if prefix == "" {
		prefix = "collector"
	}

	f := &DailyFile{dir: dir, prefix: prefix, now: time.Now}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return f, nil
}

// Write appends p to the file for the current date.
func (f *DailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return f.current.Write(p)
}

// Path returns the file currently written to.
func (f *DailyFile) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return filepath.Join(f.dir, f.name)
}

// Close closes the current file.
func (f *DailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		return nil
	}
	err := f.current.Close()
	f.current = nil
	f.name = ""
	return err
}

// rotateIfNeeded opens the file for today (caller must hold lock).
func (f *DailyFile) rotateIfNeeded() error {
	name := fmt.Sprintf("%s-%s.log", f.prefix, f.now().Format("2006-01-02"))
	if name == f.name && f.current != nil {
		return nil
	}

	if f.current != nil {
		_ = f.current.Close()
	}

	fh, err := os.OpenFile(filepath.Join(f.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	f.current = fh
	f.name = name
	return nil
}
