package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator appends to a log file and trims it to the last maxLines lines.
// Trimming happens once the file has grown to twice the limit, so the file
// is rewritten at most once per maxLines writes.
type LogRotator struct {
	file     *os.File
	buffer   *RingBuffer
	path     string
	maxLines int
	written  int // Lines in the file since the last trim
	mu       sync.Mutex
}

// OpenLogRotator opens path for appending, keeping at most maxLines lines.
// Existing lines are loaded so a reopened file keeps its recent history.
func OpenLogRotator(path string, maxLines int) (*LogRotator, error) {
	if maxLines <= 0 {
		maxLines = 10000
	}

	r := &LogRotator{
		buffer:   NewRingBuffer(maxLines),
		path:     path,
		maxLines: maxLines,
	}

	if existing, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(existing)
		for scanner.Scan() {
			r.buffer.Add(scanner.Text())
			r.written++
		}
		existing.Close()
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}
	r.file = file

	return r, nil
}

// Write implements io.Writer.
func (r *LogRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.buffer.Add(line)
		r.written++
	}

	if r.written >= r.maxLines*2 {
		if err := r.trim(); err != nil {
			return n, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	return n, nil
}

// Sync flushes the file.
func (r *LogRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.file.Sync()
}

// Close closes the file.
func (r *LogRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.file.Close()
}

// trim replaces the file with the buffered lines.
func (r *LogRotator) trim() error {
	lines := r.buffer.Lines()

	temp, err := os.CreateTemp(filepath.Dir(r.path), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	if _, err := temp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	r.file.Close()
	if err := os.Rename(tempPath, r.path); err != nil {
		os.Remove(tempPath)
		return err
	}

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	r.file = file
	r.written = len(lines)
	return nil
}
