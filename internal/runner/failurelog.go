package runner

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// FailureLog records failed account runs, one human-readable line each.
type FailureLog interface {
	Record(at time.Time, account string, err error) error
}

// FileFailureLog appends to a file, creating it on first use. The file is
// opened per entry, so it can be moved away between runs.
type FileFailureLog struct {
	Path string

	mu sync.Mutex
}

func (l *FileFailureLog) Record(at time.Time, account string, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ferr := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if ferr != nil {
		return ferr
	}
	if werr := writeEntry(f, at, account, err); werr != nil {
		f.Close()
		return werr
	}
	return f.Close()
}

// WriterFailureLog appends entries to an arbitrary writer.
type WriterFailureLog struct {
	W io.Writer

	mu sync.Mutex
}

func (l *WriterFailureLog) Record(at time.Time, account string, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return writeEntry(l.W, at, account, err)
}

func writeEntry(w io.Writer, at time.Time, account string, err error) error {
	_, werr := fmt.Fprintf(w, "%s [%s] %v\n", at.UTC().Format(time.RFC3339), account, err)
	return werr
}
