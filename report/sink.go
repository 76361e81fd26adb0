// Package report stores pass reports as newline delimited JSON.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/perfgo/autodebugify/model"
)

// Sink appends pass reports to a report file. It is safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	f       *os.File
	w       *bufio.Writer
	path    string
	reports int
	bugs    int
}

// Create creates the report file at path, truncating an existing one.
func Create(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return &Sink{f: f, w: bufio.NewWriter(f), path: path}, nil
}

// Path returns the path of the report file.
func (s *Sink) Path() string {
	return s.path
}

// Write appends reports, one JSON object per line. The reports of one call
// are flushed together.
func (s *Sink) Write(reports ...model.PassReport) error {
	if len(reports) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Encode(s.w, reports...); err != nil {
		return err
	}
	for _, r := range reports {
		s.reports++
		s.bugs += len(r.Bugs)
	}

	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// Encode writes reports to w in the format of the report file.
func Encode(w io.Writer, reports ...model.PassReport) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", r.File, err)
		}
	}
	return nil
}

// Counts returns the number of reports and bugs written so far.
func (s *Sink) Counts() (reports, bugs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports, s.bugs
}

// Close flushes and closes the report file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
