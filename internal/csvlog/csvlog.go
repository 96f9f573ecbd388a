// Package csvlog writes one CSV file per reflow run with a line per control
// tick: elapsed seconds, measured temperature, and segment target.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sweeney/reflow-controller/internal/control"
)

// FileName returns the log file name for a run started at start, built from
// the unpadded hour and minute (e.g. temp_93.csv for 09:03).
func FileName(start time.Time) string {
	return fmt.Sprintf("temp_%d%d.csv", start.Hour(), start.Minute())
}

// Logger is a per-run CSV tick log. Not safe for concurrent use.
type Logger struct {
	f    *os.File
	w    *csv.Writer
	path string
}

// Open creates (or truncates) the log file for a run in dir.
func Open(dir string, start time.Time) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName(start))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return &Logger{f: f, w: csv.NewWriter(f), path: path}, nil
}

// Path returns the file path of the log.
func (l *Logger) Path() string {
	return l.path
}

// WriteTick appends one line and flushes it so a crash loses at most the
// current tick.
func (l *Logger) WriteTick(rec control.TickRecord) error {
	row := []string{
		formatFloat(rec.Elapsed.Seconds()),
		formatFloat(rec.MeasuredC),
		formatFloat(rec.TargetC),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("write tick: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the file.
func (l *Logger) Close() error {
	l.w.Flush()
	werr := l.w.Error()
	if err := l.f.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return werr
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
