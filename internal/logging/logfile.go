package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const logFilePrefix = "provisioner-"

// LogConfig selects where log records go.
type LogConfig struct {
	Format        string // human (default), text, json
	Level         string // DEBUG, INFO (default), WARN, ERROR
	Output        string // "" or "-" for stderr, "none" to disable, "auto" for a generated file in Dir, or a path
	Dir           string // directory for "auto" and relative paths
	RetentionDays int    // days to keep generated files, 0 keeps everything
}

// LogFile is an opened log destination.
type LogFile struct {
	Path   string // empty unless logging to a file
	file   *os.File
	writer io.Writer
}

// OpenLogFile opens the destination described by cfg. Generated files are
// named provisioner-YYYYMMDD-HHMMSS-mmm.log and old ones are pruned.
func OpenLogFile(cfg *LogConfig) (*LogFile, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "-":
		return &LogFile{writer: os.Stderr}, nil
	case "none":
		return &LogFile{writer: io.Discard}, nil
	}

	lf := &LogFile{}
	switch {
	case strings.EqualFold(cfg.Output, "auto"):
		lf.Path = filepath.Join(cfg.Dir, LogFilename(time.Now().UTC()))
		if err := CleanupLogFiles(cfg.Dir, cfg.RetentionDays); err != nil {
			return nil, err
		}
	case filepath.IsAbs(cfg.Output):
		lf.Path = cfg.Output
	default:
		lf.Path = filepath.Join(cfg.Dir, cfg.Output)
	}

	if err := os.MkdirAll(filepath.Dir(lf.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(lf.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", lf.Path, err)
	}
	lf.file = f
	lf.writer = f
	return lf, nil
}

// Writer returns the destination writer.
func (lf *LogFile) Writer() io.Writer { return lf.writer }

// Close closes the file if one was opened.
func (lf *LogFile) Close() error {
	if lf.file != nil {
		return lf.file.Close()
	}
	return nil
}

// LogFilename returns the generated file name for t (UTC, millisecond precision).
func LogFilename(t time.Time) string {
	return fmt.Sprintf("%s%s-%03d.log", logFilePrefix, t.Format("20060102-150405"), t.Nanosecond()/1_000_000)
}

// CleanupLogFiles removes generated log files older than retentionDays.
func CleanupLogFiles(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log directory %q: %w", dir, err)
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
	return nil
}
