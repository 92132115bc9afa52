package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level      string    // logrus level name, "info" when empty
	OutputFile string    // Path to log file (empty = console only)
	MaxSize    int64     // Max size in bytes before rotation (default: 10MB)
	MaxBackups int       // Number of old log files to keep (default: 3)
	JSONFormat bool      // Use JSON format instead of text
	Console    io.Writer // Console destination (default: stderr)
}

// Logger is a logrus logger that may also own a log file
type Logger struct {
	*logrus.Logger

	config Config
	file   *os.File
	mu     sync.Mutex
}

// NewLogger creates a new logger instance with the given configuration.
// Logs never go to stdout, which carries the ranking output.
func NewLogger(config Config) (*Logger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024 // 10MB
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}
	if config.Console == nil {
		config.Console = os.Stderr
	}
	if config.Level == "" {
		config.Level = "info"
	}

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	l := &Logger{Logger: logrus.New(), config: config}
	l.SetLevel(level)

	writers := []io.Writer{config.Console}
	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}

		if err := l.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("failed to rotate logs: %w", err)
		}

		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.OutputFile, err)
		}
		l.file = file
		writers = append(writers, file)
	}
	l.SetOutput(io.MultiWriter(writers...))

	if config.JSONFormat {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}

	return l, nil
}

// rotateIfNeeded moves a full log file to .1, shifting older backups up
func (l *Logger) rotateIfNeeded() error {
	info, err := os.Stat(l.config.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if info.Size() < l.config.MaxSize {
		return nil
	}

	// The oldest backup falls off the end
	oldest := fmt.Sprintf("%s.%d", l.config.OutputFile, l.config.MaxBackups)
	_ = os.Remove(oldest)

	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			_ = os.Rename(oldPath, newPath)
		}
	}

	if err := os.Rename(l.config.OutputFile, l.config.OutputFile+".1"); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}

// FilePath returns the log file path, "" when logging to console only
func (l *Logger) FilePath() string {
	return l.config.OutputFile
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.SetOutput(l.config.Console)
		return err
	}
	return nil
}
