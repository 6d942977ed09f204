package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StepLogger writes step messages to both the console and a per-step log
// file (<project dir>/logs/<step>.log). The file format is stable and parsed
// by the log summary generator:
//
//	[2006-01-02 15:04:05] [STEP] [LEVEL] message
type StepLogger struct {
	step string
	file *os.File
}

// NewStepLogger opens (appending) the log file for a step.
func NewStepLogger(projectDir, step string) (*StepLogger, error) {
	logsDir := filepath.Join(projectDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logsDir, step+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open step log: %w", err)
	}
	return &StepLogger{step: step, file: f}, nil
}

// Close flushes and closes the underlying log file.
func (l *StepLogger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *StepLogger) write(level, msg string) {
	line := fmt.Sprintf("[%s] [%s] [%s] %s",
		time.Now().Format("2006-01-02 15:04:05"),
		strings.ToUpper(l.step), level, msg)
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

// Info logs at INFO level to console and file.
func (l *StepLogger) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	Info("[" + l.step + "] " + msg)
	l.write("INFO", msg)
}

// Warn logs at WARN level to console and file.
func (l *StepLogger) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	Warn("[" + l.step + "] " + msg)
	l.write("WARN", msg)
}

// Error logs at ERROR level to console and file.
func (l *StepLogger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	Error("[" + l.step + "] " + msg)
	l.write("ERROR", msg)
}
