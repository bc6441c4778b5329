package logging

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lunatic-fringers/wgbridge/domain/port/outbound"
)

type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

const (
	// timestamps carry millisecond precision in local time
	timestampLayout = "2006-01-02 15:04:05.000"

	defaultQueueSize = 1000
)

// implements the Logger interface by serializing every record through a
// bounded channel to a single background writer goroutine. The file handle
// is owned exclusively by that goroutine; producers only format and enqueue.
type FileLogger struct {
	file    *os.File
	writer  *bufio.Writer
	lines   chan string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Uint64

	mu    sync.RWMutex
	level LogLevel
}

// NewFileLogger opens (or creates) the log file in append mode and spawns
// the writer goroutine. The open happens here, synchronously, so the caller
// learns about a bad path immediately instead of losing the writer silently.
func NewFileLogger(path string, level string, queueSize int) (outbound.Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	l := &FileLogger{
		file:   file,
		writer: bufio.NewWriter(file),
		lines:  make(chan string, queueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		level:  ParseLevel(level),
	}

	go l.processLines()

	return l, nil
}

// ParseLevel converts a level name to a LogLevel, defaulting to info.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

func levelName(level LogLevel) string {
	switch level {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// drains the channel and writes each record, one line at a time
func (l *FileLogger) processLines() {
	defer close(l.done)

	for {
		select {
		case line := <-l.lines:
			l.writeLine(line)
		case <-l.ctx.Done():
			for {
				select {
				case line := <-l.lines:
					l.writeLine(line)
				default:
					if err := l.writer.Flush(); err != nil {
						fmt.Fprintf(os.Stderr, "wgbridge: failed to flush log: %v\n", err)
					}
					if err := l.file.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "wgbridge: failed to close log file: %v\n", err)
					}
					return
				}
			}
		}
	}
}

// a failed write is reported on stderr and the writer keeps going
func (l *FileLogger) writeLine(line string) {
	if _, err := l.writer.WriteString(line + "\n"); err != nil {
		fmt.Fprintf(os.Stderr, "wgbridge: failed to write log: %v\n", err)
		return
	}
	if err := l.writer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "wgbridge: failed to flush log: %v\n", err)
	}
}

// formatLine renders the fixed record layout: the timestamp and level are
// left-aligned with minimum widths of 20 and 8.
func formatLine(timestamp string, level LogLevel, msg string) string {
	return fmt.Sprintf("%-20s - %-8s  %s", timestamp, levelName(level), msg)
}

// enqueue hands a formatted line to the writer without ever blocking the
// caller. Lines are dropped when the logger is shut down or the queue is
// full; logging must never stall the application.
func (l *FileLogger) enqueue(line string) {
	if l.ctx.Err() != nil {
		l.dropped.Add(1)
		return
	}
	select {
	case l.lines <- line:
	default:
		l.dropped.Add(1)
	}
}

func (l *FileLogger) shouldLog(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level <= l.level
}

func (l *FileLogger) log(level LogLevel, msg string) {
	if !l.shouldLog(level) {
		return
	}
	l.enqueue(formatLine(time.Now().Format(timestampLayout), level, msg))
}

// logErr emits two records sharing one timestamp: the message, then the
// error's textual form. The two sends are separate, so records from other
// producers may land between them.
func (l *FileLogger) logErr(level LogLevel, msg string, err error) {
	if !l.shouldLog(level) {
		return
	}
	if err == nil {
		l.enqueue(formatLine(time.Now().Format(timestampLayout), level, msg))
		return
	}
	timestamp := time.Now().Format(timestampLayout)
	l.enqueue(formatLine(timestamp, level, msg))
	l.enqueue(formatLine(timestamp, level, err.Error()))
}

func (l *FileLogger) Error(msg string) { l.log(LevelError, msg) }

func (l *FileLogger) Warn(msg string) { l.log(LevelWarn, msg) }

func (l *FileLogger) Info(msg string) { l.log(LevelInfo, msg) }

func (l *FileLogger) Debug(msg string) { l.log(LevelDebug, msg) }

func (l *FileLogger) ErrorErr(msg string, err error) { l.logErr(LevelError, msg, err) }

func (l *FileLogger) WarnErr(msg string, err error) { l.logErr(LevelWarn, msg, err) }

func (l *FileLogger) InfoErr(msg string, err error) { l.logErr(LevelInfo, msg, err) }

func (l *FileLogger) DebugErr(msg string, err error) { l.logErr(LevelDebug, msg, err) }

// UpdateLevel changes the minimum emitted severity dynamically
func (l *FileLogger) UpdateLevel(level string) {
	normalized := strings.ToLower(level)

	l.mu.Lock()
	l.level = ParseLevel(normalized)
	l.mu.Unlock()

	l.Info("Log level updated to " + normalized)
}

// Shutdown stops accepting records, waits for the writer to drain every
// queued line, flush and close the file. Safe to call more than once.
func (l *FileLogger) Shutdown() {
	l.cancel()
	<-l.done
}

// Dropped reports how many records were discarded because the queue was
// full or the logger was already shut down.
func (l *FileLogger) Dropped() uint64 {
	return l.dropped.Load()
}
