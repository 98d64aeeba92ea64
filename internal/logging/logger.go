package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values default to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	fileOnce   sync.Once
	sharedFile *os.File
)

// debugLogFile opens the shared debug log file once. All component loggers
// append to the same process-wide file.
func debugLogFile() *os.File {
	fileOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("logging: resolve home dir: %v", err)
			return
		}
		path := filepath.Join(home, "bintly-debug.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("logging: open %s: %v", path, err)
			return
		}
		sharedFile = f
	})
	return sharedFile
}

// FileLogger writes formatted lines to a writer, normally the shared debug
// log file.
type FileLogger struct {
	mu        sync.Mutex
	out       io.Writer
	level     Level
	component string
}

// NewComponentLogger returns a file-backed logger scoped to a component.
// When the debug file cannot be opened the logger silently discards output.
func NewComponentLogger(component string) Logger {
	return NewComponentLoggerAt(component, LevelDebug)
}

// NewComponentLoggerAt returns a component logger with an explicit level.
func NewComponentLoggerAt(component string, level Level) Logger {
	var out io.Writer
	if f := debugLogFile(); f != nil {
		out = f
	}
	return &FileLogger{out: out, level: level, component: component}
}

// NewWriterLogger returns a logger writing to w. Used by tests and by the CLI
// when mirroring log output to stderr.
func NewWriterLogger(w io.Writer, component string, level Level) Logger {
	return &FileLogger{out: w, level: level, component: component}
}

func (l *FileLogger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *FileLogger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *FileLogger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *FileLogger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

func (l *FileLogger) log(level Level, format string, args ...any) {
	if level < l.level || l.out == nil {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	msg := fmt.Sprintf(format, args...)
	ts := time.Now().Format("2006-01-02 15:04:05.000")

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.component != "" {
		fmt.Fprintf(l.out, "[%s] [%s] [%s] %s:%d %s\n", ts, level, l.component, file, line, msg)
	} else {
		fmt.Fprintf(l.out, "[%s] [%s] %s:%d %s\n", ts, level, file, line, msg)
	}
}
