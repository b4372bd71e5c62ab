// Package logging provides leveled console output for the task runtime.
// Output is for real-time monitoring; programmatic observation of task
// lifecycles should use future.Hooks instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	taskID    string
}

// New creates a new Logger writing to stdout at info level.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		taskID:    l.taskID,
	}
}

// WithTaskID returns a new logger bound to the given task ID.
func (l *Logger) WithTaskID(taskID string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		taskID:    taskID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as sorted key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		merged := fields[0]
		if l.taskID != "" {
			merged = make(map[string]interface{}, len(fields[0])+1)
			for k, v := range fields[0] {
				merged[k] = v
			}
			merged["task"] = l.taskID
		}
		fieldStr = formatFields(merged)
	} else if l.taskID != "" {
		fieldStr = formatFields(map[string]interface{}{"task": l.taskID})
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Event-derived logging methods ---
// Called by the runtime after state transitions; they provide real-time
// console output without duplicating hook data.

// TaskScheduled logs a task entering the scheduled state.
func (l *Logger) TaskScheduled(taskID string) {
	l.Debug("task_scheduled", map[string]interface{}{
		"task": taskID,
	})
}

// TaskStarted logs the start of a task's computation.
func (l *Logger) TaskStarted(taskID string, attempt int) {
	l.Debug("task_started", map[string]interface{}{
		"task":    taskID,
		"attempt": attempt,
	})
}

// TaskCompleted logs a successful terminal transition.
func (l *Logger) TaskCompleted(taskID string, duration time.Duration) {
	l.Info("task_completed", map[string]interface{}{
		"task":     taskID,
		"duration": duration.String(),
	})
}

// TaskFaulted logs a fault captured on a task.
func (l *Logger) TaskFaulted(taskID string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"task":     taskID,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error("task_faulted", fields)
}

// TaskCanceled logs a cooperative cancellation.
func (l *Logger) TaskCanceled(taskID string) {
	l.Info("task_canceled", map[string]interface{}{
		"task": taskID,
	})
}

// TaskRetry logs a retry attempt being scheduled.
func (l *Logger) TaskRetry(taskID string, attempt int, wait time.Duration) {
	l.Warn("task_retry", map[string]interface{}{
		"task":    taskID,
		"attempt": attempt,
		"wait":    wait.String(),
	})
}

// PoolStarted logs worker pool startup.
func (l *Logger) PoolStarted(workers, queueDepth int) {
	l.Info("pool_started", map[string]interface{}{
		"workers":     workers,
		"queue_depth": queueDepth,
	})
}

// PoolDrained logs the outcome of a graceful drain.
func (l *Logger) PoolDrained(duration time.Duration, err error) {
	fields := map[string]interface{}{
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Warn("pool_drain_incomplete", fields)
		return
	}
	l.Info("pool_drained", fields)
}

// SubmitDropped logs a submission rejected after shutdown.
func (l *Logger) SubmitDropped() {
	l.Warn("submit_dropped_pool_closed")
}
