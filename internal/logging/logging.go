// Package logging routes process logs to stdout and an optional log file.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/k0kubun/pp"
)

var (
	mu      sync.Mutex
	logFile *os.File
	debug   bool
)

// Init directs the standard logger at stdout plus logPath (when set).
// Calling Init again closes the previous log file.
func Init(logPath string, debugEnabled bool) error {
	return InitTo(os.Stdout, logPath, debugEnabled)
}

// InitTo is Init with console output sent to console instead of stdout.
// A nil console writes to the log file only.
func InitTo(console io.Writer, logPath string, debugEnabled bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	debug = debugEnabled

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// SetOutput replaces the log destination.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(w)
}

// Close flushes and detaches the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	debug = false
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// DebugEnabled reports whether debug logging was requested at Init.
func DebugEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return debug
}

func LogEvent(format string, args ...any) {
	log.Println(fmt.Sprintf(format, args...))
}

// LogWarning records a recoverable problem, such as a skipped corpus entry.
func LogWarning(format string, args ...any) {
	log.Println("WARN " + fmt.Sprintf(format, args...))
}

func LogDebug(format string, args ...any) {
	if !DebugEnabled() {
		return
	}
	log.Println("DEBUG " + fmt.Sprintf(format, args...))
}

// LogDump pretty-prints v when debug logging is on.
func LogDump(label string, v any) {
	if !DebugEnabled() {
		return
	}
	log.Printf("DEBUG %s:\n%s", label, pp.Sprint(v))
}

// LogStage records how long one pipeline stage took for a request.
func LogStage(requestID, stage string, elapsed time.Duration) {
	LogDebug("request=%s stage=%s elapsed=%s", requestID, stage, elapsed)
}

// LogRequest records a payload exchanged with the generation host.
func LogRequest(direction, host, model, requestID string, payload any) {
	log.Println(buildRequestMessage(direction, host, model, requestID, payload))
}

func buildRequestMessage(direction, host, model, requestID string, payload any) string {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("host=%s", hostValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	if requestID = strings.TrimSpace(requestID); requestID != "" {
		parts = append(parts, fmt.Sprintf("request=%s", requestID))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

type requestIDKey struct{}

// WithRequestID attaches id to ctx so downstream log lines can carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the ID attached by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
