// Package log supports unstructured logging with levels.
package log

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"cloud.google.com/go/logging"
)

// Severity is the severity of a log entry.
type Severity = logging.Severity

const (
	SeverityDefault  = logging.Default
	SeverityDebug    = logging.Debug
	SeverityInfo     = logging.Info
	SeverityWarning  = logging.Warning
	SeverityError    = logging.Error
	SeverityCritical = logging.Critical
)

var (
	mu     sync.Mutex
	logger interface {
		log(context.Context, logging.Severity, any)
	} = stdlibLogger{}

	// currentLevel holds current log level.
	// No logs will be printed below currentLevel.
	currentLevel = SeverityDefault
)

// stdlibLogger uses the Go standard library logger.
type stdlibLogger struct{}

func (stdlibLogger) log(ctx context.Context, s logging.Severity, payload any) {
	log.Printf("%s: %+v", s, payload)
}

// SetLevel sets the minimum severity that is logged. Unknown names
// reset it to the default, which logs everything.
func SetLevel(v string) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = toLevel(v)
}

func getLevel() logging.Severity {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel
}

func toLevel(v string) logging.Severity {
	v = strings.ToLower(v)
	if v == "" {
		return SeverityDefault
	}
	if v == "fatal" {
		return SeverityCritical
	}
	return logging.ParseSeverity(v)
}

// Debugf logs a formatted string at the Debug level.
func Debugf(ctx context.Context, format string, args ...any) {
	logf(ctx, logging.Debug, format, args)
}

// Infof logs a formatted string at the Info level.
func Infof(ctx context.Context, format string, args ...any) {
	logf(ctx, logging.Info, format, args)
}

// Warningf logs a formatted string at the Warning level.
func Warningf(ctx context.Context, format string, args ...any) {
	logf(ctx, logging.Warning, format, args)
}

func logf(ctx context.Context, s logging.Severity, format string, args []any) {
	doLog(ctx, s, fmt.Sprintf(format, args...))
}

func doLog(ctx context.Context, s logging.Severity, payload any) {
	if getLevel() > s {
		return
	}
	mu.Lock()
	l := logger
	mu.Unlock()
	l.log(ctx, s, payload)
}
