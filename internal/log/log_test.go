package log

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

const (
	debugMsg   = "debugMsg"
	infoMsg    = "infoMsg"
	warningMsg = "warningMsg"
)

// Do not run in parallel. It overrides currentLevel.
func TestSetLevel(t *testing.T) {
	oldLevel := getLevel()
	defer func() { currentLevel = oldLevel }()

	tests := []struct {
		name      string
		newLevel  string
		wantLevel Severity
	}{
		{name: "default level", newLevel: "", wantLevel: SeverityDefault},
		{name: "invalid level", newLevel: "xyz", wantLevel: SeverityDefault},
		{name: "debug level", newLevel: "debug", wantLevel: SeverityDebug},
		{name: "info level", newLevel: "info", wantLevel: SeverityInfo},
		{name: "upper case", newLevel: "INFO", wantLevel: SeverityInfo},
		{name: "warning level", newLevel: "warning", wantLevel: SeverityWarning},
		{name: "error level", newLevel: "error", wantLevel: SeverityError},
		{name: "fatal level", newLevel: "fatal", wantLevel: SeverityCritical},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			SetLevel(test.newLevel)
			gotLevel := getLevel()
			if test.wantLevel != gotLevel {
				t.Errorf("Error: want=%s, got=%s", test.wantLevel, gotLevel)
			}
		})
	}
}

// Do not run in parallel. It overrides logger with mockLogger.
func TestLogLevel(t *testing.T) {
	oldLogger := logger
	oldLevel := getLevel()
	defer func() {
		logger = oldLogger
		currentLevel = oldLevel
	}()
	logger = &mockLogger{}

	// logs below info(like debug) won't print
	SetLevel("info")

	tests := []struct {
		name     string
		logFunc  func(context.Context, string, ...any)
		logMsg   string
		expected bool
	}{
		{name: "debug", logFunc: Debugf, logMsg: debugMsg, expected: false},
		{name: "info", logFunc: Infof, logMsg: infoMsg, expected: true},
		{name: "warning", logFunc: Warningf, logMsg: warningMsg, expected: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			logger.(*mockLogger).logs = ""
			test.logFunc(context.Background(), test.logMsg)
			logs := logger.(*mockLogger).logs
			got := strings.Contains(logs, test.logMsg)

			if got != test.expected {
				t.Errorf("expected : %v, got %v", test.expected, got)
			}
		})
	}
}

func TestFormattedLevels(t *testing.T) {
	oldLogger := logger
	oldLevel := getLevel()
	defer func() {
		logger = oldLogger
		currentLevel = oldLevel
	}()
	m := &mockLogger{}
	logger = m
	SetLevel("warning")

	ctx := context.Background()
	Debugf(ctx, "d %d", 1)
	Infof(ctx, "i %d", 2)
	Warningf(ctx, "w %d", 3)

	want := "Warning: w 3\n"
	if m.logs != want {
		t.Errorf("logs = %q, want %q", m.logs, want)
	}
}

type mockLogger struct {
	logs string
}

func (l *mockLogger) log(ctx context.Context, s Severity, payload any) {
	l.logs += fmt.Sprintf("%s: %+v\n", s, payload)
}
