package logging

import "testing"

func TestNewLoggerDefaultsLevelWhenEmpty(t *testing.T) {
	log, err := NewLogger("", "json")
	if err != nil {
		t.Fatalf("NewLogger() error = %v, want nil", err)
	}
	log.Info("default level smoke test")
}

func TestNewLoggerAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := NewLogger(level, "json"); err != nil {
			t.Errorf("NewLogger(%q) error = %v, want nil", level, err)
		}
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("deafening", "json"); err == nil {
		t.Fatal("NewLogger() error = nil, want an error for an unknown level")
	}
}

func TestNewLoggerSupportsConsoleFormat(t *testing.T) {
	log, err := NewLogger("info", "console")
	if err != nil {
		t.Fatalf("NewLogger() error = %v, want nil", err)
	}
	log.Info("console format smoke test", "key", "value")
}
