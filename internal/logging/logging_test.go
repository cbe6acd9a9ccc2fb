package logging

import "testing"

func TestInitLoggerLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{"debug json", LevelDebug, FormatJSON},
		{"info text", LevelInfo, FormatText},
		{"warn json", LevelWarn, FormatJSON},
		{"error text", LevelError, FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Fatal("GetLogger() returned nil after InitLogger")
			}
		})
	}
}

func TestHelpersDoNotPanic(t *testing.T) {
	InitLogger(LevelError, FormatText)
	Debug("debug", "k", "v")
	Info("info")
	Warn("warn")
	Error("error")
	EditStaged("replace", "Reviewer A", "paragraph", 3)
	EditCommitted("replace", "Reviewer A", []int{101, 102})
	EditDiscarded("delete", ErrForTest{})
	SessionOpened("word/document.xml", 12, 100)
}

// ErrForTest is a trivial error for exercising the logging helpers.
type ErrForTest struct{}

func (ErrForTest) Error() string { return "test error" }
