package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo}, // Default to INFO
		{"", slog.LevelInfo},         // Default to INFO
		{"debug", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLogLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// Load config from non-existent file
	config, err := LoadConfig("nonexistent.yaml")
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}

	// Verify defaults
	if config.Level != "INFO" {
		t.Errorf("Default level = %q, want %q", config.Level, "INFO")
	}
	if !config.ConsoleEnabled {
		t.Error("Default ConsoleEnabled = false, want true")
	}
	if config.ConsoleFormat != "text" {
		t.Errorf("Default ConsoleFormat = %q, want %q", config.ConsoleFormat, "text")
	}
	if config.FileEnabled {
		t.Error("Default FileEnabled = true, want false")
	}
	if config.FilePath != "logs/tilewave.log" {
		t.Errorf("Default FilePath = %q, want %q", config.FilePath, "logs/tilewave.log")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	// Create a temporary YAML file
	tmpFile, err := os.CreateTemp("", "logging-test-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	yamlContent := `logging:
  level: DEBUG
  console_enabled: true
  console_format: json
  file_enabled: true
  file_path: test.log
  file_max_size_mb: 20
`
	if _, err := tmpFile.Write([]byte(yamlContent)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()

	// Load config
	config, err := LoadConfig(tmpFile.Name())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	// Verify loaded values
	if config.Level != "DEBUG" {
		t.Errorf("Level = %q, want %q", config.Level, "DEBUG")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q", config.ConsoleFormat, "json")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true")
	}
	if config.FilePath != "test.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "test.log")
	}
	if config.FileMaxSizeMB != 20 {
		t.Errorf("FileMaxSizeMB = %d, want %d", config.FileMaxSizeMB, 20)
	}
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_CONSOLE_FORMAT", "json")
	t.Setenv("LOG_FILE_ENABLED", "true")
	t.Setenv("LOG_FILE_PATH", "/custom/path.log")

	// Load config (no file)
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	// Verify env var overrides
	if config.Level != "ERROR" {
		t.Errorf("Level = %q, want %q (from env var)", config.Level, "ERROR")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q (from env var)", config.ConsoleFormat, "json")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true (from env var)")
	}
	if config.FilePath != "/custom/path.log" {
		t.Errorf("FilePath = %q, want %q (from env var)", config.FilePath, "/custom/path.log")
	}
}

// capture points the package logger at a buffer for the rest of the test
func capture(t *testing.T, format string, level slog.Level) *bytes.Buffer {
	t.Helper()
	prev := logger
	t.Cleanup(func() { logger = prev })

	var buf bytes.Buffer
	logger = slog.New(newHandler(&buf, format, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}))
	return &buf
}

func TestHandlerFormats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"msg=\"Generation finished\"", "seed=42", "sample=crossroads"}},
		{"json", []string{`"msg":"Generation finished"`, `"seed":42`, `"sample":"crossroads"`}},
		{"", []string{"seed=42"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			buf := capture(t, tt.format, slog.LevelInfo)
			Info("Generation finished", "seed", 42, "sample", "crossroads")
			Debug("Command", "command", "advance")

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %s: %s", w, out)
				}
			}
			if strings.Contains(out, "advance") {
				t.Errorf("DEBUG record written at INFO level: %s", out)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "text", slog.LevelError)

	Debug("debug record")
	Info("info record")
	Warning("warning record")
	Error("error record")
	Always("client locked out", "ip", "10.0.0.1")

	out := buf.String()
	for _, hidden := range []string{"debug record", "info record", "warning record"} {
		if strings.Contains(out, hidden) {
			t.Errorf("%q written at ERROR level", hidden)
		}
	}
	for _, shown := range []string{"error record", "client locked out", "level=ALWAYS"} {
		if !strings.Contains(out, shown) {
			t.Errorf("output missing %q: %s", shown, out)
		}
	}
}

func TestFormattedVariants(t *testing.T) {
	buf := capture(t, "text", slog.LevelDebug)

	Debugf("step %d of %d", 3, 12)
	Infof("sample %s", "gates")
	Warningf("known %.1f%%", 50.0)
	Errorf("attempt %d failed", 2)
	Alwaysf("locked for %ds", 30)

	out := buf.String()
	for _, want := range []string{"step 3 of 12", "sample gates", "known 50.0%", "attempt 2 failed", "locked for 30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var console, file bytes.Buffer
	prev := logger
	defer func() { logger = prev }()

	logger = slog.New(newMultiHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	Debug("propagated", "depth", 4)
	Warning("recording failed", "step", 7)

	if strings.Contains(console.String(), "propagated") {
		t.Error("console handler received a DEBUG record above its level")
	}
	if !strings.Contains(console.String(), "step=7") {
		t.Errorf("console handler missing WARN record: %s", console.String())
	}
	if !strings.Contains(file.String(), `"depth":4`) || !strings.Contains(file.String(), `"step":7`) {
		t.Errorf("file handler missing records: %s", file.String())
	}
}

func TestNilLogger(t *testing.T) {
	prev := logger
	logger = nil
	defer func() {
		logger = prev
		if r := recover(); r != nil {
			t.Errorf("logging before Initialize panicked: %v", r)
		}
	}()

	Debug("debug")
	Info("info")
	Warning("warning")
	Error("error")
	Always("always")
	With("session_id", "x").Info("discarded")
}

func TestLoadConfigKeepsUnsetBooleans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilewave.yaml")
	yamlContent := `logging:
  level: WARN
  file_path: other.log
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !config.ConsoleEnabled {
		t.Error("ConsoleEnabled = false, want default true when key is absent")
	}
	if config.FileEnabled {
		t.Error("FileEnabled = true, want default false when key is absent")
	}
	if config.FilePath != "other.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "other.log")
	}
}

func TestInitializeFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tilewave.log")
	config := DefaultConfig()
	config.ConsoleEnabled = false
	config.FileEnabled = true
	config.FilePath = path
	config.FileFormat = "json"

	if err := Initialize(config); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	Info("written to file", "session", "abc")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"written to file"`) {
		t.Errorf("Log file missing message: %s", data)
	}
	logger = nil
}

func TestWith(t *testing.T) {
	logger = nil
	// Discards without panicking before Initialize
	With("session", "x").Info("dropped")

	var buf bytes.Buffer
	logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	child := With("session", "abc123")
	child.Info("advanced", "step", 3)

	output := buf.String()
	if !strings.Contains(output, "session=abc123") {
		t.Errorf("Output missing inherited attribute: %s", output)
	}
	if !strings.Contains(output, "step=3") {
		t.Errorf("Output missing record attribute: %s", output)
	}
}
