package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("debug message", nil)
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)
	logger.Error("error message", nil)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Messages below warn level should be filtered, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("Warn and error messages should be logged, got: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("scan complete", map[string]interface{}{
		"files": 12,
	})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	if entry.Level != "info" {
		t.Errorf("Expected level info, got %s", entry.Level)
	}
	if entry.Message != "scan complete" {
		t.Errorf("Expected message 'scan complete', got %s", entry.Message)
	}
	if entry.Fields["files"] != float64(12) {
		t.Errorf("Expected files field 12, got %v", entry.Fields["files"])
	}
}

func TestHumanFormatSortedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Info("graph built", map[string]interface{}{
		"nodes": 3,
		"edges": 2,
	})

	out := buf.String()
	if strings.Index(out, "edges=2") > strings.Index(out, "nodes=3") {
		t.Errorf("Fields should be sorted alphabetically, got: %s", out)
	}
}

func TestSilentLoggerDiscards(t *testing.T) {
	logger := NewSilent()
	// Must not panic and must not write anywhere visible
	logger.Error("discarded", map[string]interface{}{"key": "value"})
}
