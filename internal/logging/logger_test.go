package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/btcprophets/leaderboard/internal/config"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "prophets-leaderboard", config.LogConfig{Level: "info"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("leaderboard computed", "entries", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if line["service"] != "prophets-leaderboard" || line["msg"] != "leaderboard computed" {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "svc", config.LogConfig{Level: "WARN", Format: "text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("level filter not applied: %q", out)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "svc", config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := New(&bytes.Buffer{}, "svc", config.LogConfig{Format: "xml"}); err == nil {
		t.Error("expected error for invalid format")
	}
}
