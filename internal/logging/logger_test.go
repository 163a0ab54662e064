package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	New("Production", &buf).Info("knowledge base loaded", "chunks", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "knowledge base loaded" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["chunks"] != float64(12) {
		t.Errorf("chunks = %v", entry["chunks"])
	}
}

func TestNew_DevelopmentWritesTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	New("development", &buf).Debug("prompt composed", "simple", true)

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "simple=true") {
		t.Errorf("unexpected text log line: %q", out)
	}
}
