package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "RigLedger")
	logger.Info("hello", "principal", "2vxsx-fae")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["service"] != "RigLedger" {
		t.Fatalf("expected service attr, got %v", record["service"])
	}
	if record["principal"] != "2vxsx-fae" {
		t.Fatalf("expected principal attr, got %v", record["principal"])
	}
}

func TestNewWithWriterInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "loud", "")
	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}
	logger.Info("kept")
	if buf.Len() == 0 {
		t.Fatal("expected info line to be written")
	}
}
