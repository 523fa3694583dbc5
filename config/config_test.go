package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Backend != BackendCNN {
		t.Errorf("Expected backend %q, got %q", BackendCNN, c.Backend)
	}
	if c.MaxFileBytes() != 20*1024*1024 {
		t.Errorf("Expected 20 MiB cap, got %d", c.MaxFileBytes())
	}
	if c.ModelFileName != "banana_classifier_model.onnx" {
		t.Errorf("Unexpected default model file %q", c.ModelFileName)
	}
	if got := c.ModelPath(); got != filepath.Join(dir, "models", "banana_classifier_model.onnx") {
		t.Errorf("Unexpected model path %q", got)
	}
	if c.Descriptions["Class A"] != "Verde" {
		t.Errorf("Expected default description for Class A, got %q", c.Descriptions["Class A"])
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := writeConfig(t, `
backend = "ResNet18"
max_file_size_mb = 5
log_level = "debug"

[descriptions]
"Class A" = "Green"
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Backend != BackendResNet18 {
		t.Errorf("Expected backend %q, got %q", BackendResNet18, c.Backend)
	}
	if c.ModelFileName != "banana_resnet18.onnx" {
		t.Errorf("Expected resnet default model file, got %q", c.ModelFileName)
	}
	if c.MaxFileBytes() != 5<<20 {
		t.Errorf("Expected 5 MiB cap, got %d", c.MaxFileBytes())
	}
	if c.Descriptions["Class A"] != "Green" || len(c.Descriptions) != 1 {
		t.Errorf("Expected overridden descriptions, got %v", c.Descriptions)
	}
	if c.MinConfidence != 60.0 {
		t.Errorf("Expected default min confidence to survive, got %v", c.MinConfidence)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown backend", `backend = "vgg"`, "unknown backend"},
		{"zero file cap", `max_file_size_mb = 0`, "max_file_size_mb"},
		{"threshold range", `min_confidence = 140.0`, "min_confidence"},
		{"malformed", `backend = `, "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestBaseDirFromEnv(t *testing.T) {
	t.Setenv(HomeEnv, "/opt/bananaripe")
	if got := BaseDir(); got != "/opt/bananaripe" {
		t.Errorf("Expected env base dir, got %q", got)
	}
}

func TestLoadDoesNotShareDefaultDescriptions(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c.Descriptions["Class A"] = "changed"
	if DefaultDescriptions["Class A"] != "Verde" {
		t.Fatalf("Editing a loaded config changed DefaultDescriptions: %q", DefaultDescriptions["Class A"])
	}
}

// Init is process-wide, so this is the only test that calls it.
func TestInitReportsMalformedConfig(t *testing.T) {
	t.Setenv(HomeEnv, writeConfig(t, "backend = [\n"))

	if err := Init(); err == nil {
		t.Fatal("Expected Init to return the parse error")
	}
	if err := Init(); err == nil {
		t.Error("Expected later calls to return the same error")
	}
	defer func() {
		if recover() == nil {
			t.Error("Expected C to panic after a failed Init")
		}
	}()
	C()
}
