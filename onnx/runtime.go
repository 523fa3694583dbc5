package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

const libDir = "onnxlibs"

var platformLibs = map[string]string{
	"linux":   "libonnxruntime.so",
	"darwin":  "libonnxruntime.dylib",
	"windows": "onnxruntime.dll",
}

var systemLibs = map[string]string{
	"linux":  "/usr/local/lib/libonnxruntime.so",
	"darwin": "/usr/local/lib/libonnxruntime.dylib",
}

// LibPath picks the ONNX Runtime shared library: an explicit path wins, then a
// copy bundled under baseDir/onnxlibs, then the platform's usual install location.
func LibPath(explicit, baseDir string) string {
	if explicit != "" {
		return explicit
	}
	name, ok := platformLibs[runtime.GOOS]
	if !ok {
		return ""
	}
	bundled := filepath.Join(baseDir, libDir, name)
	if _, err := os.Stat(bundled); err == nil {
		return bundled
	}
	if p, ok := systemLibs[runtime.GOOS]; ok {
		return p
	}
	return name
}

// Init loads the shared library and creates the process-wide ORT environment.
// It must run once before any session is created.
func Init(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		return fmt.Errorf("ONNX Runtime library path could not be determined for %s", runtime.GOOS)
	}
	slog.Info("Using ONNX Runtime library", slog.String("path", libPath))
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	return nil
}

func Shutdown() {
	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
	}
}
