// Package onnxrt holds the onnxruntime plumbing shared by the NLI and
// embedding stages: shared-library discovery, one-time environment
// initialization, session options and model metadata.
package onnxrt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	defaultIntraThreads = 1
	defaultInterThreads = 1
)

// Settings controls onnxruntime threading.
type Settings struct {
	IntraThreads int `yaml:"intra_threads"`
	InterThreads int `yaml:"inter_threads"`
}

func (s Settings) withDefaults() Settings {
	if s.IntraThreads <= 0 {
		s.IntraThreads = defaultIntraThreads
		if n := runtime.NumCPU() / 2; n > 1 {
			s.IntraThreads = n
		}
	}
	if s.InterThreads <= 0 {
		s.InterThreads = defaultInterThreads
	}
	return s
}

var (
	initOnce sync.Once
	initErr  error
)

// Init points onnxruntime_go at the shared library and initializes the
// environment once per process. modelDir is searched for a bundled library.
func Init(modelDir string) error {
	initOnce.Do(func() {
		libPath := resolveSharedLibraryPath(modelDir)
		if libPath == "" {
			initErr = errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if !ort.IsInitialized() {
			if err := ort.InitializeEnvironment(); err != nil {
				initErr = fmt.Errorf("initialize onnxruntime: %w", err)
			}
		}
	})
	return initErr
}

// NewSessionOptions builds options with full graph optimization and the
// configured thread counts. The caller owns the result.
func NewSessionOptions(s Settings) (*ort.SessionOptions, error) {
	s = s.withDefaults()
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(s.IntraThreads); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("set intra threads: %w", err)
	}
	if err := opts.SetInterOpNumThreads(s.InterThreads); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("set inter threads: %w", err)
	}
	return opts, nil
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common names and
// locations are searched.
func resolveSharedLibraryPath(modelDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	if modelDir != "" {
		dirs = append([]string{modelDir, filepath.Join(modelDir, "lib"), filepath.Dir(modelDir)}, dirs...)
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// ResolveModelPath prefers a quantized model.int8.onnx, then model.onnx,
// then onnx/model.onnx inside dir.
func ResolveModelPath(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("model dir is empty")
	}
	candidates := []string{
		filepath.Join(dir, "model.int8.onnx"),
		filepath.Join(dir, "model.onnx"),
		filepath.Join(dir, "onnx", "model.onnx"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no onnx model found in %s", dir)
}
