package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

const (
	FileName = "config.toml"
	HomeEnv  = "BANANARIPE_HOME"
)

const (
	BackendCNN      = "cnn"
	BackendResNet18 = "resnet18"
)

type Config struct {
	Backend        string `toml:"backend"`
	Libonnx        string `toml:"libonnx"`
	ModelDir       string `toml:"model_dir"`
	ModelFileName  string `toml:"model_file_name"`
	ClassNamesFile string `toml:"class_names_file"`

	MaxFileSizeMB  int64   `toml:"max_file_size_mb"`
	MaxImagePixels int64   `toml:"max_image_pixels"`
	MinConfidence  float64 `toml:"min_confidence"`
	IntraOpThreads int     `toml:"intra_op_threads"`
	LogLevel       string  `toml:"log_level"`

	Descriptions map[string]string `toml:"descriptions"`

	// BaseDir is where relative paths are resolved from. Not read from the file.
	BaseDir string `toml:"-"`
}

var DefaultDescriptions = map[string]string{
	"Class A": "Verde",
	"Class B": "Parcialmente Madura",
	"Class C": "Madura",
	"Class D": "Passada",
}

var defaultModelFiles = map[string]string{
	BackendCNN:      "banana_classifier_model.onnx",
	BackendResNet18: "banana_resnet18.onnx",
}

func Default() Config {
	return Config{
		Backend:        BackendCNN,
		ModelDir:       "models",
		ClassNamesFile: "class_names.txt",
		MaxFileSizeMB:  20,
		// Pillow raises DecompressionBombError above twice its 89478485 warning bound.
		MaxImagePixels: 2 * 89478485,
		MinConfidence:  60.0,
		IntraOpThreads: 1,
		LogLevel:       "info",
	}
}

var (
	cfg      Config
	cfgErr   error
	loadOnce sync.Once
)

// Init loads config.toml from BaseDir once. Later calls return the first result.
func Init() error {
	loadOnce.Do(func() {
		cfg, cfgErr = Load(BaseDir())
	})
	return cfgErr
}

// C returns the process configuration. It panics if Init failed, so startup
// code should call Init first and report its error.
func C() Config {
	if err := Init(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads dir/config.toml if present and applies defaults for everything it leaves unset.
func Load(dir string) (Config, error) {
	c := Default()
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	c.BaseDir = dir
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.ModelFileName == "" {
		c.ModelFileName = defaultModelFiles[c.Backend]
	}
	if len(c.Descriptions) == 0 {
		c.Descriptions = maps.Clone(DefaultDescriptions)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if _, ok := defaultModelFiles[c.Backend]; !ok {
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendCNN, BackendResNet18)
	}
	if c.MaxFileSizeMB <= 0 {
		return errors.New("max_file_size_mb must be positive")
	}
	if c.MaxImagePixels <= 0 {
		return errors.New("max_image_pixels must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return errors.New("min_confidence must be between 0 and 100")
	}
	if c.IntraOpThreads < 0 {
		return errors.New("intra_op_threads must not be negative")
	}
	if c.ClassNamesFile == "" {
		return errors.New("class_names_file is required")
	}
	return nil
}

func (c Config) MaxFileBytes() int64 {
	return c.MaxFileSizeMB << 20
}

func (c Config) ModelPath() string {
	return c.resolve(filepath.Join(c.ModelDir, c.ModelFileName))
}

func (c Config) ClassNamesPath() string {
	return c.resolve(filepath.Join(c.ModelDir, c.ClassNamesFile))
}

func (c Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// BaseDir locates the bundled artifacts: $BANANARIPE_HOME, then the directory of the
// executable when it ships a model dir next to it, then the working directory.
func BaseDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if info, err := os.Stat(filepath.Join(dir, Default().ModelDir)); err == nil && info.IsDir() {
			return dir
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
