package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathEnv names an explicit config file and bypasses the lookup by environment.
const PathEnv = "RAGQA_CONFIG"

// Load reads config/<env>.yaml after loading .env from the working
// directory. A missing .env is fine.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if path := os.Getenv(PathEnv); path != "" {
		return LoadFile(path)
	}
	return LoadFile(locate(env))
}

// LoadFile parses path, expanding ${VAR} and ${VAR:-default} references
// before YAML decoding, then applies defaults and validates.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expandEnv(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// GetEnv returns $ENV or "local".
func GetEnv() string {
	return cmp.Or(os.Getenv("ENV"), "local")
}

// locate prefers ./config, then the repository's config directory when run
// from a source checkout (go run, tests).
func locate(env string) string {
	name := env + ".yaml"
	_, self, _, _ := runtime.Caller(0)
	repoRoot := filepath.Join(filepath.Dir(self), "..", "..")

	for _, dir := range []string{"config", filepath.Join(repoRoot, "config")} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join("config", name)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name, fallback, _ := strings.Cut(string(envRef.FindSubmatch(ref)[1]), ":-")
		return []byte(cmp.Or(os.Getenv(name), fallback))
	})
}
