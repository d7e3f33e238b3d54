// Package config provides centralized configuration management.
// All environment lookups live here instead of being scattered
// through the engine and capability clients.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

// VidqlEnv holds all vidql environment variables.
type VidqlEnv struct {
	// ListenAddr is the HTTP listen address (VIDQL_ADDR)
	ListenAddr string

	// MediaDir is the directory holding uploaded videos (VIDQL_MEDIA_DIR)
	MediaDir string

	// ArtifactsDir is where generated reports are written (VIDQL_ARTIFACTS_DIR)
	ArtifactsDir string

	// TranscriptionURL is the transcription provider base URL (VIDQL_TRANSCRIPTION_URL)
	TranscriptionURL string

	// VisionURL is the vision provider base URL (VIDQL_VISION_URL)
	VisionURL string

	// GenerationURL is the document generation provider base URL (VIDQL_GENERATION_URL)
	GenerationURL string

	// LanguageURL is the language-model provider base URL (VIDQL_LANGUAGE_URL)
	LanguageURL string

	// Model is the language model used for intent analysis and
	// summarization (VIDQL_MODEL)
	Model string

	// MetricsPort is the standalone metrics listener port, 0 disables it
	// (VIDQL_METRICS_PORT)
	MetricsPort string
}

var (
	env     *VidqlEnv
	envOnce sync.Once
)

// Env returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Env() *VidqlEnv {
	envOnce.Do(func() {
		env = &VidqlEnv{
			ListenAddr:       getEnvDefault("VIDQL_ADDR", ":8080"),
			MediaDir:         getEnvDefault("VIDQL_MEDIA_DIR", Path("media")),
			ArtifactsDir:     getEnvDefault("VIDQL_ARTIFACTS_DIR", Path("artifacts")),
			TranscriptionURL: os.Getenv("VIDQL_TRANSCRIPTION_URL"),
			VisionURL:        os.Getenv("VIDQL_VISION_URL"),
			GenerationURL:    os.Getenv("VIDQL_GENERATION_URL"),
			LanguageURL:      os.Getenv("VIDQL_LANGUAGE_URL"),
			Model:            getEnvDefault("VIDQL_MODEL", "llama-3.1-8b-instruct"),
			MetricsPort:      os.Getenv("VIDQL_METRICS_PORT"),
		}
	})
	return env
}

// ResetEnv resets the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Paths holds standard vidql directory paths.
type Paths struct {
	// Home is the vidql home directory (~/.vidql)
	Home string

	// Data is the data directory (~/.vidql/data)
	Data string

	// Media is the default media directory (~/.vidql/media)
	Media string

	// Artifacts is the default artifacts directory (~/.vidql/artifacts)
	Artifacts string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		vidqlHome := filepath.Join(home, ".vidql")

		paths = &Paths{
			Home:      vidqlHome,
			Data:      filepath.Join(vidqlHome, "data"),
			Media:     filepath.Join(vidqlHome, "media"),
			Artifacts: filepath.Join(vidqlHome, "artifacts"),
		}
	})
	return paths
}

// Path returns a path under the vidql home directory.
func Path(parts ...string) string {
	p := GetPaths()
	allParts := append([]string{p.Home}, parts...)
	return filepath.Join(allParts...)
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
