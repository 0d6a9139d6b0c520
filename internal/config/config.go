package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Media names the external media toolchain binaries.
type Media struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Poster configures the single representative frame.
type Poster struct {
	OffsetRatio float64 `toml:"offset_ratio"`
	MaxWidth    int     `toml:"max_width"`
	Quality     int     `toml:"quality"`
}

// Storyboard configures the scrubbing sprite sheet and its cue index.
type Storyboard struct {
	Thumbnails       int     `toml:"thumbnails"`
	Columns          int     `toml:"columns"`
	ThumbWidth       int     `toml:"thumb_width"`
	ThumbHeight      int     `toml:"thumb_height"`
	NominalFrameRate float64 `toml:"nominal_frame_rate"`
	Quality          int     `toml:"quality"`
}

// Trailer configures the auto-generated preview clip.
type Trailer struct {
	ClipDuration        float64 `toml:"clip_duration"`
	ClipCount           int     `toml:"clip_count"`
	SelectionStrategy   string  `toml:"selection_strategy"`
	Width               int     `toml:"width"`
	Height              int     `toml:"height"`
	AspectRatioStrategy string  `toml:"aspect_ratio_strategy"`
	MaxWidth            int     `toml:"max_width"`
	MaxHeight           int     `toml:"max_height"`
	CRF                 int     `toml:"crf"`
	Preset              string  `toml:"preset"`
}

// Rename configures the canonical playback copy.
type Rename struct {
	Compress     bool   `toml:"compress"`
	MaxHeight    int    `toml:"max_height"`
	CRF          int    `toml:"crf"`
	Preset       string `toml:"preset"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Storage configures the blob store that receives artifacts.
type Storage struct {
	Backend       string `toml:"backend"`
	KeyPrefix     string `toml:"key_prefix"`
	LocalRoot     string `toml:"local_root"`
	PublicBaseURL string `toml:"public_base_url"`
	S3Endpoint    string `toml:"s3_endpoint"`
	S3Bucket      string `toml:"s3_bucket"`
	S3Region      string `toml:"s3_region"`
	S3AccessKey   string `toml:"s3_access_key"`
	S3SecretKey   string `toml:"s3_secret_key"`
	S3UseSSL      bool   `toml:"s3_use_ssl"`
	PresignTTL    int    `toml:"presign_ttl"`
}

// Records configures the video record store.
type Records struct {
	Driver      string `toml:"driver"`
	DatabaseURL string `toml:"database_url"`
	MaxConns    int    `toml:"max_conns"`
}

// Runtime configures the task runtime and per-job limits.
type Runtime struct {
	Workers             int `toml:"workers"`
	BatchTimeout        int `toml:"batch_timeout"`
	FetchTimeout        int `toml:"fetch_timeout"`
	StaleWorkspaceHours int `toml:"stale_workspace_hours"`
	MinFreeGiB          int `toml:"min_free_gib"`
}

// Intake configures the AMQP consumer that triggers pipeline runs.
type Intake struct {
	Enabled    bool   `toml:"enabled"`
	AMQPURL    string `toml:"amqp_url"`
	Exchange   string `toml:"exchange"`
	RoutingKey string `toml:"routing_key"`
	Queue      string `toml:"queue"`
	Prefetch   int    `toml:"prefetch"`
}

// Progress configures the Redis-backed progress tracker.
type Progress struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// API configures the HTTP trigger and status surface.
type API struct {
	Bind string `toml:"bind"`
}

// Notifications configures ntfy push messages for terminal job outcomes.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	NotifySuccess  bool   `toml:"notify_success"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for postroll.
//
// Configuration sections by subsystem:
//   - Paths: workspace, data, and log directories
//   - Media: ffmpeg/ffprobe binaries
//   - Poster, Storyboard, Trailer, Rename: per-artifact settings
//   - Storage: blob store backend (local or s3)
//   - Records: video record store (sqlite or postgres)
//   - Runtime: task runtime concurrency and timeouts
//   - Intake: AMQP trigger queue
//   - Progress: Redis progress tracker
//   - API: HTTP trigger/status bind address
//   - Notifications: ntfy topic for job outcomes
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Media         Media         `toml:"media"`
	Poster        Poster        `toml:"poster"`
	Storyboard    Storyboard    `toml:"storyboard"`
	Trailer       Trailer       `toml:"trailer"`
	Rename        Rename        `toml:"rename"`
	Storage       Storage       `toml:"storage"`
	Records       Records       `toml:"records"`
	Runtime       Runtime       `toml:"runtime"`
	Intake        Intake        `toml:"intake"`
	Progress      Progress      `toml:"progress"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A .env file in the
// working directory is loaded first so credentials can stay out of TOML.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("postroll.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.DataDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Storage.LocalRoot)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SQLitePath returns the record database location used by the sqlite driver.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Paths.DataDir, "postroll.db")
}

// Workers returns the task runtime slot count.
func (c *Config) Workers() int {
	if c.Runtime.Workers > 0 {
		return c.Runtime.Workers
	}
	return defaultWorkers()
}

// BatchTimeout bounds the parallel subtask batch of one job.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.Runtime.BatchTimeout) * time.Second
}

// FetchTimeout bounds the source download of one job.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Runtime.FetchTimeout) * time.Second
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// PresignTTL is the lifetime of presigned source URLs.
func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignTTL) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
