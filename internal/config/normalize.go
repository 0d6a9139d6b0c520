package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeTrailer()
	c.normalizeRename()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeRecords()
	c.normalizeRuntime()
	c.normalizeIntake()
	c.normalizeProgress()
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.Notifications.NtfyTopic = envFallback(c.Notifications.NtfyTopic, "POSTROLL_NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = "ffmpeg"
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = "ffprobe"
	}
}

func (c *Config) normalizeTrailer() {
	c.Trailer.SelectionStrategy = strings.ToLower(strings.TrimSpace(c.Trailer.SelectionStrategy))
	if c.Trailer.SelectionStrategy == "" {
		c.Trailer.SelectionStrategy = defaultTrailerStrategy
	}
	c.Trailer.AspectRatioStrategy = strings.ToLower(strings.TrimSpace(c.Trailer.AspectRatioStrategy))
	if c.Trailer.AspectRatioStrategy == "" {
		c.Trailer.AspectRatioStrategy = defaultAspectStrategy
	}
	c.Trailer.Preset = strings.TrimSpace(c.Trailer.Preset)
	if c.Trailer.Preset == "" {
		c.Trailer.Preset = defaultPreset
	}
}

func (c *Config) normalizeRename() {
	c.Rename.Preset = strings.TrimSpace(c.Rename.Preset)
	if c.Rename.Preset == "" {
		c.Rename.Preset = defaultPreset
	}
	c.Rename.AudioBitrate = strings.TrimSpace(c.Rename.AudioBitrate)
	if c.Rename.AudioBitrate == "" {
		c.Rename.AudioBitrate = defaultRenameAudioBitrate
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	c.Storage.KeyPrefix = strings.Trim(strings.TrimSpace(c.Storage.KeyPrefix), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if strings.TrimSpace(c.Storage.LocalRoot) == "" {
		c.Storage.LocalRoot = defaultLocalRoot
	}
	var err error
	if c.Storage.LocalRoot, err = expandPath(c.Storage.LocalRoot); err != nil {
		return fmt.Errorf("storage.local_root: %w", err)
	}
	c.Storage.S3Endpoint = strings.TrimSpace(c.Storage.S3Endpoint)
	c.Storage.S3Bucket = strings.TrimSpace(c.Storage.S3Bucket)
	c.Storage.S3AccessKey = envFallback(c.Storage.S3AccessKey, "POSTROLL_S3_ACCESS_KEY")
	c.Storage.S3SecretKey = envFallback(c.Storage.S3SecretKey, "POSTROLL_S3_SECRET_KEY")
	if c.Storage.PresignTTL <= 0 {
		c.Storage.PresignTTL = defaultPresignTTL
	}
	return nil
}

func (c *Config) normalizeRecords() {
	c.Records.Driver = strings.ToLower(strings.TrimSpace(c.Records.Driver))
	if c.Records.Driver == "" {
		c.Records.Driver = DriverSQLite
	}
	c.Records.DatabaseURL = envFallback(c.Records.DatabaseURL, "POSTROLL_DATABASE_URL")
	if c.Records.MaxConns <= 0 {
		c.Records.MaxConns = defaultMaxConns
	}
}

func (c *Config) normalizeRuntime() {
	if c.Runtime.BatchTimeout <= 0 {
		c.Runtime.BatchTimeout = defaultBatchTimeout
	}
	if c.Runtime.FetchTimeout <= 0 {
		c.Runtime.FetchTimeout = defaultFetchTimeout
	}
	if c.Runtime.StaleWorkspaceHours <= 0 {
		c.Runtime.StaleWorkspaceHours = defaultStaleWorkspaceHours
	}
}

func (c *Config) normalizeIntake() {
	c.Intake.AMQPURL = envFallback(c.Intake.AMQPURL, "POSTROLL_AMQP_URL")
	c.Intake.Exchange = strings.TrimSpace(c.Intake.Exchange)
	c.Intake.RoutingKey = strings.TrimSpace(c.Intake.RoutingKey)
	if c.Intake.RoutingKey == "" {
		c.Intake.RoutingKey = defaultRoutingKey
	}
	c.Intake.Queue = strings.TrimSpace(c.Intake.Queue)
	if c.Intake.Queue == "" {
		c.Intake.Queue = defaultQueue
	}
	if c.Intake.Prefetch <= 0 {
		c.Intake.Prefetch = defaultPrefetch
	}
}

func (c *Config) normalizeProgress() {
	c.Progress.RedisAddr = envFallback(c.Progress.RedisAddr, "POSTROLL_REDIS_ADDR")
	if c.Progress.RedisAddr == "" {
		c.Progress.RedisAddr = defaultRedisAddr
	}
	c.Progress.RedisPassword = envFallback(c.Progress.RedisPassword, "POSTROLL_REDIS_PASSWORD")
	if c.Progress.TTLSeconds <= 0 {
		c.Progress.TTLSeconds = defaultProgressTTL
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// envFallback returns the trimmed value, or the named environment variable
// when the value is empty.
func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
