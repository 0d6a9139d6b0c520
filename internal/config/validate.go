package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validateTrailer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateRecords(); err != nil {
		return err
	}
	if err := c.validateRuntime(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	if c.Poster.OffsetRatio < 0 || c.Poster.OffsetRatio > 1 {
		return errors.New("poster.offset_ratio must be between 0 and 1")
	}
	if c.Poster.MaxWidth <= 0 {
		return errors.New("poster.max_width must be positive")
	}
	if c.Storyboard.Thumbnails <= 0 {
		return errors.New("storyboard.thumbnails must be positive")
	}
	if c.Storyboard.Columns <= 0 {
		return errors.New("storyboard.columns must be positive")
	}
	if c.Storyboard.ThumbWidth <= 0 || c.Storyboard.ThumbHeight <= 0 {
		return errors.New("storyboard.thumb_width and storyboard.thumb_height must be positive")
	}
	if c.Storyboard.NominalFrameRate <= 0 {
		return errors.New("storyboard.nominal_frame_rate must be positive")
	}
	if c.Rename.Compress && c.Rename.MaxHeight <= 0 {
		return errors.New("rename.max_height must be positive when rename.compress is enabled")
	}
	return nil
}

func (c *Config) validateTrailer() error {
	if c.Trailer.ClipDuration <= 0 {
		return errors.New("trailer.clip_duration must be positive")
	}
	if c.Trailer.ClipCount <= 0 {
		return errors.New("trailer.clip_count must be positive")
	}
	switch c.Trailer.SelectionStrategy {
	case SelectionUniform, SelectionRandom:
	default:
		return fmt.Errorf("trailer.selection_strategy: unsupported value %q", c.Trailer.SelectionStrategy)
	}
	switch c.Trailer.AspectRatioStrategy {
	case AspectFit, AspectCrop, AspectStretch:
	default:
		return fmt.Errorf("trailer.aspect_ratio_strategy: unsupported value %q", c.Trailer.AspectRatioStrategy)
	}
	if c.Trailer.Width <= 0 || c.Trailer.Height <= 0 {
		return errors.New("trailer.width and trailer.height must be positive")
	}
	if c.Trailer.MaxWidth <= 0 || c.Trailer.MaxHeight <= 0 {
		return errors.New("trailer.max_width and trailer.max_height must be positive")
	}
	if c.Trailer.CRF < 0 || c.Trailer.CRF > 51 {
		return errors.New("trailer.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalRoot == "" {
			return errors.New("storage.local_root is required for the local backend")
		}
	case StorageS3:
		if c.Storage.S3Endpoint == "" {
			return errors.New("storage.s3_endpoint is required for the s3 backend")
		}
		if c.Storage.S3Bucket == "" {
			return errors.New("storage.s3_bucket is required for the s3 backend")
		}
		if c.Storage.S3AccessKey == "" || c.Storage.S3SecretKey == "" {
			return errors.New("storage s3 credentials are required. Set POSTROLL_S3_ACCESS_KEY and POSTROLL_S3_SECRET_KEY or edit the config")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateRecords() error {
	switch c.Records.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Records.DatabaseURL == "" {
			return errors.New("records.database_url is required for the postgres driver. Set POSTROLL_DATABASE_URL or edit the config")
		}
	default:
		return fmt.Errorf("records.driver: unsupported value %q", c.Records.Driver)
	}
	return nil
}

func (c *Config) validateRuntime() error {
	if c.Runtime.Workers < 0 {
		return errors.New("runtime.workers must be zero (auto) or positive")
	}
	if c.Runtime.MinFreeGiB < 0 {
		return errors.New("runtime.min_free_gib must be non-negative")
	}
	return nil
}

func (c *Config) validateIntake() error {
	if !c.Intake.Enabled {
		return nil
	}
	if c.Intake.AMQPURL == "" {
		return errors.New("intake.amqp_url is required when intake is enabled. Set POSTROLL_AMQP_URL or edit the config")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
