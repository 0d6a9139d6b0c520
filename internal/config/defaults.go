package config

import "runtime"

const (
	defaultConfigPath = "~/.config/postroll/config.toml"
	defaultWorkDir    = "~/.local/share/postroll/work"
	defaultDataDir    = "~/.local/share/postroll"
	defaultLogDir     = "~/.local/share/postroll/logs"
	defaultLocalRoot  = "~/.local/share/postroll/blobs"

	defaultPosterOffsetRatio = 0.33
	defaultPosterMaxWidth    = 640
	defaultPosterQuality     = 2

	defaultStoryboardThumbnails  = 25
	defaultStoryboardColumns     = 5
	defaultStoryboardThumbWidth  = 160
	defaultStoryboardThumbHeight = 90
	defaultNominalFrameRate      = 30
	defaultStoryboardQuality     = 3

	defaultClipDuration = 3
	defaultClipCount    = 5
	defaultTrailerW     = 1280
	defaultTrailerH     = 720
	defaultTrailerMaxW  = 720
	defaultTrailerMaxH  = 1280
	defaultTrailerCRF   = 23
	defaultPreset       = "veryfast"

	defaultRenameMaxHeight    = 720
	defaultRenameCRF          = 28
	defaultRenameAudioBitrate = "128k"

	defaultKeyPrefix  = "videos"
	defaultPresignTTL = 3600

	defaultMaxConns            = 10
	defaultBatchTimeout        = 1800
	defaultFetchTimeout        = 900
	defaultStaleWorkspaceHours = 24
	defaultMinFreeGiB          = 2

	defaultExchange   = "videos"
	defaultRoutingKey = "video.uploaded"
	defaultQueue      = "postroll.process"
	defaultPrefetch   = 2

	defaultRedisAddr       = "127.0.0.1:6379"
	defaultProgressTTL     = 86400
	defaultAPIBind         = "127.0.0.1:7610"
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRetentionDays   = 30
	defaultTrailerStrategy = SelectionUniform
	defaultAspectStrategy  = AspectFit
)

// Enumerated configuration values.
const (
	SelectionUniform = "uniform"
	SelectionRandom  = "random"

	AspectFit     = "fit"
	AspectCrop    = "crop"
	AspectStretch = "stretch"

	StorageLocal = "local"
	StorageS3    = "s3"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Media: Media{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
		},
		Poster: Poster{
			OffsetRatio: defaultPosterOffsetRatio,
			MaxWidth:    defaultPosterMaxWidth,
			Quality:     defaultPosterQuality,
		},
		Storyboard: Storyboard{
			Thumbnails:       defaultStoryboardThumbnails,
			Columns:          defaultStoryboardColumns,
			ThumbWidth:       defaultStoryboardThumbWidth,
			ThumbHeight:      defaultStoryboardThumbHeight,
			NominalFrameRate: defaultNominalFrameRate,
			Quality:          defaultStoryboardQuality,
		},
		Trailer: Trailer{
			ClipDuration:        defaultClipDuration,
			ClipCount:           defaultClipCount,
			SelectionStrategy:   defaultTrailerStrategy,
			Width:               defaultTrailerW,
			Height:              defaultTrailerH,
			AspectRatioStrategy: defaultAspectStrategy,
			MaxWidth:            defaultTrailerMaxW,
			MaxHeight:           defaultTrailerMaxH,
			CRF:                 defaultTrailerCRF,
			Preset:              defaultPreset,
		},
		Rename: Rename{
			MaxHeight:    defaultRenameMaxHeight,
			CRF:          defaultRenameCRF,
			Preset:       defaultPreset,
			AudioBitrate: defaultRenameAudioBitrate,
		},
		Storage: Storage{
			Backend:    StorageLocal,
			KeyPrefix:  defaultKeyPrefix,
			LocalRoot:  defaultLocalRoot,
			PresignTTL: defaultPresignTTL,
			S3UseSSL:   true,
		},
		Records: Records{
			Driver:   DriverSQLite,
			MaxConns: defaultMaxConns,
		},
		Runtime: Runtime{
			BatchTimeout:        defaultBatchTimeout,
			FetchTimeout:        defaultFetchTimeout,
			StaleWorkspaceHours: defaultStaleWorkspaceHours,
			MinFreeGiB:          defaultMinFreeGiB,
		},
		Intake: Intake{
			Exchange:   defaultExchange,
			RoutingKey: defaultRoutingKey,
			Queue:      defaultQueue,
			Prefetch:   defaultPrefetch,
		},
		Progress: Progress{
			RedisAddr:  defaultRedisAddr,
			TTLSeconds: defaultProgressTTL,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
