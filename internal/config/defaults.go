package config

import "time"

const (
	defaultDataDir           = "~/.local/share/shoebox"
	defaultLogDir            = "~/.local/share/shoebox/logs"
	defaultAPIBind           = "127.0.0.1:7419"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultWorkers           = 2
	defaultQueuePollInterval = 2 * time.Second
	defaultProgressFlush     = 25
	defaultPreviewSamples    = 3
	defaultGeocoderBaseURL   = "https://nominatim.openstreetmap.org/reverse"
	defaultGeocoderUserAgent = "shoebox/dev"
	defaultGeocoderTimeout   = 10
	defaultGeocoderIntervalM = 1100
	defaultScannerMaxDepth   = 32
)

func defaultExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".tiff", ".webp", ".heic", ".mov", ".mp4"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scanner: Scanner{
			Extensions: defaultExtensions(),
			MaxDepth:   defaultScannerMaxDepth,
		},
		Geocoder: Geocoder{
			Enabled:        true,
			BaseURL:        defaultGeocoderBaseURL,
			UserAgent:      defaultGeocoderUserAgent,
			TimeoutSeconds: defaultGeocoderTimeout,
			MinIntervalMS:  defaultGeocoderIntervalM,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ProgressFlushFiles: defaultProgressFlush,
		},
		Preview: Preview{
			SampleFiles: defaultPreviewSamples,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
