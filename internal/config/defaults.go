package config

const (
	defaultConfigPath          = "~/.config/mediaconv/config.toml"
	defaultWorkers             = 2
	defaultStateDir            = "~/.local/share/mediaconv"
	defaultLogDir              = "~/.local/share/mediaconv/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultInFolder            = "~/media/incoming"
	defaultOutFolder           = "~/media/converted"
	defaultPollIntervalSeconds = 0.5
	defaultWatchTimeoutSeconds = 1.0
	defaultStrategy            = StrategyFFmpeg
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultOutputContainer     = "mp4"
	defaultHistoryFile         = "history.db"
)

// Strategy kinds understood by the strategy factory.
const (
	StrategyFFmpeg = "ffmpeg"
	StrategyDrapto = "drapto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		General: General{
			Workers:  defaultWorkers,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Media: Media{
			InFolder:       defaultInFolder,
			OutFolder:      defaultOutFolder,
			PollInterval:   defaultPollIntervalSeconds,
			WatchTimeout:   defaultWatchTimeoutSeconds,
			Strategy:       defaultStrategy,
			IgnorePatterns: []string{".*", "*.part", "*.tmp"},
			OutFormat:      map[string]any{FormatKey: defaultOutputContainer},
		},
		History: History{
			Enabled: true,
		},
	}
}
