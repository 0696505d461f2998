package config

import "os"

const (
	defaultConfigPath      = "~/.config/bespoke/config.toml"
	projectConfigName      = "bespoke.toml"
	defaultStoreBackend    = BackendRedis
	defaultStoreHost       = "127.0.0.1"
	defaultStorePort       = 6379
	defaultSourcesTemplate = "machinic:structured:{host}:{port}"
	defaultSourceField     = "binary_key"
	defaultKeliBinary      = "keli"
	defaultConvertBinary   = "convert"
	defaultGifsicleBinary  = "gifsicle"
	defaultMaxWorkers      = 4
	defaultAnimateDelay    = 200
	defaultFramesPrefix    = "animative"
	defaultImagePrefix     = "bespokedoc_"
	defaultImagesDir       = "images"
	defaultFence           = "keyling"
	defaultQueryLanguage   = "expr"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendSnapshot = "snapshot"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Store: Store{
			Backend:         defaultStoreBackend,
			Host:            defaultStoreHost,
			Port:            defaultStorePort,
			SourcesTemplate: defaultSourcesTemplate,
			SourceField:     defaultSourceField,
		},
		Tools: Tools{
			Keli:     defaultKeliBinary,
			Convert:  defaultConvertBinary,
			Gifsicle: defaultGifsicleBinary,
		},
		Render: Render{
			MaxWorkers: defaultMaxWorkers,
		},
		Animate: Animate{
			Delay:        defaultAnimateDelay,
			FramesPrefix: defaultFramesPrefix,
			FramesDir:    os.TempDir(),
		},
		Doc: Doc{
			ImagePrefix:   defaultImagePrefix,
			ImagesDir:     defaultImagesDir,
			Fence:         defaultFence,
			QueryLanguage: defaultQueryLanguage,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
