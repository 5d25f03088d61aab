package traceback

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

// DefaultConfigFileName is the configuration file looked up in the user's home
// directory when no explicit path is given.
const DefaultConfigFileName = ".tracebackrc"

// Config carries the tunables of the pipeline. The keyword and prefix sets
// exist because the runtime's header vocabulary is open-ended; new noise
// tokens can be added through configuration instead of a code change.
type Config struct {
	// MaxAdjacencyDistance is how many lines the backward scan may move past
	// the last found error header before giving up on finding another.
	MaxAdjacencyDistance int
	// HeaderKeywords are leading keywords stripped from a header's call chain.
	HeaderKeywords []string
	// FramePrefixes are noise prefixes stripped from individual chain
	// segments when a chain crosses a sourced-script boundary.
	FramePrefixes []string
	// SkipPathPrefixes mark pseudo-paths that can never resolve to real
	// source; headers referencing them are ignored.
	SkipPathPrefixes []string
	// HTTPListenAddr is the bind address of the HTTP trigger surface.
	HTTPListenAddr string
}

var defaultConfig = Config{
	MaxAdjacencyDistance: 3,
	HeaderKeywords:       []string{"function ", "command line.."},
	FramePrefixes:        []string{"function ", "script "},
	SkipPathPrefixes:     []string{"/proc/self/fd/", "/dev/fd/"},
	HTTPListenAddr:       "127.0.0.1:7478",
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return defaultConfig
}

// ReadConfig loads the configuration file from the user's home directory.
// A missing file is not an error; defaults apply.
func ReadConfig() (Config, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return Config{}, err
	}
	return ReadConfigAtPath(filepath.Join(dir, DefaultConfigFileName))
}

// ReadConfigAtPath loads the configuration file at path, backfilling every
// unset field with its default. A missing file yields the defaults.
func ReadConfigAtPath(path string) (Config, error) {
	cfg := Config{}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxAdjacencyDistance == 0 {
		cfg.MaxAdjacencyDistance = defaultConfig.MaxAdjacencyDistance
	}
	if cfg.HeaderKeywords == nil {
		cfg.HeaderKeywords = defaultConfig.HeaderKeywords
	}
	if cfg.FramePrefixes == nil {
		cfg.FramePrefixes = defaultConfig.FramePrefixes
	}
	if cfg.SkipPathPrefixes == nil {
		cfg.SkipPathPrefixes = defaultConfig.SkipPathPrefixes
	}
	if cfg.HTTPListenAddr == "" {
		cfg.HTTPListenAddr = defaultConfig.HTTPListenAddr
	}
}
