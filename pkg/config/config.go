package config

import (
	"os"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// Config holds optional defaults for dbnav. Nothing about a browsing
// session is ever written back; the file only seeds startup flags.
type Config struct {
	Options Options `yaml:"options"`
}

// Options holds global settings.
type Options struct {
	// ConnectURI is the default store URI when --connect is not given.
	ConnectURI string `yaml:"connect_uri"`
	// QueryTimeoutSeconds bounds every remote listing/fetch call.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds"`
	// DebugLog, when set, enables debug logging to the given file.
	DebugLog string `yaml:"debug_log"`
	// Compact drops list descriptions to one row per item.
	Compact bool `yaml:"compact"`
}

const defaultQueryTimeoutSeconds = 15

// DefaultConfig returns the initial config.
func DefaultConfig() Config {
	return Config{
		Options: Options{
			QueryTimeoutSeconds: defaultQueryTimeoutSeconds,
			Compact:             true,
		},
	}
}

// QueryTimeout returns the configured per-call timeout.
func (o Options) QueryTimeout() time.Duration {
	secs := o.QueryTimeoutSeconds
	if secs <= 0 {
		secs = defaultQueryTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// Load reads config with a file lock for safety. A missing file is not
// an error; it yields the defaults. The lock is only taken once the
// file is known to exist, so a fresh machine without the config
// directory still starts.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return Config{}, err
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
