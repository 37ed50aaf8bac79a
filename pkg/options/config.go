package options

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// ConfigFileName is the conventional name of an on-disk options file.
const ConfigFileName = ".gsdconfig.json"

// jsonDuration lets a config file express a duration as a human-readable
// string ("5m") instead of raw nanoseconds.
type jsonDuration time.Duration

func (d *jsonDuration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("options: invalid duration %q: %w", s, err)
	}
	*d = jsonDuration(parsed)
	return nil
}

// LoadConfigFile reads a JSON-with-comments options file at path, merging
// it over the defaults. A missing file is not an error: the defaults are
// returned unchanged.
func LoadConfigFile(path string) (*Options, error) {
	opts := New()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return nil, fmt.Errorf("options: read config: %w", err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("options: parse config: %w", err)
	}

	var overrides struct {
		DataDir           string         `json:"dataDir"`
		DiscoveryInterval *jsonDuration  `json:"discoveryInterval"`
		BackupOptions     *backupOptions `json:"backupOptions"`
	}
	if err := json.Unmarshal(standard, &overrides); err != nil {
		return nil, fmt.Errorf("options: decode config: %w", err)
	}

	if overrides.DataDir != "" {
		opts.DataDir = overrides.DataDir
	}
	if overrides.DiscoveryInterval != nil {
		opts.DiscoveryInterval = time.Duration(*overrides.DiscoveryInterval)
	}
	if overrides.BackupOptions != nil {
		if overrides.BackupOptions.Directory != "" {
			opts.BackupOptions.Directory = overrides.BackupOptions.Directory
		}
		if overrides.BackupOptions.Prefix != "" {
			opts.BackupOptions.Prefix = overrides.BackupOptions.Prefix
		}
		if overrides.BackupOptions.KeepGenerations != 0 {
			opts.BackupOptions.KeepGenerations = overrides.BackupOptions.KeepGenerations
		}
	}

	return opts, nil
}

// SaveConfigFile persists opts to path as JSON, writing it atomically (via
// a temp file renamed into place) so a crash mid-write never leaves a
// truncated config file behind.
func SaveConfigFile(path string, opts *Options) error {
	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return fmt.Errorf("options: encode config: %w", err)
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
