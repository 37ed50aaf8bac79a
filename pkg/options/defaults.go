package options

import "time"

const (
	// DefaultDataDir is the base directory used when none is configured.
	DefaultDataDir = "."

	// DefaultDiscoveryInterval is the advisory rescan interval.
	DefaultDiscoveryInterval = 5 * time.Minute

	// DefaultBackupDirectory is the default subdirectory backup
	// generations are written to.
	DefaultBackupDirectory = "backups"

	// DefaultBackupPrefix is the default prefix for backup generation
	// filenames.
	DefaultBackupPrefix = "backup"

	// DefaultKeepGenerations is the default backup generation retention
	// count.
	DefaultKeepGenerations = 10
)

// defaultOptions holds the default configuration.
var defaultOptions = Options{
	DataDir:           DefaultDataDir,
	DiscoveryInterval: DefaultDiscoveryInterval,
	BackupOptions: &backupOptions{
		Directory:       DefaultBackupDirectory,
		Prefix:          DefaultBackupPrefix,
		KeepGenerations: DefaultKeepGenerations,
	},
}

// NewDefaultOptions returns a copy of the default configuration.
func NewDefaultOptions() Options {
	opts := defaultOptions
	backup := *defaultOptions.BackupOptions
	opts.BackupOptions = &backup
	return opts
}

// New builds an Options value from defaults plus the given overrides.
func New(opts ...OptionFunc) *Options {
	o := NewDefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &o
}
