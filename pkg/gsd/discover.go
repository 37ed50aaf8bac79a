package gsd

import (
	"fmt"

	"github.com/oywz99/gsd/pkg/filesys"
	"github.com/oywz99/gsd/pkg/options"
	"github.com/oywz99/gsd/pkg/snapshot"
)

// Discover enumerates the GSD files found anywhere under dataDir,
// including its subdirectories. It's a
// convenience for callers managing a directory of trajectory files who
// want to find candidates before calling Open on each; it does not
// validate that any returned path is actually a well-formed GSD file.
func Discover(dataDir string) ([]string, error) {
	return filesys.Discover(dataDir)
}

// Backup snapshots the file at path into the backup directory configured
// in opts, naming the copy the next generation for the configured prefix,
// and prunes older generations beyond the configured retention count. It's
// meant to be called before a caller-initiated Truncate, the one
// operation that discards committed data, giving a recovery point without
// touching the file's own wire format.
func Backup(path string, opts *options.Options) (string, error) {
	if opts == nil {
		opts = options.New()
	}

	generation, latest, err := snapshot.Latest(opts.BackupDirectory(), opts.BackupPrefix())
	if err != nil {
		return "", fmt.Errorf("gsd: determine next backup generation: %w", err)
	}
	if latest != nil {
		generation++
	}

	dest, err := filesys.Backup(path, opts.BackupDirectory(), opts.BackupPrefix(), generation, snapshot.GenerateName)
	if err != nil {
		return "", err
	}

	if err := pruneOldGenerations(opts); err != nil {
		return dest, fmt.Errorf("gsd: backup succeeded but pruning old generations failed: %w", err)
	}

	return dest, nil
}

// pruneOldGenerations removes the oldest backups in opts' backup directory
// once more than opts.KeepGenerations() exist. A retention count of zero
// disables pruning.
func pruneOldGenerations(opts *options.Options) error {
	keep := opts.KeepGenerations()
	if keep <= 0 {
		return nil
	}

	names, err := filesys.SearchFileExtensions(opts.BackupDirectory(), nil, ".bak")
	if err != nil {
		return err
	}
	if len(names) <= keep {
		return nil
	}

	// names are lexicographically sortable by construction (zero-padded
	// generation, monotonic timestamp); SearchFileExtensions walks the
	// directory tree in sorted order already via filepath.WalkDir.
	excess := len(names) - keep
	for _, name := range names[:excess] {
		if err := filesys.DeleteFile(name); err != nil {
			return err
		}
	}

	return nil
}
