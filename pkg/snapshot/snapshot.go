// Package snapshot names and discovers backup generations of a GSD file.
//
// Filename format: prefix_NNNNN_timestamp.gsd.bak
//
// Where:
//   - prefix: a configurable string identifying the backup family (e.g. "backup").
//   - NNNNN: a zero-padded 5-digit generation number (00001, 00002, ...).
//   - timestamp: a nanosecond-precision Unix timestamp, for uniqueness and ordering.
//
// Example filenames:
//
//	backup_00001_1678881234567890123.gsd.bak
//	backup_00042_1678881298765432123.gsd.bak
//
// The .gsd.bak extension (rather than .gsd) keeps backup copies out of
// Discover's *.gsd directory scan.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/oywz99/gsd/pkg/filesys"
)

// Latest discovers and analyzes the most recent backup generation in
// backupDir for the given prefix.
//
// Returns:
//   - uint64: the generation number of the latest backup (1 if none exist yet).
//   - os.FileInfo: metadata for that backup (nil if none exist yet).
//   - error: any error encountered while scanning or stat-ing the directory.
func Latest(backupDir, prefix string) (uint64, os.FileInfo, error) {
	if backupDir == "" || prefix == "" {
		return 0, nil, fmt.Errorf("snapshot: backupDir and prefix must be non-empty")
	}

	latestPath, err := LatestName(backupDir, prefix)
	if err != nil {
		return 0, nil, fmt.Errorf("snapshot: discover latest backup: %w", err)
	}
	if latestPath == "" {
		return 1, nil, nil
	}

	generation, err := ParseGeneration(latestPath, prefix)
	if err != nil {
		return 0, nil, fmt.Errorf("snapshot: parse generation from %s: %w", latestPath, err)
	}

	info, err := os.Stat(latestPath)
	if err != nil {
		return 0, nil, fmt.Errorf("snapshot: stat %s: %w", latestPath, err)
	}

	return generation, info, nil
}

// LatestName searches backupDir for files matching prefix and returns the
// path of the one with the highest generation number, relying on
// lexicographic sort of the zero-padded generation plus monotonic
// timestamp to do the ordering without parsing every name.
func LatestName(backupDir, prefix string) (string, error) {
	if backupDir == "" || prefix == "" {
		return "", fmt.Errorf("snapshot: backupDir and prefix must be non-empty")
	}

	pattern := filepath.Join(backupDir, prefix+"_*.gsd.bak")
	matches, err := filesys.ReadDir(pattern)
	if err != nil {
		return "", fmt.Errorf("snapshot: read backup directory with pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	slices.Sort(matches)
	return matches[len(matches)-1], nil
}

// GenerateName builds the filename for the next backup generation.
func GenerateName(generation uint64, prefix string) string {
	if prefix == "" {
		prefix = "backup"
	}
	return fmt.Sprintf("%s_%05d_%d.gsd.bak", prefix, generation, time.Now().UnixNano())
}

// ParseGeneration extracts the generation number out of a backup filename
// produced by GenerateName.
func ParseGeneration(fullPath, prefix string) (uint64, error) {
	_, filename := filepath.Split(fullPath)

	if !strings.HasPrefix(filename, prefix) {
		return 0, fmt.Errorf("snapshot: filename %s does not start with prefix %s", filename, prefix)
	}

	withoutPrefix := strings.TrimPrefix(filename, prefix)
	withoutExt := strings.TrimSuffix(withoutPrefix, ".gsd.bak")

	parts := strings.Split(withoutExt, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("snapshot: filename %s has unexpected format, expected prefix_NNNNN_timestamp.gsd.bak", filename)
	}

	generation, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("snapshot: parse generation %q: %w", parts[1], err)
	}

	return generation, nil
}
