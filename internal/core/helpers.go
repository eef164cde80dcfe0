package core

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Quarantine key prefixes.
const (
	InvalidPrefix   = "invalid_file_with_attempted_timestamps"
	DuplicatePrefix = "duplicate_file_with_attempted_timestamps"
)

// QuarantineTimestampLayout is the UTC layout appended to quarantined keys.
const QuarantineTimestampLayout = "20060102T150405.000Z"

// Destination key layouts.
const (
	KeyLayoutFlat  = "flat"
	KeyLayoutDated = "dated"
)

// QuarantineKey builds "<prefix>/<originalKey>_<UTC timestamp>". Leading slashes of the original key are dropped
// so the result never contains an empty path segment.
func QuarantineKey(prefix string, originalKey string, now time.Time) string {
	key := strings.TrimLeft(originalKey, "/")
	return fmt.Sprintf("%s/%s_%s", prefix, key, now.UTC().Format(QuarantineTimestampLayout))
}

// FileName returns the last path segment of an object key.
func FileName(key string) string {
	return path.Base(strings.TrimRight(key, "/"))
}

// IsKeyLayout checks if layout names a supported destination key layout.
func IsKeyLayout(layout string) bool {
	return layout == "" || layout == KeyLayoutFlat || layout == KeyLayoutDated
}

// DestinationKey computes the destination key for a classified object.
//
// Parameters:
//   - layout: KeyLayoutFlat (or empty) keeps the file name; KeyLayoutDated prefixes it with "<level>/<YYYY>/<MM>".
//   - parsed: The classified filename.
//   - originalKey: The key in the source bucket.
func DestinationKey(layout string, parsed *ParsedFilename, originalKey string) string {
	name := FileName(originalKey)
	if layout != KeyLayoutDated || parsed == nil || parsed.Time.IsZero() {
		return name
	}

	t := parsed.Time.UTC()
	return path.Join(parsed.Level, t.Format("2006"), t.Format("01"), name)
}
