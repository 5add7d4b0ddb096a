package naming

import (
	"path/filepath"
	"regexp"
	"strings"
)

// SampleSizeThreshold is the size above which a file named like a sample is
// treated as the real feature.
const SampleSizeThreshold = 100 * 1024 * 1024

var (
	samplePattern = regexp.MustCompile(`(?i)(^|[.\-_ ])sample([.\-_ ]|$)`)
	extraPattern  = regexp.MustCompile(`(?i)(^|[.\-_ ])(trailer|teaser|featurette|behind.?the.?scenes|deleted.?scenes?|making.?of)([.\-_ ]|$)`)
)

// extraDirs are folder names release groups use for bonus material.
var extraDirs = map[string]bool{
	"sample":            true,
	"samples":           true,
	"extras":            true,
	"featurettes":       true,
	"trailers":          true,
	"behind the scenes": true,
	"deleted scenes":    true,
	"interviews":        true,
	"bonus":             true,
}

// IsSample reports whether path is a release sample. size is the file size
// in bytes, or negative when unknown.
func IsSample(path string, size int64) bool {
	if size > SampleSizeThreshold {
		return false
	}
	return samplePattern.MatchString(filepath.Base(path))
}

// IsExtra reports whether path is bonus material: named like a trailer or
// featurette, or stored in an extras folder.
func IsExtra(path string) bool {
	if extraPattern.MatchString(filepath.Base(path)) {
		return true
	}
	return extraDirs[strings.ToLower(filepath.Base(filepath.Dir(path)))]
}

// IsCandidate reports whether path should be linked: a video file that is
// neither a sample nor an extra.
func IsCandidate(path string, size int64) bool {
	return IsMediaFile(path) && !IsSample(path, size) && !IsExtra(path)
}
