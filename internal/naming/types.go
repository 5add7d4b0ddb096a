package naming

import (
	"path/filepath"
	"strings"
)

// Kind indicates whether a file is a movie or a series episode
type Kind int

const (
	KindUnknown Kind = iota // Unknown origin, detect from the filename
	KindMovie               // File came from the movies watch directory
	KindEpisode             // File came from the series watch directory
)

// String returns a human-readable representation of the kind
func (k Kind) String() string {
	switch k {
	case KindMovie:
		return "movie"
	case KindEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// ParseKind converts a stored kind string back into a Kind
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return KindMovie
	case "episode", "series", "tv":
		return KindEpisode
	default:
		return KindUnknown
	}
}

// MediaCandidate is a file discovered in a watch directory.
type MediaCandidate struct {
	SourcePath  string
	RawFilename string
	Kind        Kind
}

// NewCandidate builds a candidate for the file at path.
func NewCandidate(path string, kind Kind) MediaCandidate {
	return MediaCandidate{
		SourcePath:  path,
		RawFilename: filepath.Base(path),
		Kind:        kind,
	}
}

// ParsedGuess is what the token parser could extract from a filename.
// Year is zero when no year was found.
type ParsedGuess struct {
	Title   string
	Year    int
	Season  int
	Episode int
	Kind    Kind
}

// ResolvedMetadata is the canonical identity of a title as reported by
// the metadata service. ExternalID is either an IMDb id ("tt0372784")
// or a prefixed fallback id ("tmdb-272").
type ResolvedMetadata struct {
	CanonicalTitle string
	Year           int
	ExternalID     string
	EpisodeTitle   string
	Kind           Kind
}

// LinkTarget is where a candidate's symlink should live.
type LinkTarget struct {
	// Root is the library target directory the folder belongs to.
	Root       string
	FolderPath string
	FileName   string
	SourcePath string
	// Verified is false when the metadata lookup failed and the folder
	// name was built from the parsed filename alone.
	Verified bool
}

// LinkPath returns the full path of the symlink.
func (t LinkTarget) LinkPath() string {
	return filepath.Join(t.FolderPath, t.FileName)
}
