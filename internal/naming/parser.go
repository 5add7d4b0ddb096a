package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsableName is returned when no title can be extracted from a filename.
var ErrUnparsableName = errors.New("unparsable name")

var (
	yearRegex       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	yearParenRegex  = regexp.MustCompile(`[\(\[]((?:19|20)\d{2})[\)\]]`)
	episodeSERegex  = regexp.MustCompile(`(?i)\bS(\d{1,2})[ .-]?E(\d{1,3})`)
	episodeXRegex   = regexp.MustCompile(`\b(\d{1,2})x(\d{2,3})\b`)
	seasonRegex     = regexp.MustCompile(`(?i)\b(S\d{1,2}|Season[ .-]?\d{1,2})\b`)
	bracketRegex    = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)
	spaceRegex      = regexp.MustCompile(`\s+`)
	releasePatterns []*regexp.Regexp
)

var mediaExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpg": true, ".mpeg": true, ".m2ts": true, ".ts": true,
}

func init() {
	// Everything from the first match onwards is release noise.
	patterns := []string{
		`\b\d{3,4}[pi]\b`,
		`\b(4K|UHD)\b`,
		`\b(HDR10\+?|HDR|DoVi)\b`,
		`\b(BluRay|Blu-ray|BDRip|BRRip|REMUX|WEB-DL|WEBDL|WEBRip|HDRip|HDTV|DVDRip)\b`,
		`\b(x264|x265|HEVC|AVC|H\.?26[45])\b`,
		`\b(DTS-HD|DTS|TrueHD|Atmos|AAC|AC3|DDP?5\.1)\b`,
		`\b(PROPER|REPACK|iNTERNAL|UNRATED)\b`,
		`\b(8bit|10bit|12bit)\b`,
		`\b(TEPES|rartv|RARBG|YTS|YIFY)\b`,
	}

	releasePatterns = make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		releasePatterns = append(releasePatterns, regexp.MustCompile(`(?i)`+pattern))
	}
}

// IsMediaFile reports whether path has a video file extension.
func IsMediaFile(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Parse extracts a title, year, season and episode from a filename.
//
// kind is the hint given by the watch directory the file was found in.
// Movies never carry season or episode numbers; an episode hint requires
// an episode marker (S01E02, 1x02). With KindUnknown the presence of an
// episode marker decides. Parse never panics; names it cannot make sense
// of return an error wrapping ErrUnparsableName.
func Parse(path string, kind Kind) (*ParsedGuess, error) {
	return ParseWithin(path, "", kind)
}

// ParseWithin is Parse for a file below the watch directory root. Bare
// episode names borrow the show title from their folders, but never from
// root or anything above it. An empty root leaves the climb unbounded.
func ParseWithin(path, root string, kind Kind) (*ParsedGuess, error) {
	base := filepath.Base(path)
	name := strings.ReplaceAll(stripExtension(base), "_", " ")
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty name %q", ErrUnparsableName, base)
	}

	guess := &ParsedGuess{Kind: kind}
	titlePart := name

	season, episode, loc, found := extractEpisodeInfo(name)
	switch {
	case found && kind != KindMovie:
		guess.Kind = KindEpisode
		guess.Season = season
		guess.Episode = episode
		titlePart = name[:loc]
		if t, _ := splitTitleYear(titlePart); cleanTitle(t) == "" {
			titlePart = parentTitle(path, root)
		}
	case kind == KindEpisode:
		return nil, fmt.Errorf("%w: no episode marker in %q", ErrUnparsableName, base)
	default:
		guess.Kind = KindMovie
	}

	title, year := splitTitleYear(titlePart)
	title = cleanTitle(title)
	if title == "" {
		return nil, fmt.Errorf("%w: no title in %q", ErrUnparsableName, base)
	}

	guess.Title = title
	guess.Year = year
	return guess, nil
}

func stripExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || !mediaExtensions[strings.ToLower(ext)] {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// splitTitleYear returns the text before the release year and the year.
// A year in parentheses wins; otherwise the last plausible year that is
// not the very first token is used, so "2012.2009" keeps 2012 as the title.
func splitTitleYear(s string) (string, int) {
	if m := yearParenRegex.FindStringSubmatchIndex(s); m != nil {
		year, _ := strconv.Atoi(s[m[2]:m[3]])
		return s[:m[0]], year
	}

	maxYear := time.Now().Year() + 1
	locs := yearRegex.FindAllStringIndex(s, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		start, end := locs[i][0], locs[i][1]
		if strings.TrimSpace(strings.Trim(s[:start], ".- ")) == "" {
			continue
		}
		year, _ := strconv.Atoi(s[start:end])
		if year < 1900 || year > maxYear {
			continue
		}
		return s[:start], year
	}

	return s, 0
}

func cleanTitle(s string) string {
	s = bracketRegex.ReplaceAllString(s, " ")
	s = cutAtReleaseMarker(s)
	s = strings.NewReplacer(".", " ", "_", " ").Replace(s)
	s = normalizeSpaces(s)
	s = strings.Trim(s, " -.")
	if s != "" && s == strings.ToLower(s) {
		s = TitleCase(s)
	}
	return s
}

func cutAtReleaseMarker(s string) string {
	cut := len(s)
	for _, re := range releasePatterns {
		if loc := re.FindStringIndex(s); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	return s[:cut]
}

// parentTitle derives a show title from the directories above an episode
// whose own name carries nothing but the episode marker. The climb stops
// before root.
func parentTitle(path, root string) string {
	dir := filepath.Dir(path)
	for i := 0; i < 2; i++ {
		parent := filepath.Dir(dir)
		if parent == dir || !below(root, dir) {
			break
		}
		name := strings.ReplaceAll(filepath.Base(dir), "_", " ")
		if loc := seasonRegex.FindStringIndex(name); loc != nil {
			name = name[:loc[0]]
		}
		if t, _ := splitTitleYear(name); cleanTitle(t) != "" {
			return name
		}
		dir = parent
	}
	return ""
}

// below reports whether dir lies strictly inside root. Any dir is below an
// empty root.
func below(root, dir string) bool {
	if root == "" {
		return true
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(dir))
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func extractEpisodeInfo(s string) (season, episode, start int, found bool) {
	if m := episodeSERegex.FindStringSubmatchIndex(s); m != nil {
		season, _ = strconv.Atoi(s[m[2]:m[3]])
		episode, _ = strconv.Atoi(s[m[4]:m[5]])
		return season, episode, m[0], true
	}

	if m := episodeXRegex.FindStringSubmatchIndex(s); m != nil {
		season, _ = strconv.Atoi(s[m[2]:m[3]])
		episode, _ = strconv.Atoi(s[m[4]:m[5]])
		return season, episode, m[0], true
	}

	return 0, 0, 0, false
}

func normalizeSpaces(s string) string {
	return spaceRegex.ReplaceAllString(s, " ")
}
