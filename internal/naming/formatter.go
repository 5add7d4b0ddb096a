package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

var illegalChars = strings.NewReplacer(
	": ", " - ",
	":", "-",
	"<", "",
	">", "",
	"\"", "",
	"/", " ",
	"\\", " ",
	"|", " ",
	"?", "",
	"*", "",
)

// Format computes where the symlink for sourcePath belongs under targetRoot.
//
// Title and year come from meta when the lookup succeeded and from guess
// otherwise. Without an external id the folder carries no identifier
// suffix and the target is marked unverified. Format is pure: the same
// inputs always produce the same target.
func Format(sourcePath, targetRoot string, guess *ParsedGuess, meta *ResolvedMetadata) LinkTarget {
	title, year := guess.Title, guess.Year
	externalID, episodeTitle := "", ""
	if meta != nil {
		if meta.CanonicalTitle != "" {
			title = meta.CanonicalTitle
		}
		if meta.Year > 0 {
			year = meta.Year
		}
		externalID = meta.ExternalID
		episodeTitle = meta.EpisodeTitle
	}
	title = SanitizeName(title)

	folder := FolderName(title, year, externalID)
	ext := filepath.Ext(sourcePath)

	target := LinkTarget{
		Root:       targetRoot,
		SourcePath: sourcePath,
		Verified:   externalID != "",
	}

	if guess.Kind == KindEpisode {
		target.FolderPath = filepath.Join(targetRoot, folder, FormatSeasonFolder(guess.Season))
		target.FileName = FormatEpisodeFilename(title, guess.Season, guess.Episode, episodeTitle, ext)
		return target
	}

	target.FolderPath = filepath.Join(targetRoot, folder)
	target.FileName = FormatMovieFilename(title, year, ext)
	return target
}

// FolderName builds "Title (Year) {imdb-tt0372784}". Year and id parts
// are left out when unknown.
func FolderName(title string, year int, externalID string) string {
	name := BaseName(title, year)
	if id := FormatExternalID(externalID); id != "" {
		name += " {" + id + "}"
	}
	return name
}

// BaseName returns "Title (Year)", or just the title when year is unknown.
func BaseName(title string, year int) string {
	if year > 0 {
		return fmt.Sprintf("%s (%d)", title, year)
	}
	return title
}

// FormatExternalID renders an external id as a folder tag. IMDb ids get
// the "imdb-" prefix; ids that already carry a source prefix are kept.
func FormatExternalID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "tt") {
		return "imdb-" + id
	}
	return id
}

func FormatMovieFilename(title string, year int, ext string) string {
	return BaseName(title, year) + ext
}

func FormatSeasonFolder(season int) string {
	return fmt.Sprintf("Season %02d", season)
}

func FormatEpisodeFilename(title string, season, episode int, episodeTitle, ext string) string {
	name := fmt.Sprintf("%s - S%02dE%02d", title, season, episode)
	if episodeTitle = SanitizeName(episodeTitle); episodeTitle != "" {
		name += " - " + episodeTitle
	}
	return name + ext
}

// SanitizeName removes characters that are not allowed in file names on
// common filesystems and collapses whitespace.
func SanitizeName(s string) string {
	s = illegalChars.Replace(s)
	s = normalizeSpaces(s)
	return strings.Trim(s, " .")
}
