package naming

import (
	"path/filepath"
	"testing"
)

func TestFormat_ResolvedMovie(t *testing.T) {
	source := "/watch/movies/Batman.Begins.2005.1080p.BluRay.x264.mkv"
	guess, err := Parse(source, KindMovie)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	meta := &ResolvedMetadata{
		CanonicalTitle: "Batman Begins",
		Year:           2005,
		ExternalID:     "tt0372784",
		Kind:           KindMovie,
	}

	target := Format(source, "/library/movies", guess, meta)

	wantFolder := filepath.Join("/library/movies", "Batman Begins (2005) {imdb-tt0372784}")
	if target.FolderPath != wantFolder {
		t.Errorf("FolderPath = %q, want %q", target.FolderPath, wantFolder)
	}
	if target.FileName != "Batman Begins (2005).mkv" {
		t.Errorf("FileName = %q, want %q", target.FileName, "Batman Begins (2005).mkv")
	}
	if !target.Verified {
		t.Error("expected resolved target to be verified")
	}
	if target.SourcePath != source {
		t.Errorf("SourcePath = %q, want %q", target.SourcePath, source)
	}
	if got := target.LinkPath(); got != filepath.Join(wantFolder, "Batman Begins (2005).mkv") {
		t.Errorf("LinkPath = %q", got)
	}
}

func TestFormat_UnresolvedFallsBackToGuess(t *testing.T) {
	guess := &ParsedGuess{Title: "Some Indie Film", Year: 2019, Kind: KindMovie}

	target := Format("/watch/movies/Some.Indie.Film.2019.mp4", "/library/movies", guess, nil)

	if got := filepath.Base(target.FolderPath); got != "Some Indie Film (2019)" {
		t.Errorf("folder = %q, want %q", got, "Some Indie Film (2019)")
	}
	if target.FileName != "Some Indie Film (2019).mp4" {
		t.Errorf("FileName = %q", target.FileName)
	}
	if target.Verified {
		t.Error("expected fallback target to be unverified")
	}
}

func TestFormat_MetadataOverridesGuess(t *testing.T) {
	guess := &ParsedGuess{Title: "Spirited Away", Year: 2002, Kind: KindMovie}
	meta := &ResolvedMetadata{CanonicalTitle: "Spirited Away", Year: 2001, ExternalID: "tt0245429"}

	target := Format("/w/Spirited.Away.2002.mkv", "/lib", guess, meta)

	if got := filepath.Base(target.FolderPath); got != "Spirited Away (2001) {imdb-tt0245429}" {
		t.Errorf("folder = %q", got)
	}
}

func TestFormat_Episodes(t *testing.T) {
	tests := []struct {
		name       string
		meta       *ResolvedMetadata
		wantFolder string
		wantFile   string
	}{
		{
			name: "with episode title",
			meta: &ResolvedMetadata{
				CanonicalTitle: "Breaking Bad",
				Year:           2008,
				ExternalID:     "tt0903747",
				EpisodeTitle:   "Cat's in the Bag...",
			},
			wantFolder: "/library/tv/Breaking Bad (2008) {imdb-tt0903747}/Season 01",
			wantFile:   "Breaking Bad - S01E02 - Cat's in the Bag.mkv",
		},
		{
			name: "without episode title",
			meta: &ResolvedMetadata{
				CanonicalTitle: "Breaking Bad",
				Year:           2008,
				ExternalID:     "tt0903747",
			},
			wantFolder: "/library/tv/Breaking Bad (2008) {imdb-tt0903747}/Season 01",
			wantFile:   "Breaking Bad - S01E02.mkv",
		},
		{
			name:       "unresolved",
			meta:       nil,
			wantFolder: "/library/tv/Breaking Bad/Season 01",
			wantFile:   "Breaking Bad - S01E02.mkv",
		},
	}

	source := "/watch/tv/Breaking.Bad.S01E02.720p.HDTV.x264.mkv"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guess, err := Parse(source, KindEpisode)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			target := Format(source, "/library/tv", guess, tt.meta)
			if target.FolderPath != filepath.FromSlash(tt.wantFolder) {
				t.Errorf("FolderPath = %q, want %q", target.FolderPath, tt.wantFolder)
			}
			if target.FileName != tt.wantFile {
				t.Errorf("FileName = %q, want %q", target.FileName, tt.wantFile)
			}
		})
	}
}

func TestFormat_Deterministic(t *testing.T) {
	source := "/watch/movies/Heat.1995.1080p.mkv"
	guess := &ParsedGuess{Title: "Heat", Year: 1995, Kind: KindMovie}
	meta := &ResolvedMetadata{CanonicalTitle: "Heat", Year: 1995, ExternalID: "tt0113277"}

	first := Format(source, "/lib", guess, meta)
	for i := 0; i < 10; i++ {
		if got := Format(source, "/lib", guess, meta); got != first {
			t.Fatalf("Format returned %+v on run %d, want %+v", got, i, first)
		}
	}
}

func TestFormatExternalID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tt0372784", "imdb-tt0372784"},
		{" tt0111161 ", "imdb-tt0111161"},
		{"tmdb-272", "tmdb-272"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FormatExternalID(tt.in); got != tt.want {
			t.Errorf("FormatExternalID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mission: Impossible", "Mission - Impossible"},
		{"What If...?", "What If"},
		{"AC/DC: Live", "AC DC - Live"},
		{"  Spaced   Out  ", "Spaced Out"},
		{`Say "Hello"`, "Say Hello"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
