package naming

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParse_Movies(t *testing.T) {
	tests := []struct {
		filename  string
		wantTitle string
		wantYear  int
	}{
		{"Batman.Begins.2005.1080p.BluRay.x264.mkv", "Batman Begins", 2005},
		{"The Matrix (1999).mkv", "The Matrix", 1999},
		{"the.matrix.1999.720p.WEB-DL.mp4", "The Matrix", 1999},
		{"2012.2009.1080p.BluRay.mkv", "2012", 2009},
		{"1917.2019.2160p.UHD.BluRay.x265.mkv", "1917", 2019},
		{"Blade.Runner.2049.2017.1080p.mkv", "Blade Runner 2049", 2017},
		{"Spider-Man.No.Way.Home.2021.HDR.2160p.mkv", "Spider-Man No Way Home", 2021},
		{"Inception.1080p.BluRay.x264-GROUP.mkv", "Inception", 0},
		{"[YTS] Dune.Part.Two.2024.1080p.WEBRip.mp4", "Dune Part Two", 2024},
		{"Heat_1995_REPACK_1080p.mkv", "Heat", 1995},
		{"Parasite [2019] 1080p.mkv", "Parasite", 2019},
		{"Amelie", "Amelie", 0},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			guess, err := Parse(filepath.Join("/watch/movies", tt.filename), KindMovie)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.filename, err)
			}
			if guess.Title != tt.wantTitle {
				t.Errorf("Parse(%q) title = %q, want %q", tt.filename, guess.Title, tt.wantTitle)
			}
			if guess.Year != tt.wantYear {
				t.Errorf("Parse(%q) year = %d, want %d", tt.filename, guess.Year, tt.wantYear)
			}
			if guess.Kind != KindMovie {
				t.Errorf("Parse(%q) kind = %v, want movie", tt.filename, guess.Kind)
			}
		})
	}
}

func TestParse_Episodes(t *testing.T) {
	tests := []struct {
		path        string
		wantTitle   string
		wantYear    int
		wantSeason  int
		wantEpisode int
	}{
		{"/watch/tv/Breaking.Bad.S01E02.720p.HDTV.x264.mkv", "Breaking Bad", 0, 1, 2},
		{"/watch/tv/Doctor.Who.2005.S03E10.Blink.1080p.mkv", "Doctor Who", 2005, 3, 10},
		{"/watch/tv/the.office.us.s02e01.mkv", "The Office Us", 0, 2, 1},
		{"/watch/tv/Friends 1x05.mp4", "Friends", 0, 1, 5},
		{"/watch/tv/Severance_S02_E04_WEB.mkv", "Severance", 0, 2, 4},
		{"/watch/tv/The Expanse/Season 2/S02E05.mkv", "The Expanse", 0, 2, 5},
		{"/watch/tv/Dark.S01.1080p.NF.WEB-DL/S01E03.mkv", "Dark", 0, 1, 3},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			guess, err := Parse(tt.path, KindEpisode)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.path, err)
			}
			if guess.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", guess.Title, tt.wantTitle)
			}
			if guess.Year != tt.wantYear {
				t.Errorf("year = %d, want %d", guess.Year, tt.wantYear)
			}
			if guess.Season != tt.wantSeason || guess.Episode != tt.wantEpisode {
				t.Errorf("episode = S%02dE%02d, want S%02dE%02d",
					guess.Season, guess.Episode, tt.wantSeason, tt.wantEpisode)
			}
			if guess.Kind != KindEpisode {
				t.Errorf("kind = %v, want episode", guess.Kind)
			}
		})
	}
}

func TestParse_UnknownKindDetectsEpisodes(t *testing.T) {
	guess, err := Parse("/downloads/Silo.S02E02.mkv", KindUnknown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Kind != KindEpisode {
		t.Errorf("kind = %v, want episode", guess.Kind)
	}

	guess, err = Parse("/downloads/Arrival.2016.mkv", KindUnknown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guess.Kind != KindMovie {
		t.Errorf("kind = %v, want movie", guess.Kind)
	}
}

func TestParse_Unparsable(t *testing.T) {
	tests := []struct {
		name string
		path string
		kind Kind
	}{
		{"only release tags", "/watch/movies/1080p.BluRay.x264.mkv", KindMovie},
		{"only punctuation", "/watch/movies/---.mkv", KindMovie},
		{"bare extension", "/watch/movies/.mkv", KindMovie},
		{"episode without marker", "/watch/tv/Some.Show.720p.mkv", KindEpisode},
		{"episode marker with no title anywhere", "/S01E01.mkv", KindEpisode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guess, err := Parse(tt.path, tt.kind)
			if err == nil {
				t.Fatalf("Parse(%q) = %+v, want error", tt.path, guess)
			}
			if !errors.Is(err, ErrUnparsableName) {
				t.Errorf("Parse(%q) error = %v, want ErrUnparsableName", tt.path, err)
			}
		})
	}
}

func TestIsMediaFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/a/movie.mkv", true},
		{"/a/movie.MP4", true},
		{"/a/movie.m2ts", true},
		{"/a/movie.nfo", false},
		{"/a/movie.srt", false},
		{"/a/movie", false},
	}

	for _, tt := range tests {
		if got := IsMediaFile(tt.path); got != tt.want {
			t.Errorf("IsMediaFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSameTitle(t *testing.T) {
	if !SameTitle("Batman Begins", "batman  BEGINS ") {
		t.Error("expected case and whitespace to be ignored")
	}
	if SameTitle("Batman Begins", "Batman Returns") {
		t.Error("different titles must not match")
	}
}

func TestParseWithin_StopsAtWatchRoot(t *testing.T) {
	root := filepath.FromSlash("/data/Shows")
	tests := []struct {
		name      string
		rel       string
		wantTitle string
	}{
		{"episode at the watch root", "S01E02.mkv", ""},
		{"bare season folder", "Season 1/S01E02.mkv", ""},
		{"show and season folders", "The Expanse/Season 2/S02E05.mkv", "The Expanse"},
		{"release folder", "Dark.S01.1080p.NF.WEB-DL/S01E03.mkv", "Dark"},
		{"titled file", "Severance.S02E04.mkv", "Severance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(root, filepath.FromSlash(tt.rel))
			guess, err := ParseWithin(path, root, KindEpisode)
			if tt.wantTitle == "" {
				if !errors.Is(err, ErrUnparsableName) {
					t.Fatalf("ParseWithin(%q) = %+v, %v, want ErrUnparsableName", path, guess, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWithin(%q) error: %v", path, err)
			}
			if guess.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", guess.Title, tt.wantTitle)
			}
		})
	}
}
