package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name string
		path string
		size int64
		want bool
	}{
		{"feature", "/w/Movie.Name.2005.1080p.mkv", 4 << 30, true},
		{"sample folder", "/w/Movie.Name.2005/Sample/sample-movie.name.2005.mkv", 50 << 20, false},
		{"sample suffix", "/w/Movie.Name.2005/movie.name.2005.sample.mkv", 50 << 20, false},
		{"bare sample", "/w/sample.mkv", -1, false},
		{"large file named sample", "/w/Sample.2012.1080p.mkv", 2 << 30, true},
		{"word containing sample", "/w/Samples.of.Life.2010.mkv", 10, true},
		{"trailer", "/w/Movie.Name.2005.Trailer.mp4", 10, false},
		{"featurettes folder", "/w/Movie.Name.2005/Featurettes/Making Of.mkv", 10, false},
		{"extras folder", "/w/Show/Extras/Bloopers.mkv", 10, false},
		{"extraction is a title", "/w/Extraction.2020.mkv", 10, true},
		{"not a video", "/w/Movie.Name.2005.nfo", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCandidate(tt.path, tt.size))
		})
	}
}
