// Package metadata resolves parsed titles to canonical names and external
// identifiers through TMDb.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/naming"
)

// Query is what the resolver is asked to identify.
type Query struct {
	Title   string
	Year    int
	Kind    naming.Kind
	Season  int
	Episode int
}

// Resolver looks up canonical metadata. Errors wrap ErrNotFound when the
// service has no match and ErrResolverUnavailable when it could not be
// reached.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (*naming.ResolvedMetadata, error)
}

// API is the subset of the TMDb client the resolver uses.
type API interface {
	SearchMovie(ctx context.Context, query string, year int) (*SearchResponse, error)
	SearchTV(ctx context.Context, query string, year int) (*SearchResponse, error)
	MovieDetails(ctx context.Context, id int64) (*MovieDetails, error)
	TVExternalIDs(ctx context.Context, id int64) (*ExternalIDs, error)
	SeasonDetails(ctx context.Context, showID int64, season int) (*SeasonDetails, error)
}

var _ API = (*Client)(nil)

// New builds the resolver for cfg. Without an API key it returns an
// Offline resolver and logs a warning, so every title is linked unverified.
func New(cfg config.TMDbConfig, logger *logging.Logger) (Resolver, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("resolver", "TMDB_API_KEY not set, folders will not carry external ids")
		return Offline{}, nil
	}

	client, err := NewClient(Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Language:       cfg.Language,
		Timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		RequestsPer10s: cfg.RequestsPer10s,
		MaxAttempts:    cfg.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return NewTMDbResolver(client, logger), nil
}

// Offline answers every query with ErrNotFound.
type Offline struct{}

func (Offline) Resolve(ctx context.Context, q Query) (*naming.ResolvedMetadata, error) {
	return nil, fmt.Errorf("%w: no metadata service configured", ErrNotFound)
}

// TMDbResolver resolves titles through TMDb and caches both hits and misses
// for the lifetime of the process.
type TMDbResolver struct {
	api    API
	logger *logging.Logger

	mu      sync.Mutex
	titles  map[string]titleEntry
	seasons map[string]map[int]string
}

type titleEntry struct {
	meta   naming.ResolvedMetadata
	showID int64
	found  bool
}

func NewTMDbResolver(api API, logger *logging.Logger) *TMDbResolver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TMDbResolver{
		api:     api,
		logger:  logger,
		titles:  make(map[string]titleEntry),
		seasons: make(map[string]map[int]string),
	}
}

func (r *TMDbResolver) Resolve(ctx context.Context, q Query) (*naming.ResolvedMetadata, error) {
	if strings.TrimSpace(q.Title) == "" {
		return nil, fmt.Errorf("%w: empty title", ErrNotFound)
	}

	entry, err := r.lookupTitle(ctx, q)
	if err != nil {
		return nil, err
	}
	if !entry.found {
		return nil, fmt.Errorf("%w: %q (%d)", ErrNotFound, q.Title, q.Year)
	}

	meta := entry.meta
	if q.Kind == naming.KindEpisode && q.Season > 0 && q.Episode > 0 {
		meta.EpisodeTitle = r.episodeTitle(ctx, entry.showID, q.Season, q.Episode)
	}
	return &meta, nil
}

func cacheKey(q Query) string {
	return q.Kind.String() + "|" + strings.ToLower(strings.TrimSpace(q.Title)) + "|" + strconv.Itoa(q.Year)
}

func (r *TMDbResolver) lookupTitle(ctx context.Context, q Query) (titleEntry, error) {
	key := cacheKey(q)

	r.mu.Lock()
	cached, ok := r.titles[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	var entry titleEntry
	var err error
	if q.Kind == naming.KindEpisode {
		entry, err = r.lookupSeries(ctx, q)
	} else {
		entry, err = r.lookupMovie(ctx, q)
	}
	if err != nil {
		// Unavailability is transient; only answers are cached.
		return titleEntry{}, err
	}

	r.mu.Lock()
	r.titles[key] = entry
	r.mu.Unlock()
	return entry, nil
}

func (r *TMDbResolver) lookupMovie(ctx context.Context, q Query) (titleEntry, error) {
	results, err := r.search(ctx, q, r.api.SearchMovie)
	if err != nil || len(results) == 0 {
		return titleEntry{}, err
	}

	candidates := make([]Candidate, len(results))
	for i, res := range results {
		candidates[i] = Candidate{ID: res.ID, Title: res.Title, Year: yearOf(res.ReleaseDate)}
	}
	best, _ := ChooseBest(candidates, q.Title, q.Year)

	externalID := tmdbID(best.ID)
	details, err := r.api.MovieDetails(ctx, best.ID)
	switch {
	case err == nil && strings.HasPrefix(details.IMDbID, "tt"):
		externalID = details.IMDbID
	case err != nil && errors.Is(err, ErrResolverUnavailable):
		return titleEntry{}, err
	}

	r.logger.Debug("resolver", "matched movie",
		logging.F("query", q.Title), logging.F("title", best.Title),
		logging.F("year", best.Year), logging.F("id", externalID))

	return titleEntry{
		found:  true,
		showID: best.ID,
		meta: naming.ResolvedMetadata{
			CanonicalTitle: best.Title,
			Year:           best.Year,
			ExternalID:     externalID,
			Kind:           naming.KindMovie,
		},
	}, nil
}

func (r *TMDbResolver) lookupSeries(ctx context.Context, q Query) (titleEntry, error) {
	results, err := r.search(ctx, q, r.api.SearchTV)
	if err != nil || len(results) == 0 {
		return titleEntry{}, err
	}

	candidates := make([]Candidate, len(results))
	for i, res := range results {
		candidates[i] = Candidate{ID: res.ID, Title: res.Name, Year: yearOf(res.FirstAirDate)}
	}
	best, _ := ChooseBest(candidates, q.Title, q.Year)

	externalID := tmdbID(best.ID)
	ids, err := r.api.TVExternalIDs(ctx, best.ID)
	switch {
	case err == nil && strings.HasPrefix(ids.IMDbID, "tt"):
		externalID = ids.IMDbID
	case err != nil && errors.Is(err, ErrResolverUnavailable):
		return titleEntry{}, err
	}

	r.logger.Debug("resolver", "matched series",
		logging.F("query", q.Title), logging.F("title", best.Title),
		logging.F("year", best.Year), logging.F("id", externalID))

	return titleEntry{
		found:  true,
		showID: best.ID,
		meta: naming.ResolvedMetadata{
			CanonicalTitle: best.Title,
			Year:           best.Year,
			ExternalID:     externalID,
			Kind:           naming.KindEpisode,
		},
	}, nil
}

type searchFunc func(ctx context.Context, query string, year int) (*SearchResponse, error)

// search asks with the year first and retries without it, since release
// years in file names are often off by one from TMDb's.
func (r *TMDbResolver) search(ctx context.Context, q Query, fn searchFunc) ([]SearchResult, error) {
	resp, err := fn(ctx, q.Title, q.Year)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Results) > 0 || q.Year == 0 {
		return resp.Results, nil
	}

	resp, err = fn(ctx, q.Title, 0)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Results, nil
}

// episodeTitle returns "" when the season cannot be fetched; a missing
// episode title never fails resolution.
func (r *TMDbResolver) episodeTitle(ctx context.Context, showID int64, season, episode int) string {
	key := strconv.FormatInt(showID, 10) + "/" + strconv.Itoa(season)

	r.mu.Lock()
	titles, ok := r.seasons[key]
	r.mu.Unlock()

	if !ok {
		details, err := r.api.SeasonDetails(ctx, showID, season)
		if err != nil {
			r.logger.Debug("resolver", "season lookup failed",
				logging.F("show", showID), logging.F("season", season), logging.F("error", err))
			if errors.Is(err, ErrResolverUnavailable) {
				return ""
			}
			details = &SeasonDetails{}
		}
		titles = make(map[int]string, len(details.Episodes))
		for _, ep := range details.Episodes {
			titles[ep.EpisodeNumber] = strings.TrimSpace(ep.Name)
		}
		r.mu.Lock()
		r.seasons[key] = titles
		r.mu.Unlock()
	}

	return titles[episode]
}

// Candidate is one search result reduced to what the tie-break needs.
type Candidate struct {
	ID    int64
	Title string
	Year  int
}

// ChooseBest picks the candidate with an exact year match first, then an
// exact case-insensitive title match, then the earliest in relevance order.
func ChooseBest(candidates []Candidate, title string, year int) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	bestIdx, bestScore := 0, -1
	for i, c := range candidates {
		score := 0
		if year > 0 && c.Year == year {
			score += 2
		}
		if naming.SameTitle(c.Title, title) {
			score++
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	return candidates[bestIdx], true
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func tmdbID(id int64) string {
	return "tmdb-" + strconv.FormatInt(id, 10)
}
