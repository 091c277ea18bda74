// package tasks implements the catalog discovery commands.
//
// The core abstraction is DiscoveryEngine, which turns command inputs into flat track lists.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/services"
	"github.com/desertthunder/tidalbridge/internal/shared"
)

const (
	MaxPlaylistTracks  = 9999 // Tracks fetched per playlist
	MaxSimilarArtists  = 3    // Similar artists kept per source artist
	TopTracksPerArtist = 5    // Top tracks fetched per similar artist
	RadioTracksPerSeed = 10   // Radio tracks fetched per seed track
)

var playlistURL = regexp.MustCompile(`(?i)playlist/([a-z0-9-]+)`)

// ParsePlaylistID extracts the playlist id from a share URL such as
// https://tidal.com/browse/playlist/<uuid>, or returns a bare id unchanged.
func ParsePlaylistID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if m := playlistURL.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if input == "" || strings.ContainsAny(input, "/?# ") {
		return "", fmt.Errorf("%w: could not extract playlist id from %q", shared.ErrInvalidArgument, input)
	}
	return input, nil
}

// ItemResult records the outcome of one unit of work in a batch command.
type ItemResult struct {
	Item  string // Input that was processed (artist name, "artist → similar", or track id)
	Count int    // Records it contributed
	Err   error  // Nil on success
}

// OK reports whether the item succeeded.
func (r ItemResult) OK() bool { return r.Err == nil }

// SimilarArtistsResult contains the output of [DiscoveryEngine.SimilarArtists].
type SimilarArtistsResult struct {
	Results []models.SimilarArtistResult // Output records in input order
	Items   []ItemResult                 // Per-artist and per-similar-artist outcomes
}

// TrackRadioResult contains the output of [DiscoveryEngine.TrackRadio].
type TrackRadioResult struct {
	Tracks     []models.Track // Deduplicated radio tracks in input order
	Items      []ItemResult   // Per-seed outcomes
	Duplicates int            // Tracks dropped because an earlier seed already produced them
}

// Failed returns the items that did not succeed.
func Failed(items []ItemResult) []ItemResult {
	failed := []ItemResult{}
	for _, it := range items {
		if !it.OK() {
			failed = append(failed, it)
		}
	}
	return failed
}

// DiscoveryEngine defines the catalog commands.
type DiscoveryEngine interface {
	// FetchPlaylist returns up to [MaxPlaylistTracks] tracks of a playlist in order.
	FetchPlaylist(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) ([]models.Track, error)

	// SimilarArtists resolves each name, then collects the top tracks of up to [MaxSimilarArtists] similar artists.
	SimilarArtists(ctx context.Context, progress chan<- ProgressUpdate, names []string) (*SimilarArtistsResult, error)

	// TrackRadio concatenates the radio of each seed track, keeping the first occurrence of every id.
	TrackRadio(ctx context.Context, progress chan<- ProgressUpdate, trackIDs []string) (*TrackRadioResult, error)
}

// CatalogEngine implements [DiscoveryEngine] on top of a [services.Catalog].
type CatalogEngine struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewCatalogEngine creates a new CatalogEngine.
func NewCatalogEngine(catalog services.Catalog, logger *log.Logger) *CatalogEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CatalogEngine{catalog: catalog, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *CatalogEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// FetchPlaylist fetches a playlist's tracks. Unlike the batch commands, any failure is returned.
func (e *CatalogEngine) FetchPlaylist(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) ([]models.Track, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchPlaylistUpdate(playlistID))

	tracks, err := e.catalog.PlaylistTracks(ctx, playlistID, MaxPlaylistTracks)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", playlistID, err)
	}
	if tracks == nil {
		tracks = []models.Track{}
	}

	e.sendProgress(progress, playlistFetchedUpdate(playlistID, len(tracks)))
	return tracks, nil
}

// SimilarArtists runs the similar-artist lookup for every name.
//
// A failure for one name, or for one similar artist's top tracks, is recorded and skipped.
// The returned error is only set for cancellation.
func (e *CatalogEngine) SimilarArtists(ctx context.Context, progress chan<- ProgressUpdate, names []string) (*SimilarArtistsResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	result := &SimilarArtistsResult{
		Results: []models.SimilarArtistResult{},
		Items:   []ItemResult{},
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, resolveArtistUpdate(i+1, len(names), name))

		similar, err := e.similarTo(ctx, name)
		if err != nil {
			e.logger.Error("Error finding similar artists", "artist", name, "error", err)
			result.Items = append(result.Items, ItemResult{Item: name, Err: err})
			continue
		}
		result.Items = append(result.Items, ItemResult{Item: name, Count: len(similar)})

		for _, sim := range similar {
			item := name + " → " + sim.Name
			tracks, err := e.catalog.TopTracks(ctx, sim.ID, TopTracksPerArtist)
			if err != nil {
				e.logger.Error("Error getting top tracks", "artist", sim.Name, "error", err)
				result.Items = append(result.Items, ItemResult{Item: item, Err: err})
				continue
			}
			if len(tracks) > TopTracksPerArtist {
				tracks = tracks[:TopTracksPerArtist]
			}
			if tracks == nil {
				tracks = []models.Track{}
			}

			result.Results = append(result.Results, models.SimilarArtistResult{
				SourceArtist:  name,
				SimilarArtist: sim.Name,
				Tracks:        tracks,
			})
			result.Items = append(result.Items, ItemResult{Item: item, Count: len(tracks)})
			e.sendProgress(progress, topTracksUpdate(i+1, len(names), sim.Name, len(tracks)))
		}
	}

	return result, nil
}

// similarTo resolves name to an artist and returns at most [MaxSimilarArtists] similar artists.
func (e *CatalogEngine) similarTo(ctx context.Context, name string) ([]models.Artist, error) {
	search, err := e.catalog.SearchArtist(ctx, name)
	if err != nil {
		return nil, err
	}

	artist, ok := search.Best()
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrArtistNotFound, name)
	}
	e.logger.Debug("resolved artist", "query", name, "id", artist.ID, "name", artist.Name)

	similar, err := e.catalog.SimilarArtists(ctx, artist.ID)
	if err != nil {
		return nil, err
	}
	if len(similar) > MaxSimilarArtists {
		similar = similar[:MaxSimilarArtists]
	}
	return similar, nil
}

// TrackRadio collects radio tracks for every seed id.
//
// Non-numeric ids and failed lookups are recorded and skipped.
// The returned error is only set for cancellation.
func (e *CatalogEngine) TrackRadio(ctx context.Context, progress chan<- ProgressUpdate, trackIDs []string) (*TrackRadioResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	result := &TrackRadioResult{
		Tracks: []models.Track{},
		Items:  []ItemResult{},
	}
	seen := make(map[string]struct{})

	for i, id := range trackIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, trackRadioUpdate(i+1, len(trackIDs), id))

		if _, err := strconv.Atoi(id); err != nil {
			err = fmt.Errorf("%w: track id %q is not numeric", shared.ErrInvalidArgument, id)
			e.logger.Error("Error getting radio", "track", id, "error", err)
			result.Items = append(result.Items, ItemResult{Item: id, Err: err})
			continue
		}

		radio, err := e.catalog.TrackRadio(ctx, id, RadioTracksPerSeed)
		if err != nil {
			e.logger.Error("Error getting radio", "track", id, "error", err)
			result.Items = append(result.Items, ItemResult{Item: id, Err: err})
			continue
		}
		if len(radio) > RadioTracksPerSeed {
			radio = radio[:RadioTracksPerSeed]
		}

		added := 0
		for _, t := range radio {
			if _, dup := seen[t.ID]; dup {
				result.Duplicates++
				continue
			}
			seen[t.ID] = struct{}{}
			result.Tracks = append(result.Tracks, t)
			added++
		}
		result.Items = append(result.Items, ItemResult{Item: id, Count: added})
	}

	return result, nil
}

// IsCancellation reports whether err came from a cancelled or expired context.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
