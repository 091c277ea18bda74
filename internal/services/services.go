// package services defines interfaces for interacting with the TIDAL HTTP APIs
package services

import (
	"context"

	"github.com/desertthunder/tidalbridge/internal/models"
)

// Authenticator checks, refreshes and issues TIDAL credentials.
type Authenticator interface {
	// CheckLogin asks the provider whether creds are still logged in.
	// A definitive rejection is reported as an invalid [models.SessionInfo] with a nil error.
	CheckLogin(ctx context.Context, creds *models.Credentials) (models.SessionInfo, error)

	// Refresh mints a new access token from the refresh token in creds.
	Refresh(ctx context.Context, creds *models.Credentials) (*models.Credentials, error)

	// StartDeviceLogin requests a fresh device code.
	StartDeviceLogin(ctx context.Context) (*models.DeviceLogin, error)

	// PollDeviceLogin performs exactly one token exchange for deviceCode.
	// Credentials are returned only when the result is authenticated.
	PollDeviceLogin(ctx context.Context, deviceCode string) (models.PollResult, *models.Credentials, error)
}

// Catalog is the read-only slice of the TIDAL catalog used by the CLI.
type Catalog interface {
	// PlaylistTracks returns up to max tracks of a playlist in provider order.
	PlaylistTracks(ctx context.Context, playlistID string, max int) ([]models.Track, error)

	// SearchArtist searches artists by name.
	SearchArtist(ctx context.Context, query string) (*models.ArtistSearch, error)

	// SimilarArtists lists artists similar to artistID.
	SimilarArtists(ctx context.Context, artistID string) ([]models.Artist, error)

	// TopTracks returns an artist's most popular tracks.
	TopTracks(ctx context.Context, artistID string, limit int) ([]models.Track, error)

	// TrackRadio returns tracks algorithmically related to trackID.
	TrackRadio(ctx context.Context, trackID string, limit int) ([]models.Track, error)
}
