// TIDAL API implementation of [Authenticator] and [Catalog]
//
// Response types follow the v1 JSON API used by the official clients.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	deviceCodeGrant = "urn:ietf:params:oauth:grant-type:device_code"
	playlistPage    = 100
)

// flexID accepts both numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// TidalArtist represents a TIDAL artist.
type TidalArtist struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// TidalAlbum represents the album reference embedded in a track.
type TidalAlbum struct {
	ID    flexID `json:"id"`
	Title string `json:"title"`
}

// TidalTrack represents a TIDAL track.
type TidalTrack struct {
	ID       flexID        `json:"id"`
	Title    string        `json:"title"`
	Duration int           `json:"duration"`
	Artist   *TidalArtist  `json:"artist"`
	Artists  []TidalArtist `json:"artists"`
	Album    *TidalAlbum   `json:"album"`
}

// TidalTrackItem is a track entry from a list endpoint.
//
// Playlist item endpoints nest the track under "item"; the others are flat.
type TidalTrackItem struct {
	TidalTrack
	Item *TidalTrack `json:"item"`
}

type tidalPage[T any] struct {
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalItems int `json:"totalNumberOfItems"`
	Items      []T `json:"items"`
}

type tidalSearch struct {
	Artists tidalPage[TidalArtist] `json:"artists"`
	TopHit  *struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"topHit"`
}

type tidalSession struct {
	UserID      flexID `json:"userId"`
	CountryCode string `json:"countryCode"`
}

// toTrack converts a list item to a [models.Track]; ok is false for entries without an id.
func (i TidalTrackItem) toTrack() (models.Track, bool) {
	t := &i.TidalTrack
	if i.Item != nil {
		t = i.Item
	}
	if t.ID == "" {
		return models.Track{}, false
	}

	track := models.Track{
		ID:       string(t.ID),
		Title:    t.Title,
		Artist:   models.UnknownField,
		Album:    models.UnknownField,
		Duration: t.Duration,
	}

	switch {
	case t.Artist != nil && t.Artist.Name != "":
		track.Artist = t.Artist.Name
	case len(t.Artists) > 0 && t.Artists[0].Name != "":
		track.Artist = t.Artists[0].Name
	}

	if t.Album != nil && t.Album.Title != "" {
		track.Album = t.Album.Title
	}

	return track, true
}

func toTracks(items []TidalTrackItem) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if t, ok := item.toTrack(); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

func toArtist(a TidalArtist) models.Artist {
	return models.Artist{ID: string(a.ID), Name: a.Name}
}

// TidalService implements [Authenticator] for TIDAL and builds [TidalCatalog] clients.
type TidalService struct {
	config     shared.TidalConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	auth       *APIService
	logger     *log.Logger
}

// TidalOpts contains optional dependencies for [NewTidalService].
type TidalOpts struct {
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewTidalService creates a TIDAL client from the given configuration.
func NewTidalService(config shared.TidalConfig, opts TidalOpts) (*TidalService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: config.Timeout()}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	config.AuthURL = strings.TrimRight(config.AuthURL, "/")
	config.APIURL = strings.TrimRight(config.APIURL, "/")

	return &TidalService{
		config:     config,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		auth:       NewAPIService(config.AuthURL, opts.HTTPClient),
		logger:     opts.Logger,
	}, nil
}

// SetLogger replaces the logger used by the service and the catalogs it builds afterwards.
func (s *TidalService) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// GetOAuthConfig returns the [oauth2.Config] used for token refresh.
func (s *TidalService) GetOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		Scopes:       s.config.ScopeList(),
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: s.config.AuthURL + "/device_authorization",
			TokenURL:      s.config.AuthURL + "/token",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

func (s *TidalService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// CheckLogin calls the sessions endpoint with the stored access token.
//
// 401 and 403 are a definitive rejection; any other failure is returned as an error.
func (s *TidalService) CheckLogin(ctx context.Context, creds *models.Credentials) (models.SessionInfo, error) {
	if creds == nil || creds.AccessToken == "" {
		return models.SessionInfo{}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return models.SessionInfo{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIURL+"/sessions", nil)
	if err != nil {
		return models.SessionInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	creds.Token().SetAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.SessionInfo{}, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.logger.Debug("session rejected", "status", resp.StatusCode)
		return models.SessionInfo{}, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return models.SessionInfo{}, fmt.Errorf("%w: sessions endpoint returned status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	var session tidalSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return models.SessionInfo{}, fmt.Errorf("failed to decode session: %w", err)
	}

	return models.SessionInfo{
		Valid:       true,
		UserID:      string(session.UserID),
		CountryCode: session.CountryCode,
	}, nil
}

// Refresh exchanges the refresh token for a new access token.
//
// A rejection by the token endpoint wraps [shared.ErrRefreshFailed]; transport failures do not.
func (s *TidalService) Refresh(ctx context.Context, creds *models.Credentials) (*models.Credentials, error) {
	if creds == nil || creds.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	stale := creds.Token()
	stale.Expiry = time.Now().Add(-time.Minute)

	tok, err := s.GetOAuthConfig().TokenSource(s.oauthContext(ctx), stale).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
		}
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}

	s.logger.Debug("access token refreshed")
	return credentialsFromOAuth(tok, creds), nil
}

// credentialsFromOAuth converts tok, picking up the "user" extra TIDAL includes in token responses.
func credentialsFromOAuth(tok *oauth2.Token, prev *models.Credentials) *models.Credentials {
	creds := models.CredentialsFromToken(tok, prev)
	if user, ok := tok.Extra("user").(map[string]any); ok {
		if cc, ok := user["countryCode"].(string); ok && cc != "" {
			creds.CountryCode = cc
		}
		switch id := user["userId"].(type) {
		case float64:
			creds.UserID = strconv.FormatInt(int64(id), 10)
		case string:
			creds.UserID = id
		}
	}
	return creds
}

// Catalog returns a [TidalCatalog] authorized with creds.
//
// onRefresh is called with every access token that differs from the one in creds.
func (s *TidalService) Catalog(ctx context.Context, creds *models.Credentials, onRefresh func(*oauth2.Token)) *TidalCatalog {
	octx := s.oauthContext(ctx)
	source := &refreshableTokenSource{
		source:   s.GetOAuthConfig().TokenSource(octx, creds.Token()),
		callback: onRefresh,
		last:     creds.AccessToken,
	}

	client := oauth2.NewClient(octx, source)
	client.Timeout = s.httpClient.Timeout

	country := creds.CountryCode
	if country == "" {
		country = s.config.CountryCode
	}

	return &TidalCatalog{
		baseURL:     s.config.APIURL,
		countryCode: country,
		httpClient:  client,
		limiter:     s.limiter,
		logger:      s.logger,
	}
}

// refreshableTokenSource reports new access tokens to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	tok, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if tok.AccessToken != r.last {
		r.last = tok.AccessToken
		if r.callback != nil {
			r.callback(tok)
		}
	}

	return tok, nil
}

// TidalCatalog implements [Catalog] against the TIDAL v1 API.
type TidalCatalog struct {
	baseURL     string
	countryCode string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger
}

// doRequest performs an authenticated GET and decodes the JSON body into result.
func (c *TidalCatalog) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("countryCode", c.countryCode)

	apiURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("tidal request", "endpoint", endpoint, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: tidal API status %d: %s", shared.ErrAPIRequest, resp.StatusCode, bytes.TrimSpace(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// PlaylistTracks pages through a playlist until max tracks or the reported total.
func (c *TidalCatalog) PlaylistTracks(ctx context.Context, playlistID string, max int) ([]models.Track, error) {
	tracks := []models.Track{}
	endpoint := fmt.Sprintf("playlists/%s/tracks", url.PathEscape(playlistID))

	for offset := 0; len(tracks) < max; offset += playlistPage {
		limit := min(playlistPage, max-len(tracks))

		var page tidalPage[TidalTrackItem]
		params := url.Values{
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		}
		if err := c.doRequest(ctx, endpoint, params, &page); err != nil {
			return nil, err
		}

		tracks = append(tracks, toTracks(page.Items)...)

		if len(page.Items) == 0 {
			break
		}
		// Some responses omit totalNumberOfItems; a short page is then the last one.
		if page.TotalItems > 0 && offset+len(page.Items) >= page.TotalItems {
			break
		}
		if page.TotalItems == 0 && len(page.Items) < limit {
			break
		}
	}

	if len(tracks) > max {
		tracks = tracks[:max]
	}
	return tracks, nil
}

// SearchArtist searches for artists by name, returning at most one listed result.
//
// A top hit that is not an artist is ignored.
func (c *TidalCatalog) SearchArtist(ctx context.Context, query string) (*models.ArtistSearch, error) {
	var resp tidalSearch
	params := url.Values{
		"query": {query},
		"types": {"ARTISTS"},
		"limit": {"1"},
	}
	if err := c.doRequest(ctx, "search", params, &resp); err != nil {
		return nil, err
	}

	result := &models.ArtistSearch{Artists: make([]models.Artist, 0, len(resp.Artists.Items))}
	for _, a := range resp.Artists.Items {
		result.Artists = append(result.Artists, toArtist(a))
	}

	if resp.TopHit != nil && strings.EqualFold(resp.TopHit.Type, "ARTISTS") {
		var a TidalArtist
		if err := json.Unmarshal(resp.TopHit.Value, &a); err == nil && a.ID != "" {
			artist := toArtist(a)
			result.TopHit = &artist
		}
	}

	return result, nil
}

// SimilarArtists lists artists similar to artistID.
func (c *TidalCatalog) SimilarArtists(ctx context.Context, artistID string) ([]models.Artist, error) {
	var page tidalPage[TidalArtist]
	endpoint := fmt.Sprintf("artists/%s/similar", url.PathEscape(artistID))
	if err := c.doRequest(ctx, endpoint, nil, &page); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(page.Items))
	for _, a := range page.Items {
		artists = append(artists, toArtist(a))
	}
	return artists, nil
}

// TopTracks returns up to limit of an artist's top tracks.
func (c *TidalCatalog) TopTracks(ctx context.Context, artistID string, limit int) ([]models.Track, error) {
	var page tidalPage[TidalTrackItem]
	endpoint := fmt.Sprintf("artists/%s/toptracks", url.PathEscape(artistID))
	if err := c.doRequest(ctx, endpoint, url.Values{"limit": {strconv.Itoa(limit)}}, &page); err != nil {
		return nil, err
	}
	return capTracks(toTracks(page.Items), limit), nil
}

// TrackRadio returns up to limit radio tracks seeded by trackID.
func (c *TidalCatalog) TrackRadio(ctx context.Context, trackID string, limit int) ([]models.Track, error) {
	var page tidalPage[TidalTrackItem]
	endpoint := fmt.Sprintf("tracks/%s/radio", url.PathEscape(trackID))
	if err := c.doRequest(ctx, endpoint, url.Values{"limit": {strconv.Itoa(limit)}}, &page); err != nil {
		return nil, err
	}
	return capTracks(toTracks(page.Items), limit), nil
}

func capTracks(tracks []models.Track, limit int) []models.Track {
	if limit > 0 && len(tracks) > limit {
		return tracks[:limit]
	}
	return tracks
}
