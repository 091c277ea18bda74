package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/shared"
	tu "github.com/desertthunder/tidalbridge/internal/testing"
	"golang.org/x/oauth2"
)

func testConfig(baseURL string) shared.TidalConfig {
	return shared.TidalConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      baseURL + "/oauth2",
		APIURL:       baseURL + "/v1",
		Scopes:       "r_usr w_usr w_sub",
		CountryCode:  "US",
	}
}

func newTestService(t *testing.T, handler http.Handler) *TidalService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewTidalService(testConfig(server.URL), TidalOpts{HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func validCreds() *models.Credentials {
	return &models.Credentials{
		TokenType:    "Bearer",
		AccessToken:  "tok",
		RefreshToken: "refresh",
		ExpiryTime:   float64(time.Now().Add(time.Hour).Unix()),
		CountryCode:  "NO",
	}
}

func TestNewTidalService(t *testing.T) {
	t.Run("Missing Credentials", func(t *testing.T) {
		cfg := testConfig("http://example.com")
		cfg.ClientSecret = ""

		_, err := NewTidalService(cfg, TidalOpts{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing URLs", func(t *testing.T) {
		cfg := testConfig("http://example.com")
		cfg.APIURL = ""

		_, err := NewTidalService(cfg, TidalOpts{})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("OAuth Config", func(t *testing.T) {
		svc, err := NewTidalService(testConfig("http://example.com"), TidalOpts{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cfg := svc.GetOAuthConfig()
		if cfg.Endpoint.TokenURL != "http://example.com/oauth2/token" {
			t.Errorf("unexpected token URL %s", cfg.Endpoint.TokenURL)
		}
		if cfg.Endpoint.AuthStyle != oauth2.AuthStyleInParams {
			t.Error("expected credentials to be sent in params")
		}
		if len(cfg.Scopes) != 3 {
			t.Errorf("expected 3 scopes, got %v", cfg.Scopes)
		}
	})
}

func TestCheckLogin(t *testing.T) {
	tc := []struct {
		name    string
		status  int
		valid   bool
		wantErr bool
	}{
		{"Valid Session", http.StatusOK, true, false},
		{"Unauthorized", http.StatusUnauthorized, false, false},
		{"Forbidden", http.StatusForbidden, false, false},
		{"Server Error", http.StatusInternalServerError, false, true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/sessions" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
				}
				writeJSON(w, tt.status, map[string]any{"userId": 42, "countryCode": "NO"})
			}))

			info, err := svc.CheckLogin(context.Background(), validCreds())
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr %v, got %v", tt.wantErr, err)
			}
			if info.Valid != tt.valid {
				t.Errorf("expected valid %v, got %v", tt.valid, info.Valid)
			}
			if tt.valid && (info.UserID != "42" || info.CountryCode != "NO") {
				t.Errorf("unexpected session info %+v", info)
			}
		})
	}

	t.Run("Transport Failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		svc, _ := NewTidalService(testConfig("http://example.com"), TidalOpts{HTTPClient: client})

		_, err := svc.CheckLogin(context.Background(), validCreds())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Empty Access Token", func(t *testing.T) {
		svc, _ := NewTidalService(testConfig("http://example.com"), TidalOpts{})

		info, err := svc.CheckLogin(context.Background(), &models.Credentials{})
		if err != nil || info.Valid {
			t.Errorf("expected invalid session without error, got %+v, %v", info, err)
		}
	})
}

func TestRefresh(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/oauth2/token" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			r.ParseForm()
			if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh" {
				t.Errorf("unexpected form %v", r.Form)
			}
			if r.Form.Get("client_id") != "client" {
				t.Errorf("expected client_id in params, got %v", r.Form)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "fresh",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"user":         map[string]any{"userId": 42, "countryCode": "SE"},
			})
		}))

		creds, err := svc.Refresh(context.Background(), validCreds())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if creds.AccessToken != "fresh" {
			t.Errorf("expected fresh token, got %s", creds.AccessToken)
		}
		if creds.RefreshToken != "refresh" {
			t.Errorf("expected refresh token to be kept, got %s", creds.RefreshToken)
		}
		if creds.CountryCode != "SE" || creds.UserID != "42" {
			t.Errorf("expected account details from token response, got %+v", creds)
		}
		if creds.ExpiryTime <= float64(time.Now().Unix()) {
			t.Error("expected expiry in the future")
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
		}))

		_, err := svc.Refresh(context.Background(), validCreds())
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Transport Failure Is Not A Rejection", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		svc, _ := NewTidalService(testConfig("http://example.com"), TidalOpts{HTTPClient: client})

		_, err := svc.Refresh(context.Background(), validCreds())
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("transport failure should not be classified as rejection: %v", err)
		}
	})

	t.Run("No Refresh Token", func(t *testing.T) {
		svc, _ := NewTidalService(testConfig("http://example.com"), TidalOpts{})

		_, err := svc.Refresh(context.Background(), &models.Credentials{AccessToken: "a"})
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})
}

func TestCatalog(t *testing.T) {
	t.Run("PlaylistTracks Pages", func(t *testing.T) {
		const total = 150
		var requests int
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if r.URL.Path != "/v1/playlists/p1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("countryCode") != "NO" {
				t.Errorf("expected countryCode from credentials, got %s", r.URL.Query().Get("countryCode"))
			}

			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit > 100 {
				t.Errorf("page size exceeds 100: %d", limit)
			}

			items := []map[string]any{}
			for i := offset; i < min(offset+limit, total); i++ {
				items = append(items, map[string]any{
					"item": map[string]any{
						"id":       i + 1,
						"title":    fmt.Sprintf("Track %d", i+1),
						"duration": 200,
						"artist":   map[string]any{"name": "Artist"},
						"album":    map[string]any{"title": "Album"},
					},
					"type": "track",
				})
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items, "totalNumberOfItems": total})
		}))

		catalog := svc.Catalog(context.Background(), validCreds(), nil)
		tracks, err := catalog.PlaylistTracks(context.Background(), "p1", 9999)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != total {
			t.Fatalf("expected %d tracks, got %d", total, len(tracks))
		}
		if requests != 2 {
			t.Errorf("expected 2 page requests, got %d", requests)
		}
		if tracks[0].ID != "1" || tracks[149].ID != "150" {
			t.Errorf("tracks out of order: first %s last %s", tracks[0].ID, tracks[149].ID)
		}
	})

	t.Run("PlaylistTracks Pages Without Total", func(t *testing.T) {
		const total = 230
		var requests int
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

			items := []map[string]any{}
			for i := offset; i < min(offset+limit, total); i++ {
				items = append(items, map[string]any{"item": map[string]any{"id": i + 1, "title": "t"}, "type": "track"})
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
		}))

		tracks, err := svc.Catalog(context.Background(), validCreds(), nil).PlaylistTracks(context.Background(), "p1", 9999)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != total {
			t.Errorf("expected %d tracks, got %d", total, len(tracks))
		}
		if requests != 3 {
			t.Errorf("expected 3 page requests, got %d", requests)
		}
	})

	t.Run("PlaylistTracks Respects Max", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			items := []map[string]any{}
			for i := range 5 {
				items = append(items, map[string]any{"id": i + 1, "title": "t"})
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items, "totalNumberOfItems": 500})
		}))

		tracks, err := svc.Catalog(context.Background(), validCreds(), nil).PlaylistTracks(context.Background(), "p1", 3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 3 {
			t.Errorf("expected 3 tracks, got %d", len(tracks))
		}
	})

	t.Run("PlaylistTracks Error Status", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"userMessage": "not found"})
		}))

		_, err := svc.Catalog(context.Background(), validCreds(), nil).PlaylistTracks(context.Background(), "missing", 10)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("SearchArtist", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("query") != "Radiohead" {
				t.Errorf("unexpected query %s", r.URL.Query().Get("query"))
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"artists": map[string]any{"items": []map[string]any{{"id": 2, "name": "Listed"}}},
				"topHit":  map[string]any{"type": "ARTISTS", "value": map[string]any{"id": 1, "name": "Radiohead"}},
			})
		}))

		result, err := svc.Catalog(context.Background(), validCreds(), nil).SearchArtist(context.Background(), "Radiohead")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		best, ok := result.Best()
		if !ok || best.ID != "1" || best.Name != "Radiohead" {
			t.Errorf("expected top hit, got %+v", best)
		}
	})

	t.Run("SearchArtist Ignores Non-Artist Top Hit", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"artists": map[string]any{"items": []map[string]any{{"id": 2, "name": "Listed"}}},
				"topHit":  map[string]any{"type": "TRACKS", "value": map[string]any{"id": 9, "title": "Song"}},
			})
		}))

		result, err := svc.Catalog(context.Background(), validCreds(), nil).SearchArtist(context.Background(), "x")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.TopHit != nil {
			t.Errorf("expected no top hit, got %+v", result.TopHit)
		}
		if best, _ := result.Best(); best.Name != "Listed" {
			t.Errorf("expected fallback to listed artist, got %+v", best)
		}
	})

	t.Run("SimilarArtists", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/artists/1/similar" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
				{"id": "10", "name": "A"}, {"id": 11, "name": "B"},
			}})
		}))

		artists, err := svc.Catalog(context.Background(), validCreds(), nil).SimilarArtists(context.Background(), "1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(artists) != 2 || artists[0].ID != "10" || artists[1].ID != "11" {
			t.Errorf("unexpected artists %+v", artists)
		}
	})

	t.Run("TopTracks and TrackRadio Cap Results", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			items := []map[string]any{}
			for i := range 20 {
				items = append(items, map[string]any{"id": i + 1, "title": "t"})
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
		}))

		catalog := svc.Catalog(context.Background(), validCreds(), nil)
		top, err := catalog.TopTracks(context.Background(), "1", 5)
		if err != nil || len(top) != 5 {
			t.Errorf("expected 5 top tracks, got %d (%v)", len(top), err)
		}

		radio, err := catalog.TrackRadio(context.Background(), "1", 10)
		if err != nil || len(radio) != 10 {
			t.Errorf("expected 10 radio tracks, got %d (%v)", len(radio), err)
		}
	})

	t.Run("Falls Back To Configured Country", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("countryCode") != "US" {
				t.Errorf("expected configured country, got %s", r.URL.Query().Get("countryCode"))
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		}))

		creds := validCreds()
		creds.CountryCode = ""
		if _, err := svc.Catalog(context.Background(), creds, nil).TrackRadio(context.Background(), "1", 10); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Expired Token Is Refreshed And Reported", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/token"):
				writeJSON(w, http.StatusOK, map[string]any{"access_token": "fresh", "token_type": "Bearer", "expires_in": 3600})
			default:
				if r.Header.Get("Authorization") != "Bearer fresh" {
					t.Errorf("expected refreshed token, got %q", r.Header.Get("Authorization"))
				}
				writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
			}
		}))

		creds := validCreds()
		creds.ExpiryTime = float64(time.Now().Add(-time.Hour).Unix())

		var refreshed []*oauth2.Token
		catalog := svc.Catalog(context.Background(), creds, func(tok *oauth2.Token) { refreshed = append(refreshed, tok) })

		if _, err := catalog.TrackRadio(context.Background(), "1", 10); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := catalog.TrackRadio(context.Background(), "2", 10); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(refreshed) != 1 || refreshed[0].AccessToken != "fresh" {
			t.Errorf("expected exactly one refresh callback, got %d", len(refreshed))
		}
	})
}

func TestTrackConversion(t *testing.T) {
	tc := []struct {
		name string
		raw  string
		want models.Track
		ok   bool
	}{
		{
			name: "Flat Track",
			raw:  `{"id": 5, "title": "Song", "duration": 180, "artist": {"name": "A"}, "album": {"title": "B"}}`,
			want: models.Track{ID: "5", Title: "Song", Artist: "A", Album: "B", Duration: 180},
			ok:   true,
		},
		{
			name: "Nested Item",
			raw:  `{"item": {"id": "6", "title": "Nested", "artists": [{"name": "First"}, {"name": "Second"}]}}`,
			want: models.Track{ID: "6", Title: "Nested", Artist: "First", Album: models.UnknownField},
			ok:   true,
		},
		{
			name: "Missing Artist And Album",
			raw:  `{"id": 7, "title": "Bare"}`,
			want: models.Track{ID: "7", Title: "Bare", Artist: models.UnknownField, Album: models.UnknownField},
			ok:   true,
		},
		{
			name: "Missing ID",
			raw:  `{"title": "No ID"}`,
			ok:   false,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var item TidalTrackItem
			if err := json.Unmarshal([]byte(tt.raw), &item); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}

			got, ok := item.toTrack()
			if ok != tt.ok {
				t.Fatalf("expected ok %v, got %v", tt.ok, ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
