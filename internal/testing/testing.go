// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/tidalbridge/internal/models"
)

// MockCatalog is a test double for [services.Catalog].
//
// Unset funcs return empty results. Calls are recorded by method name.
type MockCatalog struct {
	PlaylistTracksFunc func(ctx context.Context, playlistID string, max int) ([]models.Track, error)
	SearchArtistFunc   func(ctx context.Context, query string) (*models.ArtistSearch, error)
	SimilarArtistsFunc func(ctx context.Context, artistID string) ([]models.Artist, error)
	TopTracksFunc      func(ctx context.Context, artistID string, limit int) ([]models.Track, error)
	TrackRadioFunc     func(ctx context.Context, trackID string, limit int) ([]models.Track, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockCatalog) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Calls returns the number of times method was invoked.
func (m *MockCatalog) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, playlistID string, max int) ([]models.Track, error) {
	m.record("PlaylistTracks")
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, playlistID, max)
	}
	return []models.Track{}, nil
}

func (m *MockCatalog) SearchArtist(ctx context.Context, query string) (*models.ArtistSearch, error) {
	m.record("SearchArtist")
	if m.SearchArtistFunc != nil {
		return m.SearchArtistFunc(ctx, query)
	}
	return &models.ArtistSearch{}, nil
}

func (m *MockCatalog) SimilarArtists(ctx context.Context, artistID string) ([]models.Artist, error) {
	m.record("SimilarArtists")
	if m.SimilarArtistsFunc != nil {
		return m.SimilarArtistsFunc(ctx, artistID)
	}
	return []models.Artist{}, nil
}

func (m *MockCatalog) TopTracks(ctx context.Context, artistID string, limit int) ([]models.Track, error) {
	m.record("TopTracks")
	if m.TopTracksFunc != nil {
		return m.TopTracksFunc(ctx, artistID, limit)
	}
	return []models.Track{}, nil
}

func (m *MockCatalog) TrackRadio(ctx context.Context, trackID string, limit int) ([]models.Track, error) {
	m.record("TrackRadio")
	if m.TrackRadioFunc != nil {
		return m.TrackRadioFunc(ctx, trackID, limit)
	}
	return []models.Track{}, nil
}

// MockAuthenticator is a test double for [services.Authenticator].
type MockAuthenticator struct {
	CheckLoginFunc       func(ctx context.Context, creds *models.Credentials) (models.SessionInfo, error)
	RefreshFunc          func(ctx context.Context, creds *models.Credentials) (*models.Credentials, error)
	StartDeviceLoginFunc func(ctx context.Context) (*models.DeviceLogin, error)
	PollDeviceLoginFunc  func(ctx context.Context, deviceCode string) (models.PollResult, *models.Credentials, error)

	CheckLoginCalls int
	RefreshCalls    int
	StartCalls      int
	PollCalls       int
}

func (m *MockAuthenticator) CheckLogin(ctx context.Context, creds *models.Credentials) (models.SessionInfo, error) {
	m.CheckLoginCalls++
	if m.CheckLoginFunc != nil {
		return m.CheckLoginFunc(ctx, creds)
	}
	return models.SessionInfo{Valid: true}, nil
}

func (m *MockAuthenticator) Refresh(ctx context.Context, creds *models.Credentials) (*models.Credentials, error) {
	m.RefreshCalls++
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, creds)
	}
	return creds, nil
}

func (m *MockAuthenticator) StartDeviceLogin(ctx context.Context) (*models.DeviceLogin, error) {
	m.StartCalls++
	if m.StartDeviceLoginFunc != nil {
		return m.StartDeviceLoginFunc(ctx)
	}
	return &models.DeviceLogin{
		VerificationURI:         "link.tidal.com",
		VerificationURIComplete: "link.tidal.com/ABCDE",
		UserCode:                "ABCDE",
		DeviceCode:              "device-code",
		ExpiresIn:               300,
		Interval:                1,
	}, nil
}

func (m *MockAuthenticator) PollDeviceLogin(ctx context.Context, deviceCode string) (models.PollResult, *models.Credentials, error) {
	m.PollCalls++
	if m.PollDeviceLoginFunc != nil {
		return m.PollDeviceLoginFunc(ctx, deviceCode)
	}
	return models.PollResult{Status: models.PollPending}, nil, nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
