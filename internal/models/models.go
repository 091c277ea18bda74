// package models defines the data model for the TIDAL bridge
package models

import (
	"math"
	"time"

	"golang.org/x/oauth2"
)

// UnknownField is the placeholder for artist and album names the provider omits.
const UnknownField = "Unknown"

// Credentials is the persisted OAuth credential record.
//
// ExpiryTime is epoch seconds; 0 means unknown.
type Credentials struct {
	TokenType    string  `json:"token_type"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	ExpiryTime   float64 `json:"expiry_time"`
	CountryCode  string  `json:"country_code,omitempty"`
	UserID       string  `json:"user_id,omitempty"`
}

// Token converts the record into an [oauth2.Token].
func (c *Credentials) Token() *oauth2.Token {
	tok := &oauth2.Token{
		TokenType:    c.TokenType,
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
	}
	if c.ExpiryTime > 0 {
		sec, frac := math.Modf(c.ExpiryTime)
		tok.Expiry = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return tok
}

// CredentialsFromToken builds a record from tok, keeping account fields (and a missing refresh token) from prev.
func CredentialsFromToken(tok *oauth2.Token, prev *Credentials) *Credentials {
	creds := &Credentials{
		TokenType:    tok.TokenType,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		creds.ExpiryTime = float64(tok.Expiry.UnixNano()) / 1e9
	}

	if prev != nil {
		creds.CountryCode = prev.CountryCode
		creds.UserID = prev.UserID
		if creds.RefreshToken == "" {
			creds.RefreshToken = prev.RefreshToken
		}
		if creds.TokenType == "" {
			creds.TokenType = prev.TokenType
		}
	}
	if creds.TokenType == "" {
		creds.TokenType = "Bearer"
	}
	return creds
}

// SessionInfo is the provider's answer to "is this token still logged in".
type SessionInfo struct {
	Valid       bool
	UserID      string
	CountryCode string
}

// Track is the flat track record written to stdout.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"` // seconds
}

// Artist identifies a catalog artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArtistSearch is the result of an artist search.
//
// TopHit is nil when the provider returned no distinguished hit or the hit was not an artist.
type ArtistSearch struct {
	TopHit  *Artist
	Artists []Artist
}

// Best returns the top hit, or the first artist result when there is no top hit.
func (s *ArtistSearch) Best() (Artist, bool) {
	if s == nil {
		return Artist{}, false
	}
	if s.TopHit != nil {
		return *s.TopHit, true
	}
	if len(s.Artists) > 0 {
		return s.Artists[0], true
	}
	return Artist{}, false
}

// SimilarArtistResult pairs a requested artist with one similar artist and its top tracks.
type SimilarArtistResult struct {
	SourceArtist  string  `json:"source_artist"`
	SimilarArtist string  `json:"similar_artist"`
	Tracks        []Track `json:"tracks"`
}

// DeviceLogin is a freshly issued device code and the details the user needs to approve it.
type DeviceLogin struct {
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	UserCode                string `json:"user_code"`
	DeviceCode              string `json:"device_code"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// PollInterval returns Interval as a duration, never less than one second.
func (d *DeviceLogin) PollInterval() time.Duration {
	if d.Interval <= 0 {
		return time.Second
	}
	return time.Duration(d.Interval) * time.Second
}

// PollStatus classifies a single device-code token exchange.
type PollStatus string

const (
	PollAuthenticated PollStatus = "authenticated"
	PollExpired       PollStatus = "expired"
	PollPending       PollStatus = "pending"
	PollError         PollStatus = "error"
)

// PollResult is the outcome of one device-code poll.
type PollResult struct {
	Status  PollStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// Done reports whether polling should stop.
func (p PollResult) Done() bool {
	return p.Status != PollPending
}
