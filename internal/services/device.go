package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/shared"
	"golang.org/x/oauth2"
)

// tidalDeviceAuth is the camelCase device authorization payload TIDAL returns.
type tidalDeviceAuth struct {
	DeviceCode              string `json:"deviceCode"`
	UserCode                string `json:"userCode"`
	VerificationURI         string `json:"verificationUri"`
	VerificationURIComplete string `json:"verificationUriComplete"`
	ExpiresIn               int    `json:"expiresIn"`
	Interval                int    `json:"interval"`
}

// tidalTokenResponse is the token endpoint payload, including the account details TIDAL adds.
type tidalTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         *struct {
		UserID      flexID `json:"userId"`
		CountryCode string `json:"countryCode"`
	} `json:"user"`
}

// StartDeviceLogin requests a new device code from the authorization server.
func (s *TidalService) StartDeviceLogin(ctx context.Context) (*models.DeviceLogin, error) {
	form := url.Values{
		"client_id": {s.config.ClientID},
		"scope":     {strings.Join(s.config.ScopeList(), " ")},
	}

	resp, err := s.auth.PostForm(ctx, "/device_authorization", form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: device authorization returned status %d: %s", shared.ErrAuthFailed, resp.StatusCode, oauthErrorMessage(resp))
	}

	var payload tidalDeviceAuth
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}

	login := &models.DeviceLogin{
		DeviceCode:              payload.DeviceCode,
		UserCode:                payload.UserCode,
		VerificationURI:         payload.VerificationURI,
		VerificationURIComplete: payload.VerificationURIComplete,
		ExpiresIn:               payload.ExpiresIn,
		Interval:                payload.Interval,
	}

	// RFC 8628 field names, in case the server answers in snake_case.
	if login.DeviceCode == "" {
		var std oauth2.DeviceAuthResponse
		if err := resp.Decode(&std); err == nil && std.DeviceCode != "" {
			login.DeviceCode = std.DeviceCode
			login.UserCode = std.UserCode
			login.VerificationURI = std.VerificationURI
			login.VerificationURIComplete = std.VerificationURIComplete
			login.Interval = int(std.Interval)
			if !std.Expiry.IsZero() {
				login.ExpiresIn = int(time.Until(std.Expiry).Round(time.Second).Seconds())
			}
		}
	}

	if login.DeviceCode == "" {
		return nil, fmt.Errorf("%w: device authorization response has no device code", shared.ErrAuthFailed)
	}

	s.logger.Debug("device login started", "user_code", login.UserCode, "expires_in", login.ExpiresIn)
	return login, nil
}

// PollDeviceLogin performs one token exchange for deviceCode and classifies the answer.
//
// Only transport failures are returned as errors; server refusals become a [models.PollResult].
func (s *TidalService) PollDeviceLogin(ctx context.Context, deviceCode string) (models.PollResult, *models.Credentials, error) {
	form := url.Values{
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
		"device_code":   {deviceCode},
		"grant_type":    {deviceCodeGrant},
		"scope":         {strings.Join(s.config.ScopeList(), " ")},
	}

	resp, err := s.auth.PostForm(ctx, "/token", form)
	if err != nil {
		return models.PollResult{}, nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	if resp.OK() {
		var payload tidalTokenResponse
		if err := resp.Decode(&payload); err != nil {
			return models.PollResult{Status: models.PollError, Message: err.Error()}, nil, nil
		}
		if payload.AccessToken == "" {
			return models.PollResult{Status: models.PollError, Message: "token response has no access token"}, nil, nil
		}
		return models.PollResult{Status: models.PollAuthenticated}, payload.credentials(time.Now()), nil
	}

	switch resp.Field("error") {
	case "authorization_pending":
		return models.PollResult{Status: models.PollPending}, nil, nil
	case "expired_token":
		return models.PollResult{Status: models.PollExpired}, nil, nil
	default:
		return models.PollResult{Status: models.PollError, Message: oauthErrorMessage(resp)}, nil, nil
	}
}

func (p tidalTokenResponse) credentials(now time.Time) *models.Credentials {
	creds := &models.Credentials{
		TokenType:    p.TokenType,
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
	}
	if creds.TokenType == "" {
		creds.TokenType = "Bearer"
	}
	if p.ExpiresIn > 0 {
		creds.ExpiryTime = float64(now.Add(time.Duration(p.ExpiresIn)*time.Second).UnixNano()) / 1e9
	}
	if p.User != nil {
		creds.UserID = string(p.User.UserID)
		creds.CountryCode = p.User.CountryCode
	}
	return creds
}

// oauthErrorMessage prefers error_description, then error, then a generic message.
func oauthErrorMessage(resp *APIResponse) string {
	if msg := resp.Field("error_description"); msg != "" {
		return msg
	}
	if msg := resp.Field("error"); msg != "" {
		return msg
	}
	return "Unknown error"
}
