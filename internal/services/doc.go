// Package services talks to TIDAL.
//
// # Interfaces
//
// [Authenticator] covers everything that touches credentials: checking a stored
// token, refreshing it and the two halves of the device authorization flow.
// [Catalog] is the read-only catalog surface used by the discovery commands.
//
// # TIDAL Implementation
//
// [TidalService] implements [Authenticator] and hands out [TidalCatalog] values
// bound to a credential record. The catalog client is an [oauth2.Client], so an
// expired access token is refreshed transparently; the caller receives each new
// token through the onRefresh callback and decides whether to persist it.
//
// All requests share one [rate.Limiter] and carry the account's countryCode.
//
// # Device Flow
//
// [APIService] performs the raw form posts against the authorization server.
// Error bodies from the token endpoint are part of the protocol
// (authorization_pending, expired_token), so they are classified into a
// [models.PollResult] instead of being returned as Go errors.
//
// # Error Handling
//
// Services wrap sentinels from the shared package:
//   - [shared.ErrRefreshFailed] : the token endpoint rejected the refresh token
//   - [shared.ErrServiceUnavailable] : TIDAL could not be reached or answered 5xx
//   - [shared.ErrAPIRequest] : a catalog call returned a non-2xx status
//   - [shared.ErrAuthFailed] : the device authorization request was refused
package services
