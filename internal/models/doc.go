// Package models defines the records exchanged between the TIDAL client, the session store and the CLI.
//
// The package contains two kinds of types:
//
// 1. Persisted state
//   - [Credentials] : the single OAuth credential record kept on disk
//
// 2. Output and transfer objects
//   - [Track] : flat track record written to stdout
//   - [SimilarArtistResult] : one (source artist, similar artist) pair with top tracks
//   - [DeviceLogin] and [PollResult] : device authorization flow payloads
//   - [Artist], [ArtistSearch] and [SessionInfo] : typed provider answers
//
// Optional provider values are explicit: [ArtistSearch.TopHit] is a pointer and
// [ArtistSearch.Best] returns an ok flag instead of probing fields at runtime.
package models
