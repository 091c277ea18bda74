// Package tasks runs the catalog discovery commands against a [services.Catalog].
//
// # Core Operations
//
// The [DiscoveryEngine] interface defines three operations:
//
//  1. [DiscoveryEngine.FetchPlaylist] : playlist contents
//     - Fetches up to [MaxPlaylistTracks] tracks in provider order
//     - Any failure fails the command
//
//  2. [DiscoveryEngine.SimilarArtists] : related-artist discovery
//     - Resolves each name to its top hit, or the first artist result
//     - Keeps at most [MaxSimilarArtists] similar artists per name
//     - Fetches [TopTracksPerArtist] top tracks for each
//
//  3. [DiscoveryEngine.TrackRadio] : seed-based recommendations
//     - Fetches [RadioTracksPerSeed] radio tracks per numeric track id
//     - Concatenates in input order and drops repeated ids, keeping the first
//
// # Partial Failure
//
// The batch operations never abort on a single input. Every unit of work is
// recorded as an [ItemResult]; failures are logged and the remaining inputs
// are still processed, so the caller always gets a (possibly empty) list.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel.
// Sends use select with default so a slow consumer never blocks a command.
package tasks
