package tasks

import "fmt"

// ProgressUpdate represents a progress event during a command.
//
// Used to send status to the CLI layer, which logs it on stderr.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	ResolveArtist
	FetchTopTracks
	FetchRadio
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case ResolveArtist:
		return "resolve_artist"
	case FetchTopTracks:
		return "fetch_top_tracks"
	case FetchRadio:
		return "fetch_radio"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", id),
	}
}

func playlistFetchedUpdate(id string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched playlist %s (%d tracks)", id, count),
	}
}

func resolveArtistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveArtist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Searching for %s...", step, total, name),
	}
}

func topTracksUpdate(step, total int, name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTopTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d top tracks", step, total, name, count),
	}
}

func trackRadioUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRadio,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching radio for track %s...", step, total, id),
	}
}
