package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tidalbridge/internal/formatter"
	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/shared"
	"github.com/desertthunder/tidalbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// FetchPlaylist prints the tracks of one playlist.
func (r *Runner) FetchPlaylist(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return r.usage(cmd, "<playlist_id>")
	}
	if !formatter.IsValid(r.format) {
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, r.format)
	}
	playlistID, err := tasks.ParsePlaylistID(cmd.Args().First())
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := r.logProgress(progress)
	tracks, err := engine.FetchPlaylist(ctx, progress, playlistID)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.logger.Info("playlist fetched", "id", playlistID, "tracks", len(tracks))
	return r.writeTracks("Playlist "+playlistID, tracks)
}

// SimilarArtists prints the top tracks of the artists similar to each name.
//
// Names that cannot be resolved are logged and skipped.
func (r *Runner) SimilarArtists(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return r.usage(cmd, "<name> ...")
	}
	names := cmd.Args().Slice()

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := r.logProgress(progress)
	result, err := engine.SimilarArtists(ctx, progress, names)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.logSummary("similar artists", result.Items)
	return r.writeJSON(result.Results, r.pretty)
}

// TrackRadio prints the combined radio of the seed tracks without duplicates.
func (r *Runner) TrackRadio(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return r.usage(cmd, "<track_id> ...")
	}
	if !formatter.IsValid(r.format) {
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, r.format)
	}
	trackIDs := cmd.Args().Slice()

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := r.logProgress(progress)
	result, err := engine.TrackRadio(ctx, progress, trackIDs)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.logSummary("track radio", result.Items)
	if result.Duplicates > 0 {
		r.logger.Debug("dropped duplicate radio tracks", "count", result.Duplicates)
	}
	return r.writeTracks("Radio", result.Tracks)
}

func (r *Runner) logSummary(op string, items []tasks.ItemResult) {
	failed := tasks.Failed(items)
	r.logger.Info(op+" complete", "items", len(items), "failed", len(failed))
}

// writeTracks renders a track list in the format chosen by --format.
func (r *Runner) writeTracks(title string, tracks []models.Track) error {
	if r.format == formatter.FormatJSON {
		return r.writeJSON(tracks, r.pretty)
	}

	data, err := formatter.Render(r.format, title, tracks)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
