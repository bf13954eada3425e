package main

import (
	"context"
	"errors"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-playback/internal/audio"
	"github.com/edumarques81/stellar-playback/internal/config"
	"github.com/edumarques81/stellar-playback/internal/domain/artwork"
	"github.com/edumarques81/stellar-playback/internal/domain/player"
	"github.com/edumarques81/stellar-playback/internal/domain/playlist"
	"github.com/edumarques81/stellar-playback/internal/domain/track"
	"github.com/edumarques81/stellar-playback/internal/infra/cache"
	"github.com/edumarques81/stellar-playback/internal/infra/mpd"
)

const (
	outputRate = beep.SampleRate(44100)
	tapSize    = 8192
)

// stack is everything a playing process needs, built from the config.
type stack struct {
	cfg        *config.Config
	engine     *player.Engine
	renderer   *audio.Renderer
	controller *audio.Controller
	loader     *track.Loader
	fanout     *player.Fanout
	catalog    *playlist.Catalog
	probes     *cache.DB
	mpd        *mpd.Client
	importer   *mpd.Importer
	output     outputDevice
}

type outputDevice interface {
	audio.Output
	Close() error
}

func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	s := &stack{cfg: cfg}

	loaderOpts := []track.LoaderOption{track.WithCoverSize(cfg.Library.CoverSize)}
	if cfg.Cache.Path != "" {
		db := cache.NewDB(cfg.Cache.Path)
		if err := db.Open(); err != nil {
			log.Warn().Err(err).Str("path", cfg.Cache.Path).Msg("Probe cache unavailable, continuing without it")
		} else {
			s.probes = db
			loaderOpts = append(loaderOpts, track.WithProbeCache(db))
		}
	}
	s.loader = track.NewLoader(loaderOpts...)

	out := openOutput(cfg.Playback)
	s.output = out

	s.controller = audio.NewController()
	s.renderer = audio.NewRenderer(out,
		audio.WithGrace(cfg.Playback.StopGrace),
		audio.WithTap(audio.NewTap(tapSize)),
		audio.WithController(s.controller),
		audio.WithVolume(cfg.Playback.Volume),
	)

	s.fanout = player.NewFanout(player.LogSink{})
	opts := []player.Option{
		player.WithSink(s.fanout),
		player.WithTrackerInterval(cfg.Playback.TrackerInterval),
		player.WithStopGrace(cfg.Playback.StopGrace),
		player.WithReplayWindow(cfg.Playback.ReplayWindow),
		player.WithAutoContinue(cfg.Playback.AutoContinue),
	}

	if cfg.Library.PlaylistDir != "" {
		var err error
		s.catalog = playlist.NewCatalog(cfg.Library.PlaylistDir)
		if cfg.Library.WatchPlaylists {
			err = s.catalog.Watch(ctx)
		} else {
			err = s.catalog.Refresh()
		}
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.Library.PlaylistDir).Msg("Playlist directory unavailable")
		}
		opts = append(opts, player.WithDiscoverer(s.catalog))
	}

	s.engine = player.NewEngine(s.renderer, s.loader, opts...)
	s.engine.SetRepeatMode(cfg.Playback.RepeatMode())

	if cfg.MPD.Host != "" {
		client := mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
		if err := client.Connect(); err != nil {
			log.Warn().Err(err).Str("host", cfg.MPD.Host).Msg("MPD unavailable, stored playlists disabled")
		} else {
			s.mpd = client
			s.importer = mpd.NewImporter(client, cfg.MPD.MusicDir, s.loader)
		}
	}

	return s, nil
}

func openOutput(cfg config.PlaybackConfig) outputDevice {
	if cfg.Output == config.OutputSpeaker && audio.DeviceAvailable {
		out, err := audio.NewSpeakerOutput(outputRate, cfg.BufferSize)
		if err == nil {
			log.Info().Int("rate", int(outputRate)).Dur("buffer", cfg.BufferSize).Msg("Using audio device")
			return out
		}
		log.Warn().Err(err).Msg("Audio device unavailable, falling back to null output")
	}
	log.Info().Msg("Using null output")
	return audio.NewClockedOutput(outputRate, 10*time.Millisecond, 1)
}

// cover returns artwork for path if it belongs to the current track or the
// active playlist. Embedded art wins over MPD's.
func (s *stack) cover(path string) ([]byte, error) {
	cur := s.engine.Current()
	if cur != nil && cur.Path() == path {
		if data, _ := cur.Cover(); len(data) > 0 {
			return data, nil
		}
	} else if !s.known(path) {
		return nil, artwork.ErrNoImage
	}

	if meta, err := track.ReadTags(path); err == nil && len(meta.Cover) > 0 {
		if thumb, err := artwork.Thumbnail(meta.Cover, artwork.ThumbnailSize(s.cfg.Library.CoverSize)); err == nil {
			return thumb, nil
		}
		return meta.Cover, nil
	}

	if data, err := artwork.FolderArt(path, artwork.ThumbnailSize(s.cfg.Library.CoverSize)); err == nil {
		return data, nil
	}

	if s.mpd != nil {
		if uri, ok := mpd.RelativeURI(s.cfg.MPD.MusicDir, path); ok {
			if data, err := s.mpd.ReadPicture(uri); err == nil && len(data) > 0 {
				return data, nil
			}
			if data, err := s.mpd.AlbumArt(uri); err == nil && len(data) > 0 {
				return data, nil
			}
		}
	}
	return nil, artwork.ErrNoImage
}

func (s *stack) known(path string) bool {
	pl := s.engine.Playlist()
	if pl == nil {
		return false
	}
	for _, t := range pl.Tracks() {
		if t.Path() == path {
			return true
		}
	}
	return false
}

// mpdStatus reports "disabled", "connected" or "disconnected".
func (s *stack) mpdStatus() string {
	if s.mpd == nil {
		return "disabled"
	}
	if err := s.mpd.Ping(); err != nil {
		return "disconnected"
	}
	return "connected"
}

func (s *stack) Close() {
	var errs []error
	if s.engine != nil {
		errs = append(errs, s.engine.Close())
	}
	if s.catalog != nil {
		errs = append(errs, s.catalog.Close())
	}
	if s.output != nil {
		errs = append(errs, s.output.Close())
	}
	if s.mpd != nil {
		errs = append(errs, s.mpd.Close())
	}
	if s.probes != nil {
		errs = append(errs, s.probes.Close())
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("Shutdown finished with errors")
	}
}
