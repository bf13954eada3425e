package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-playback/internal/transport/socketio"
	"github.com/edumarques81/stellar-playback/internal/version"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Socket.io control server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	info := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", info.String())
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Int("port", cfg.Server.Port).
		Str("output", cfg.Playback.Output).
		Str("playlists", cfg.Library.PlaylistDir).
		Str("mpd_host", cfg.MPD.Host).
		Msg("Configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := socketio.Options{
		MaxExternalClients: cfg.Server.MaxExternalClients,
		PositionThrottle:   cfg.Server.PositionThrottle,
		Samples:            st.renderer,
		Audio:              st.controller,
	}
	if st.catalog != nil {
		opts.Files = st.catalog
	}
	if st.importer != nil {
		opts.Stored = st.importer
	}

	socketServer, err := socketio.NewServer(st.engine, opts)
	if err != nil {
		return fmt.Errorf("failed to create Socket.io server: %w", err)
	}
	defer socketServer.Close()
	st.fanout.Add(socketServer)

	if st.importer != nil {
		if err := socketServer.StartMPDWatcher(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to start MPD watcher")
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketServer)
	(&api{snapshot: st.engine.Snapshot, cover: st.cover, mpd: st.mpdStatus}).register(mux)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsMiddleware(cfg.Server.CORSOrigins, mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}
