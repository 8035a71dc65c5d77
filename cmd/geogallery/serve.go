package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lewtec/geogallery/internal/capture"
	"github.com/lewtec/geogallery/internal/web"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gallery and map pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}

		a, err := openApp(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open gallery: %w", err)
		}
		defer a.Close()

		a.capture.Activate(ctx)

		srv, err := web.NewServer(a.gallery, a.maps, a.media)
		if err != nil {
			return err
		}

		if cfg.Capture.InboxDir != "" {
			inbox := capture.NewInbox(cfg.Capture.InboxDir, func(ctx context.Context, path string) error {
				_, err := a.gallery.Import(ctx, path)
				return err
			})
			go func() {
				if err := inbox.Run(ctx); err != nil {
					log.Error().Err(err).Msg("inbox stopped")
				}
			}()
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info().
				Str("addr", addr).
				Str("database", cfg.Database.Path).
				Str("media", cfg.Media.Dir).
				Msg("starting server")
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "Address to bind the webserver (default from server.addr)")
}
