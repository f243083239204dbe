package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/learnpreview/internal/adapter/driven/browser"
	httphandler "github.com/ericfisherdev/learnpreview/internal/adapter/driving/http"
	"github.com/ericfisherdev/learnpreview/internal/application"
	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

var (
	serveOpenBrowser    bool
	serveAllowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local preview API for the in-page button",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("listen-addr", "127.0.0.1:8787", "HTTP API bind address")
	flags.Duration("poll-interval", application.DefaultPollInterval, "shared button state re-check interval")
	flags.BoolVar(&serveOpenBrowser, "open-browser", false, "open previews in the local browser on click")
	flags.StringSliceVar(&serveAllowedOrigins, "allow-origin", httphandler.DefaultAllowedOrigins, "browser origins allowed to call the API")

	mustBind("listen_addr", flags.Lookup("listen-addr"))
	mustBind("poll_interval", flags.Lookup("poll-interval"))
}

func runServe(ctx context.Context) error {
	cfg := appConfig

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("error closing database")
		}
	}()
	logger.Info().Str("path", cfg.DBPath).Bool("token", svc.creds.HasToken()).Msg("credential store opened")

	var opener driven.URLOpener
	if serveOpenBrowser {
		opener = browser.NewOpener(os.Stderr)
	}

	session := application.NewSession(application.SessionConfig{
		Classifier: svc.classifier,
		Buttons:    svc.newButtonManager(opener),
		Interval:   cfg.PollInterval,
		Logger:     logger,
	})

	// The session outlives the signal context so it can be torn down after
	// the HTTP server has drained.
	sessionCtx, cancelSession := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSession()

	events := make(chan model.Event, 16)
	sessionDone := make(chan struct{})
	go func() {
		session.Run(sessionCtx, events)
		close(sessionDone)
	}()

	credEvents, unsubscribe := svc.creds.Subscribe()
	defer unsubscribe()
	go forwardEvents(ctx, credEvents, events)

	handler := httphandler.NewHandler(session, svc.previews, svc.classifier, svc.creds, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, serveAllowedOrigins, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Dur("poll_interval", cfg.PollInterval).
		Str("check_name", cfg.CheckName).
		Str("session", session.ID()).
		Msg("learnpreview started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err = <-serverErr:
		logger.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("http server shutdown error")
	}

	select {
	case events <- model.Event{Kind: model.EventTeardown}:
	case <-sessionDone:
	case <-shutdownCtx.Done():
	}
	select {
	case <-sessionDone:
	case <-shutdownCtx.Done():
	}
	cancelSession()
	<-sessionDone

	logger.Info().Msg("shutdown complete")
	return err
}

// forwardEvents relays credential notifications into the session until ctx
// is done or src is closed.
func forwardEvents(ctx context.Context, src <-chan model.Event, dst chan<- model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
