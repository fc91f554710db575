package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adisurya/bandarpulse/config"
	"github.com/adisurya/bandarpulse/internal/app"
	"github.com/adisurya/bandarpulse/internal/client"
	"github.com/adisurya/bandarpulse/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up
// resources when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): Parent context for the shutdown timeout.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (broadcast loop, caches).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runServe starts the API server and the feed broadcast loop and blocks
// until an interrupt signal arrives.
func runServe(ctx context.Context, port string) {
	logger.L().Info().Msg("starting broker summary server")

	router, feedHub, cleanup, err := app.InitializeApp()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("app init error")
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(hubCtx)
	g.Go(func() error {
		if err := feedHub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	server := startServer(router, port)
	gracefulShutdown(ctx, server, func() {
		stopHub()
		if err := g.Wait(); err != nil {
			logger.L().Error().Err(err).Msg("broadcast loop error")
		}
		cleanup()
	})
}

// runWatch follows one symbol from the terminal: REST fetch for the first
// snapshot, then the live feed with automatic reconnection, printing every
// state change until interrupted.
func runWatch(ctx context.Context, symbol, feedURL, apiURL string) {
	if symbol == "" {
		logger.L().Fatal().Msg("--symbol is required in watch mode")
	}

	cfg := config.AppConfig
	tr := client.NewWSTransport(feedURL, client.WSOptions{})
	cl := client.New(tr, client.Config{
		BaseDelay:   cfg.Reconnect.BaseDelay,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
	})
	store := client.NewStore(client.NewHTTPFetcher(apiURL, cfg.Quote.Timeout), cl)
	defer store.Close()

	if err := store.LoadOrSubscribe(ctx, symbol); err != nil {
		logger.L().Fatal().Err(err).Msg("watch failed to start")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			logger.L().Info().Msg("watch stopped")
			return
		case view, ok := <-store.Updates():
			if !ok {
				return
			}
			evt := logger.L().Info().
				Str("symbol", view.Symbol).
				Str("conn", string(view.Conn))
			if view.Snapshot != nil {
				evt = evt.
					Str("action", string(view.Snapshot.MarketMakerAction)).
					Int64("avg_price", view.Snapshot.AvgPrice).
					Str("dominant_broker", view.Snapshot.DominantBroker).
					Str("last_updated", view.Snapshot.LastUpdated)
			}
			if view.ErrorMessage != "" {
				evt = evt.Str("error", view.ErrorMessage)
			}
			evt.Msg("update")
		}
	}
}

// main is the entry point of the bandarpulse application.
//
// Modes (selected via --mode flag):
//   - serve: Starts the REST API, the websocket feed, and the broadcast loop.
//   - watch: Follows one symbol's live broker summary from the terminal.
//
// Flags:
//   - --mode:   Execution mode ("serve" or "watch"). Default: "serve".
//   - --port:   Port for the API server. Defaults to value from config (SERVER_PORT).
//   - --symbol: Symbol to follow in watch mode (e.g. BBCA).
//   - --url:    Feed websocket URL for watch mode. Defaults to FEED_URL.
//   - --api:    REST base URL for watch mode's initial fetch.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "serve", "Mode: serve or watch")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for serve mode")
	symbol := flag.String("symbol", "", "Symbol to follow in watch mode")
	feedURL := flag.String("url", config.AppConfig.Feed.URL, "Feed websocket URL for watch mode")
	apiURL := flag.String("api", "http://localhost:8080", "REST base URL for watch mode")
	flag.Parse()

	switch *mode {
	case "serve":
		runServe(ctx, *port)
	case "watch":
		runWatch(ctx, *symbol, *feedURL, *apiURL)
	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
