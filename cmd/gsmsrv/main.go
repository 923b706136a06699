package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/logtrace"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
	"github.com/skymodel/skymodel/internal/gsmsrv/db"
	"github.com/skymodel/skymodel/internal/gsmsrv/server"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	opt := parseFlags()

	slog.Info().Str("config_file", opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(opt.configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	if config.Config().ServerPort == "" {
		return fmt.Errorf("server port not defined")
	}

	db.Init()

	serverErrors, shutdownServer, err := createSkyModelServer(ctx)
	if err != nil {
		return fmt.Errorf("creating sky model server: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

func createSkyModelServer(ctx context.Context) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer()
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              ":" + config.Config().ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	// Start the service listening for requests.
	go func() {
		if config.Config().SupportTLS {
			slog.Info().Str("port", config.Config().ServerPort).Msg("server started with TLS")

			tlsConfig, err := createTLSConfig()
			if err != nil {
				serverErrors <- fmt.Errorf("creating TLS config: %w", err)
				return
			}

			listener, err := tls.Listen("tcp", srv.Addr, tlsConfig)
			if err != nil {
				serverErrors <- fmt.Errorf("creating TLS listener: %w", err)
				return
			}

			serverErrors <- srv.Serve(listener)
		} else {
			slog.Info().Str("port", config.Config().ServerPort).Msg("server started")
			serverErrors <- srv.ListenAndServe()
		}
	}()

	shutdownServer := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
		s.Close()
	}

	return serverErrors, shutdownServer, nil
}

// createTLSConfig creates a TLS configuration from the PEM certificates in the config
func createTLSConfig() (*tls.Config, error) {
	cfg := config.Config()

	cert, err := tls.X509KeyPair(cfg.TLSCertPEM, cfg.TLSKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

const DefaultConfigFile = "/etc/gsmsrv/gsmsrv.conf"

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", DefaultConfigFile, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
