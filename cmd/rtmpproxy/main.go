package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/torresjeff/rtmpproxy"
	"github.com/torresjeff/rtmpproxy/config"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		streamURL  string
		listenAddr string
		verbose    bool
	)
	flag.StringVar(&configPath, "c", "", "path to a yaml config file")
	flag.StringVar(&streamURL, "p", "", "rtmp url to publish to, eg. rtmp://hostname/app/?args (overrides the config file)")
	flag.StringVar(&listenAddr, "l", "", "listen address (default \""+config.DefaultListen+"\")")
	flag.BoolVar(&verbose, "V", false, "debug logging")
	flag.Parse()

	cfg, err := loadConfig(configPath, streamURL, listenAddr, verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := rtmpproxy.NewResolver(cfg.ResolverWorkers, logger)
	defer resolver.Close()

	server := &rtmpproxy.Server{
		Config:   cfg,
		Logger:   logger,
		Resolver: resolver,
	}
	if err := server.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// loadConfig reads the config file if one was given, then applies the command line overrides.
func loadConfig(path, streamURL, listenAddr string, verbose bool) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "" && streamURL == "":
		cfg, err = config.Load(path)
	case streamURL != "":
		var base *config.Config
		if path != "" {
			if base, err = config.Load(path); err != nil {
				return nil, err
			}
		}
		cfg, err = config.FromStreamURL(streamURL)
		if err == nil && base != nil {
			cfg.Debug = base.Debug
			cfg.Listen = base.Listen
			cfg.ResolverWorkers = base.ResolverWorkers
			cfg.DialTimeout = base.DialTimeout
		}
	default:
		return nil, &config.Error{Field: "stream", Err: errors.New("either -c or -p is required")}
	}
	if err != nil {
		return nil, err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if verbose {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
