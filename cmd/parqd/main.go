// Command parqd runs the resolve engine behind a small diagnostics HTTP
// service: /api/v1/health, /api/v1/stats, /api/v1/resolve.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvanzuijlen/parq/internal/api"
	"github.com/kvanzuijlen/parq/internal/config"
	"github.com/kvanzuijlen/parq/internal/engine"
	"github.com/kvanzuijlen/parq/internal/logging"
	"github.com/kvanzuijlen/parq/internal/resolvconf"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parqd: loading config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.API.Enabled {
		fmt.Fprintln(os.Stderr, "parqd: api.enabled is false in config, nothing to serve")
		os.Exit(1)
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})

	servers, err := loadServers(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parqd: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(engine.Engine{
		MaxServers:   cfg.Engine.MaxServers,
		MaxRetries:   cfg.Engine.MaxRetries,
		MaxTimeout:   cfg.Engine.MaxTimeout,
		RetryTimeout: cfg.Engine.RetryTimeout,
		Logger:       logger,
	})

	srv := api.New(cfg, eng, servers, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("parqd listening", "addr", srv.Addr())
		errCh <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func loadServers(cfg *config.Config) ([]engine.Endpoint, error) {
	if len(cfg.Resolvers.Servers) > 0 {
		endpoints := make([]engine.Endpoint, 0, len(cfg.Resolvers.Servers))
		for _, s := range cfg.Resolvers.Servers {
			ip := net.ParseIP(s)
			if ip == nil || ip.To4() == nil {
				continue
			}
			endpoints = append(endpoints, engine.Endpoint{IP: ip.To4(), Port: resolvconf.DefaultPort})
		}
		return endpoints, nil
	}

	ips, err := resolvconf.Parse(cfg.Resolvers.ResolvConfPath, cfg.Engine.MaxServers)
	if err != nil {
		return nil, fmt.Errorf("no servers configured and resolv.conf unavailable: %w", err)
	}
	endpoints := make([]engine.Endpoint, 0, len(ips))
	for _, ip := range ips {
		endpoints = append(endpoints, engine.Endpoint{IP: ip, Port: resolvconf.DefaultPort})
	}
	return endpoints, nil
}
