// Command parq resolves a single hostname's A record by racing it against
// an ordered list of recursive resolvers and printing the first answer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kvanzuijlen/parq/internal/config"
	"github.com/kvanzuijlen/parq/internal/engine"
	"github.com/kvanzuijlen/parq/internal/history"
	"github.com/kvanzuijlen/parq/internal/logging"
	"github.com/kvanzuijlen/parq/internal/resolvconf"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		serverFlag = flag.String("server", "", "Single resolver to query, HOST or HOST:PORT (overrides config/resolv.conf)")
		timeout    = flag.Duration("timeout", 0, "Overall resolution budget (overrides config)")
		quiet      = flag.Bool("quiet", false, "Suppress output; only the exit code reports the outcome")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <hostname>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(64)
	}
	hostname := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parq: loading config: %v\n", err)
		os.Exit(1)
	}
	if *timeout > 0 {
		cfg.Engine.MaxTimeout = *timeout
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	correlated := logging.WithCorrelation(logger, uuid.NewString())

	servers, err := resolveServers(cfg, *serverFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parq: %v\n", err)
		os.Exit(64)
	}

	eng := engine.New(engine.Engine{
		MaxServers:   cfg.Engine.MaxServers,
		MaxRetries:   cfg.Engine.MaxRetries,
		MaxTimeout:   cfg.Engine.MaxTimeout,
		RetryTimeout: cfg.Engine.RetryTimeout,
		Logger:       correlated,
	})

	var recorder *history.Store
	if cfg.History.Enabled {
		recorder, err = history.Open(cfg.History.Path)
		if err != nil {
			correlated.Warn("history store unavailable, continuing without it", "err", err)
		} else {
			defer func() { _ = recorder.Close() }()
		}
	}

	ctx := context.Background()
	start := time.Now()
	result, resolveErr := eng.Resolve(ctx, servers, hostname)
	elapsed := time.Since(start)

	if recorder != nil {
		recorder.Record(ctx, history.Entry{
			Hostname: hostname,
			Success:  resolveErr == nil,
			Elapsed:  elapsed,
			Result:   result,
			Err:      resolveErr,
		})
	}

	if resolveErr != nil {
		var qerr *engine.QueryError
		exitCode := 1
		if errors.As(resolveErr, &qerr) {
			exitCode = qerr.Kind.ExitCode()
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "parq: %v\n", resolveErr)
		}
		os.Exit(exitCode)
	}

	if !*quiet {
		ip := net.IP(result.Address[:])
		fmt.Printf("%s (%ds/%d)\n", ip.String(), result.TTL, result.ServerIndex)
	}
}

// resolveServers picks the server list: an explicit -server flag wins,
// then config.Resolvers.Servers, then resolv.conf.
func resolveServers(cfg *config.Config, serverFlag string) ([]engine.Endpoint, error) {
	if serverFlag != "" {
		ep, err := parseEndpoint(serverFlag)
		if err != nil {
			return nil, err
		}
		return []engine.Endpoint{ep}, nil
	}

	if len(cfg.Resolvers.Servers) > 0 {
		endpoints := make([]engine.Endpoint, 0, len(cfg.Resolvers.Servers))
		for _, s := range cfg.Resolvers.Servers {
			ip := net.ParseIP(s)
			if ip == nil || ip.To4() == nil {
				continue
			}
			endpoints = append(endpoints, engine.Endpoint{IP: ip.To4(), Port: resolvconf.DefaultPort})
		}
		if len(endpoints) == 0 {
			return nil, errors.New("resolvers.servers contained no usable IPv4 addresses")
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

func parseEndpoint(s string) (engine.Endpoint, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host = s
		port = "53"
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return engine.Endpoint{}, fmt.Errorf("invalid IPv4 resolver address %q", s)
	}
	var p int
	if _, err := fmt.Sscanf(port, "%d", &p); err != nil || p <= 0 || p > 65535 {
		return engine.Endpoint{}, fmt.Errorf("invalid port in %q", s)
	}
	return engine.Endpoint{IP: ip.To4(), Port: uint16(p)}, nil
}
