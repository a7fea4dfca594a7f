// Command parqbench hammers a resolver list with concurrent Resolve calls
// and reports latency percentiles and throughput, alongside a CPU/memory
// snapshot of the machine running the benchmark.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kvanzuijlen/parq/internal/engine"
)

func main() {
	var (
		server      = flag.String("server", "127.0.0.1:53", "Resolver HOST:PORT")
		name        = flag.String("name", "example.com", "Hostname to resolve")
		concurrency = flag.Int("concurrency", 50, "Number of concurrent workers")
		requests    = flag.Int("requests", 2000, "Total number of resolutions")
		timeout     = flag.Duration("timeout", 500*time.Millisecond, "Per-call MaxTimeout")
	)
	flag.Parse()

	ep, err := parseEndpoint(*server)
	if err != nil {
		fmt.Printf("parqbench: %v\n", err)
		return
	}

	conc := max(*concurrency, 1)
	total := max(*requests, 1)
	per := total / conc
	rem := total % conc

	var latMu sync.Mutex
	lat := make([]float64, 0, total)
	var nxdomain, failed int

	// Engine isn't safe for concurrent use (see internal/engine's doc
	// comment on the sequence counter), so every worker gets its own.
	t0 := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < conc; i++ {
		n := per
		if i < rem {
			n++
		}
		if n <= 0 {
			continue
		}
		wg.Add(1)
		go func(count int) {
			defer wg.Done()
			eng := engine.New(engine.Engine{MaxServers: 1, MaxRetries: 0, MaxTimeout: *timeout})
			for j := 0; j < count; j++ {
				start := time.Now()
				_, err := eng.Resolve(context.Background(), []engine.Endpoint{ep}, *name)
				ms := float64(time.Since(start).Microseconds()) / 1000.0

				latMu.Lock()
				lat = append(lat, ms)
				if err != nil {
					var qerr *engine.QueryError
					if isNXDomain(err, &qerr) {
						nxdomain++
					} else {
						failed++
					}
				}
				latMu.Unlock()
			}
		}(n)
	}
	wg.Wait()
	elapsed := time.Since(t0).Seconds()

	if len(lat) == 0 {
		fmt.Println("no requests completed")
		return
	}
	sort.Float64s(lat)
	qps := float64(len(lat)) / elapsed

	fmt.Printf("server=%s name=%q concurrency=%d requests=%d\n", *server, *name, conc, len(lat))
	fmt.Printf("elapsed_s=%.3f qps=%.1f nxdomain=%d failed=%d\n", elapsed, qps, nxdomain, failed)
	fmt.Printf("latency_ms p50=%.3f p95=%.3f p99=%.3f min=%.3f max=%.3f\n",
		percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[0], lat[len(lat)-1])

	printSystemStats()
}

func printSystemStats() {
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("memory used_percent=%.1f used_mb=%.0f total_mb=%.0f\n",
			vm.UsedPercent, float64(vm.Used)/1024/1024, float64(vm.Total)/1024/1024)
	}
	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		fmt.Printf("cpu used_percent=%.1f\n", pct[0])
	}
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := int(float64(len(sorted))*float64(p)/100.0) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func isNXDomain(err error, out **engine.QueryError) bool {
	qerr, ok := err.(*engine.QueryError)
	if !ok {
		return false
	}
	*out = qerr
	return qerr.Kind == engine.KindNXDomain
}

func parseEndpoint(s string) (engine.Endpoint, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return engine.Endpoint{}, fmt.Errorf("invalid server address %q: %w", s, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return engine.Endpoint{}, fmt.Errorf("invalid IPv4 address in %q", s)
	}
	var p int
	if _, err := fmt.Sscanf(port, "%d", &p); err != nil {
		return engine.Endpoint{}, fmt.Errorf("invalid port in %q", s)
	}
	return engine.Endpoint{IP: ip.To4(), Port: uint16(p)}, nil
}
