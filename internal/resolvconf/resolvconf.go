// Package resolvconf reads nameserver entries out of a resolv.conf-style
// file, the way the original command-line tool this resolver is modeled
// on builds its server list when none is given explicitly on the config.
package resolvconf

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
)

// DefaultPort is the port assumed for every resolv.conf nameserver entry;
// resolv.conf carries no port, so every resolver there is reached on 53.
const DefaultPort = 53

// Parse reads nameserver lines from the file at path, in order, stopping once maxServers
// have been collected. A line is only considered a nameserver entry if it
// starts with the literal token "nameserver" followed by whitespace;
// anything else (comments, options, search, blank lines) is skipped.
// IPv6 addresses and other malformed entries are skipped rather than
// rejected outright: one bad line in an otherwise usable file shouldn't
// stop the rest of it from being read.
func Parse(path string, maxServers int) ([]net.IP, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open resolv.conf: %w", err)
	}
	defer func() { _ = f.Close() }()

	var servers []net.IP
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(servers) < maxServers {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		ip := net.ParseIP(fields[1])
		if ip == nil {
			continue
		}
		ip4 := ip.To4()
		if ip4 == nil {
			continue // IPv6 nameserver, not supported by this resolver
		}
		servers = append(servers, ip4)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read resolv.conf: %w", err)
	}
	return servers, nil
}
