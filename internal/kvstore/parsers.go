package kvstore

import (
	"bufio"
	"strings"
)

// parseDomainList parses a newline-separated list of domains: one domain
// per line, `#`-prefixed comments and blank lines ignored. Grounded on
// internal/filtering/parser.go's bufio.Scanner line loop, simplified to
// the single plain-domain-per-line format spec §4.D calls for.
func parseDomainList(raw string) any {
	out := map[string]struct{}{}
	forEachLine(raw, func(line string) {
		out[strings.ToLower(line)] = struct{}{}
	})
	return out
}

// parseIPList parses a newline-separated list of IP literals, CIDRs, or
// ranges: one entry per line, `#` comments and blank lines ignored. The
// entries are kept as literal strings; internal/match.MatchesAny
// interprets their shape.
func parseIPList(raw string) any {
	var out []string
	forEachLine(raw, func(line string) {
		out = append(out, line)
	})
	return out
}

// parseHostsFile parses a hosts(5)-style file: "<ip> <hostname>" per
// line, `#` comments and blank lines ignored. A line with more than two
// fields is rejected (malformed, skipped); extra fields beyond ip and
// hostname are not supported by spec §4.D's simplified hosts format.
func parseHostsFile(raw string) any {
	out := map[string]string{}
	forEachLine(raw, func(line string) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return
		}
		ip, host := fields[0], fields[1]
		out[strings.ToLower(host)] = ip
	})
	return out
}

func forEachLine(raw string, fn func(line string)) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(line)
	}
}
