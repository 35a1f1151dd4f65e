package match

import (
	"net"
	"strings"
)

// privateRanges are the RFC 1918 / loopback ranges spec §4.E names
// explicitly: 10/8, 172.16/12, 192.168/16, 127/8.
var privateRanges = mustParseCIDRs([]string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "127.0.0.0/8"})

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

// IsPrivateIP reports whether ip falls in any RFC 1918 range or the IPv4
// loopback block.
func IsPrivateIP(ip net.IP) bool {
	for _, r := range privateRanges {
		if r.Contains(ip) {
			return true
		}
	}
	return false
}

// CIDRContains reports whether ip is within the CIDR cidr. A malformed
// CIDR is treated as a non-match.
func CIDRContains(cidr string, ip net.IP) bool {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	return n.Contains(ip)
}

// RangeContains reports whether ip falls within the inclusive range
// "a-b" (spec §4.E Range). A malformed range is treated as a non-match.
func RangeContains(rangeExpr string, ip net.IP) bool {
	parts := strings.SplitN(rangeExpr, "-", 2)
	if len(parts) != 2 {
		return false
	}
	lo := net.ParseIP(strings.TrimSpace(parts[0]))
	hi := net.ParseIP(strings.TrimSpace(parts[1]))
	if lo == nil || hi == nil {
		return false
	}
	return ipBetween(ip, lo, hi)
}

func ipBetween(ip, lo, hi net.IP) bool {
	ip4, lo4, hi4 := ip.To4(), lo.To4(), hi.To4()
	if ip4 != nil && lo4 != nil && hi4 != nil {
		return compareBytes(ip4, lo4) >= 0 && compareBytes(ip4, hi4) <= 0
	}
	ip16, lo16, hi16 := ip.To16(), lo.To16(), hi.To16()
	if ip16 == nil || lo16 == nil || hi16 == nil {
		return false
	}
	return compareBytes(ip16, lo16) >= 0 && compareBytes(ip16, hi16) <= 0
}

func compareBytes(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// MatchesAny reports whether ip is contained by any literal IP, CIDR, or
// range string in entries (used by IP-Matcher, spec §4.F-ip-matcher).
func MatchesAny(entries []string, ip net.IP) bool {
	for _, e := range entries {
		e = strings.TrimSpace(e)
		switch {
		case strings.Contains(e, "/"):
			if CIDRContains(e, ip) {
				return true
			}
		case strings.Contains(e, "-"):
			if RangeContains(e, ip) {
				return true
			}
		default:
			if lit := net.ParseIP(e); lit != nil && lit.Equal(ip) {
				return true
			}
		}
	}
	return false
}
