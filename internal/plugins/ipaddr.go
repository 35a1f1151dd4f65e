package plugins

import "net"

func parseIPLiteral(s string) net.IP {
	return net.ParseIP(s)
}
