package util

import (
	"net"
	"strings"
)

func isPrivateIPv4(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	switch {
	case ip4[0] == 10:
		return true
	case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31:
		return true
	case ip4[0] == 192 && ip4[1] == 168:
		return true
	}
	return false
}

// primaryLANIPv4 returns the first private IPv4 address of an up, non-loopback
// interface, falling back to any IPv4, or "" when none is found.
func primaryLANIPv4() string {
	fallback := ""
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			if isPrivateIPv4(ip4) {
				return ip4.String()
			}
			if fallback == "" {
				fallback = ip4.String()
			}
		}
	}
	return fallback
}

// ComposeLANURL renders addr as an http URL, substituting the primary LAN
// address when addr binds all interfaces.
func ComposeLANURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	h := strings.TrimSpace(host)
	if h == "" || h == "0.0.0.0" || h == "::" || h == "[::]" {
		if lan := primaryLANIPv4(); lan != "" {
			return "http://" + lan + ":" + port
		}
	}
	if strings.Contains(h, ":") && !strings.HasPrefix(h, "[") {
		return "http://[" + h + "]:" + port
	}
	return "http://" + h + ":" + port
}
