package addrutil

import (
	"net"
	"net/url"
	"strings"
)

// BaseURL normalizes a controller address into a scheme-qualified base URL
// without a trailing slash.
//
// Users commonly paste just the gateway IP ("192.168.1.1"), so a missing
// scheme means https. A bare IPv6 literal is bracketed.
func BaseURL(raw string) string {
	a := strings.TrimSpace(raw)
	if a == "" {
		return ""
	}

	if !strings.HasPrefix(a, "http://") && !strings.HasPrefix(a, "https://") {
		if ip := net.ParseIP(strings.TrimRight(a, "/")); ip != nil && ip.To4() == nil {
			a = "[" + ip.String() + "]"
		}
		a = "https://" + a
	}
	return strings.TrimRight(a, "/")
}

// HostPort returns the host:port a base URL dials, filling in the scheme's
// default port.
func HostPort(base string) (string, bool) {
	u, err := url.Parse(base)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		default:
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), true
}
