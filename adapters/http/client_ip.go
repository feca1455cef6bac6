package authhttp

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPFunc determines the client IP used for rate limiting.
//
// Returning an empty string means "unknown" and causes rate limiting to
// fail open.
type ClientIPFunc func(r *http.Request) string

// DefaultClientIP returns a conservative strategy: use RemoteAddr when it
// is a public IP, otherwise return "" so a reverse proxy or ingress is
// never rate-limited as a single client. Hosts behind proxies should use
// ClientIPFromForwardedHeaders with a trusted proxy list.
func DefaultClientIP() ClientIPFunc {
	return func(r *http.Request) string {
		ip := remoteIP(r)
		if ip == "" {
			return ""
		}
		parsed, err := netip.ParseAddr(ip)
		if err != nil {
			return ""
		}
		if isPublicAddr(parsed) {
			return parsed.String()
		}
		return ""
	}
}

// ClientIPFromForwardedHeaders trusts X-Forwarded-For only when the
// immediate peer is in trustedProxies, falling back to DefaultClientIP
// behavior otherwise.
func ClientIPFromForwardedHeaders(trustedProxies []netip.Prefix) ClientIPFunc {
	return func(r *http.Request) string {
		peer := remoteIP(r)
		if peer == "" {
			return ""
		}
		peerAddr, err := netip.ParseAddr(peer)
		if err != nil {
			return ""
		}
		for _, p := range trustedProxies {
			if !p.Contains(peerAddr) {
				continue
			}
			v := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
			if v == "" {
				break
			}
			// XFF is comma-separated; left-most is the original client.
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if a, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil && isPublicAddr(a) {
				return a.String()
			}
			break
		}
		if isPublicAddr(peerAddr) {
			return peerAddr.String()
		}
		return ""
	}
}

func remoteIP(r *http.Request) string {
	if r == nil || r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	// RemoteAddr may already be a bare IP.
	return r.RemoteAddr
}

func isPublicAddr(a netip.Addr) bool {
	if !a.IsValid() {
		return false
	}
	if a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalMulticast() || a.IsLinkLocalUnicast() {
		return false
	}
	if a.IsMulticast() || a.IsUnspecified() {
		return false
	}
	return true
}
