package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// Resolver finds the client address behind trusted proxies and flags probing
// requests.
type Resolver struct {
	trustedProxies []*net.IPNet
	suspicious     atomic.Int64
}

// NewResolver trusts loopback and the private ranges.
func NewResolver() *Resolver {
	r := &Resolver{}
	for _, cidr := range []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"} {
		if err := r.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Resolver) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	r.trustedProxies = append(r.trustedProxies, network)
	return nil
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, when
// the direct peer is a trusted proxy. Otherwise it returns the peer address.
func (r *Resolver) ClientIP(req *http.Request) string {
	directIP, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		directIP = req.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !r.trusted(parsed) {
		return directIP
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (r *Resolver) trusted(ip net.IP) bool {
	for _, network := range r.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

var attackPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin", ".git", ".ssh",
	"<script", "union select", "etc/passwd", "cmd.exe",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb"}

// Suspicious reports whether req looks like a scan or an injection attempt.
// The query is matched decoded.
func (r *Resolver) Suspicious(req *http.Request) bool {
	query, err := url.QueryUnescape(req.URL.RawQuery)
	if err != nil {
		query = req.URL.RawQuery
	}
	target := strings.ToLower(req.URL.Path + "?" + query)
	agent := strings.ToLower(req.Header.Get("User-Agent"))

	hit := len(req.URL.String()) > 2048
	for _, p := range attackPatterns {
		hit = hit || strings.Contains(target, p)
	}
	for _, a := range scannerAgents {
		hit = hit || strings.Contains(agent, a)
	}
	switch req.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		hit = true
	}
	if hit {
		r.suspicious.Add(1)
	}
	return hit
}

// SuspiciousCount returns how many requests Suspicious flagged.
func (r *Resolver) SuspiciousCount() int64 {
	return r.suspicious.Load()
}
