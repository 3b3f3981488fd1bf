package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

var unusualMethods = map[string]bool{
	"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
}

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector flags suspicious requests and resolves client addresses behind
// trusted proxies.
type Detector struct {
	suspicious     atomic.Int64
	invalidIP      atomic.Int64
	trustedProxies []*net.IPNet
}

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports whether the request looks like a probe or
// an attack and counts it if so.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if !d.isSuspicious(r) {
		return false
	}
	d.suspicious.Add(1)
	return true
}

func (d *Detector) isSuspicious(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}

	if unusualMethods[r.Method] {
		return true
	}

	// possible overflow attempt
	if len(r.URL.String()) > 2048 {
		return true
	}

	// more than 5 proxy hops
	return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
}

// ExtractClientIP extracts the real client IP, validating forwarded headers
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
		d.invalidIP.Add(1)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		d.invalidIP.Add(1)
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// AddTrustedProxy adds a trusted proxy network. It must be called before the
// detector starts serving requests.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
