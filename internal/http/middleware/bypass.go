package middleware

import (
	"net"
	"net/http"
	"strings"
)

// BypassEvaluator decides whether a request skips rate limiting and names
// the reason when it does.
type BypassEvaluator func(r *http.Request) (bool, string)

type RequestBypassConfig struct {
	EnableProbeBypass bool
	TrustedCIDRs      []string
}

type requestBypassMatcher struct {
	probeBypass  bool
	trustedCIDRs []*net.IPNet
}

// NewRequestBypassEvaluator returns nil when the config enables nothing,
// so callers can skip the check entirely.
func NewRequestBypassEvaluator(cfg RequestBypassConfig) BypassEvaluator {
	m := &requestBypassMatcher{
		probeBypass:  cfg.EnableProbeBypass,
		trustedCIDRs: make([]*net.IPNet, 0, len(cfg.TrustedCIDRs)),
	}
	for _, cidr := range cfg.TrustedCIDRs {
		v := strings.TrimSpace(cidr)
		if v == "" {
			continue
		}
		_, network, err := net.ParseCIDR(v)
		if err != nil {
			continue
		}
		m.trustedCIDRs = append(m.trustedCIDRs, network)
	}

	if !m.probeBypass && len(m.trustedCIDRs) == 0 {
		return nil
	}
	return m.match
}

func (m *requestBypassMatcher) match(r *http.Request) (bool, string) {
	if r == nil {
		return false, ""
	}
	if m.probeBypass {
		switch strings.TrimSpace(strings.ToLower(r.URL.Path)) {
		case "/healthz", "/readyz":
			return true, "internal_probe_path"
		}
	}
	if ip := net.ParseIP(clientIP(r)); ip != nil {
		for _, network := range m.trustedCIDRs {
			if network.Contains(ip) {
				return true, "trusted_cidr"
			}
		}
	}
	return false, ""
}
