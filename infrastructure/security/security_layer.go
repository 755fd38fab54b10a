package security

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrBlockedURL is returned for intents the browser must not follow
var ErrBlockedURL = errors.New("blocked website")

var _ interfaces.SecurityLayer = (*SecurityLayer)(nil)

type SecurityLayer struct {
	blockedHosts []string
	allowPrivate bool
	logger       *logrus.Logger
}

// NewSecurityLayer - creates URL policy. A blocked host also blocks its subdomains.
// Loopback, private and link-local hosts are refused unless allowPrivate is set.
func NewSecurityLayer(blockedHosts []string, allowPrivate bool, logger *logrus.Logger) *SecurityLayer {
	hosts := make([]string, 0, len(blockedHosts))
	for _, h := range blockedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &SecurityLayer{
		blockedHosts: hosts,
		allowPrivate: allowPrivate,
		logger:       logger,
	}
}

// CheckIntent allows only http(s) websites outside the blocked hosts and,
// unless private hosts are allowed, outside the local network
func (s *SecurityLayer) CheckIntent(intent entities.Intent) error {
	u, err := url.Parse(intent.Website)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlockedURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrBlockedURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrBlockedURL)
	}
	if !s.allowPrivate && isLocalHost(host) {
		s.logger.Warnf("Refusing local network host %s", host)
		return fmt.Errorf("%w: host %s is on the local network", ErrBlockedURL, host)
	}
	for _, blocked := range s.blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			s.logger.Warnf("Refusing blocked host %s", host)
			return fmt.Errorf("%w: host %s", ErrBlockedURL, host)
		}
	}
	return nil
}

// GetRiskLevel rates the intent's website: plain http and local addresses
// are riskier than public https sites
func (s *SecurityLayer) GetRiskLevel(intent entities.Intent) string {
	u, err := url.Parse(intent.Website)
	if err != nil {
		return interfaces.RiskHigh
	}
	if isLocalHost(u.Hostname()) {
		return interfaces.RiskHigh
	}
	if strings.EqualFold(u.Scheme, "http") {
		return interfaces.RiskMedium
	}
	return interfaces.RiskLow
}

func isLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast())
}
