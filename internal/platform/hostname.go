package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// PrivateDomainSuffix is the cluster-internal DNS zone services resolve in.
const PrivateDomainSuffix = "kubidu.internal"

// PrivateDomain returns the internal DNS name of a service.
// Example: api.kubidu.internal
func PrivateDomain(serviceName string) string {
	return fmt.Sprintf("%s.%s", serviceName, PrivateDomainSuffix)
}

// PublicURL builds the public URL of a subdomain under the platform domain.
// Example: https://api-shop.kubidu.app
func PublicURL(subdomain, baseDomain string) string {
	return fmt.Sprintf("https://%s.%s", subdomain, strings.TrimPrefix(baseDomain, "."))
}

// Hostname extracts the host (without port) from a URL. It returns false when
// the URL cannot be parsed or has no host.
func Hostname(rawURL string) (string, bool) {
	if strings.TrimSpace(rawURL) == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" {
		return "", false
	}
	return host, true
}
