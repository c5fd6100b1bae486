package graph

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrMediaNotPublic is returned for a file reference the Graph API cannot
// fetch. Containers are created from public http(s) URLs only.
var ErrMediaNotPublic = errors.New("media must be a public http(s) URL")

// APIError is a non-2xx response decoded from the Graph error envelope.
type APIError struct {
	StatusCode int
	Code       int
	Subcode    int
	Type       string
	Message    string
	Transient  bool
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("graph api: (#%d) %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("graph api: %s (status %d)", e.Message, e.StatusCode)
}

// ValidatePublicURL checks that ref can be handed to the container endpoint.
// Hosts the platform cannot reach (loopback, private ranges, .local names)
// are rejected without a DNS lookup.
func ValidatePublicURL(ref string) error {
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" || !publicHost(u.Hostname()) {
		return fmt.Errorf("%w: %q", ErrMediaNotPublic, ref)
	}
	return nil
}

func publicHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast())
}
