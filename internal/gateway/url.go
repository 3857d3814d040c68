package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// URLBuilder turns an endpoint and its query into the absolute URL to call
type URLBuilder interface {
	Build(endpoint string, query url.Values) string
}

// DirectURL joins endpoints onto a base URL
type DirectURL struct {
	Base string
}

// Build returns base/endpoint?query. An empty endpoint targets the base itself.
func (d DirectURL) Build(endpoint string, query url.Values) string {
	u := d.Base
	if endpoint != "" {
		u = strings.TrimRight(d.Base, "/") + "/" + strings.TrimLeft(endpoint, "/")
	}
	return withQuery(u, query)
}

// ProxyURL routes every call through a same-origin rewriting proxy that takes
// the upstream endpoint in its path parameter
type ProxyURL struct {
	Proxy string
}

// Build returns proxy?path=endpoint?query
func (p ProxyURL) Build(endpoint string, query url.Values) string {
	sep := "?"
	if strings.Contains(p.Proxy, "?") {
		sep = "&"
	}
	return p.Proxy + sep + "path=" + withQuery(strings.TrimLeft(endpoint, "/"), query)
}

func withQuery(u string, query url.Values) string {
	if len(query) == 0 {
		return u
	}
	return u + "?" + query.Encode()
}

// NewURLBuilder selects the builder for a backend profile
func NewURLBuilder(profile, devBaseURL, proxyURL string) (URLBuilder, error) {
	switch profile {
	case "development":
		if devBaseURL == "" {
			return nil, fmt.Errorf("development profile requires a base URL")
		}
		return DirectURL{Base: devBaseURL}, nil
	case "production":
		if proxyURL == "" {
			return nil, fmt.Errorf("production profile requires a proxy URL")
		}
		return ProxyURL{Proxy: proxyURL}, nil
	default:
		return nil, fmt.Errorf("unknown backend profile %q", profile)
	}
}
