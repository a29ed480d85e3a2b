package rewrite

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Origin is the externally visible scheme, host and port of the gateway.
type Origin struct {
	Scheme string
	Host   string
	Port   int
}

// OriginFromRequest derives the origin clients used to reach the gateway.
// X-Forwarded-Proto takes precedence over the connection's TLS state. Host
// and port come from the Host header; X-Forwarded-Host replaces it only when
// trustForwardedHost is set, i.e. behind a proxy that overwrites the header.
func OriginFromRequest(r *http.Request, trustForwardedHost bool) Origin {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := firstHeaderValue(r, "X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}

	hostport := r.Host
	if trustForwardedHost {
		if h := firstHeaderValue(r, "X-Forwarded-Host"); h != "" {
			hostport = h
		}
	}

	o := Origin{Scheme: scheme, Host: hostport, Port: defaultPort(scheme)}
	if host, port, err := net.SplitHostPort(hostport); err == nil {
		o.Host = host
		if n, err := strconv.Atoi(port); err == nil {
			o.Port = n
		}
	}
	return o
}

// HostPort is host[:port], leaving out 80 and 443.
func (o Origin) HostPort() string {
	if o.Port == 80 || o.Port == 443 || o.Port == 0 {
		if strings.Contains(o.Host, ":") {
			return "[" + o.Host + "]"
		}
		return o.Host
	}
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// String is scheme://host[:port].
func (o Origin) String() string {
	return o.Scheme + "://" + o.HostPort()
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

func firstHeaderValue(r *http.Request, name string) string {
	v, _, _ := strings.Cut(r.Header.Get(name), ",")
	return strings.ToLower(strings.TrimSpace(v))
}
