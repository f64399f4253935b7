package utils

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrMissingHost       = errors.New("missing host")
	ErrUnsupportedScheme = errors.New("only http and https urls can be scanned")
)

// NormalizeScanURL validates raw as an absolute http(s) URL and normalizes
// only what does not change the request target: scheme and host case,
// default ports and the fragment. Unicode hosts are converted to punycode
// the way a browser would before resolving them. Userinfo, path and query are kept as-is
// because heuristics score them.
//
// Examples:
//
//	"HTTPS://Example.COM:443/a?b=1#top" -> "https://example.com/a?b=1"
//	"http://user@Host:8080/"            -> "http://user@host:8080/"
func NormalizeScanURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &url.Error{Op: "parse", URL: raw, Err: ErrEmptyURL}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &url.Error{Op: "parse", URL: raw, Err: ErrUnsupportedScheme}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", &url.Error{Op: "parse", URL: raw, Err: ErrMissingHost}
	}
	if !isASCII(host) {
		if ascii, err := idna.ToASCII(host); err == nil {
			host = ascii
		}
	}

	switch port := u.Port(); {
	case port == "", (u.Scheme == "http" && port == "80"), (u.Scheme == "https" && port == "443"):
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}

	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are
// only honoured after a trusted proxy middleware has rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
