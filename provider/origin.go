package provider

import (
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"ftp":   "21",
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// Origin gets the serialized origin (scheme://host[:port]) of an absolute
// URL, the same way browsers do: lowercased, without the scheme's default
// port. It returns "" for URLs without both a scheme and a host.
func Origin(u *url.URL) string {
	if u.Scheme == "" || u.Host == "" {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	port := u.Port()
	if port != "" && port != defaultPorts[scheme] {
		host += ":" + port
	}

	return scheme + "://" + host
}
