package main

import (
	"net/http"
	"strings"
)

var localHostNames = map[string]bool{
	"": true, "localhost": true, "127.0.0.1": true, "127.0.1.1": true,
}

var forwardedSSLTrue = map[string]bool{"on": true, "true": true, "yes": true}
var forwardedSSLFalse = map[string]bool{"off": true, "false": true, "no": true}

func stripPort(host string) string {
	if i := strings.Index(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}

// parseForwardedRequest reads proxy-forwarded proto/host from the standard
// "Forwarded" header, falling back to "X-Forwarded-Host" /
// "X-Forwarded-Proto" / "X-Forwarded-SSL".
func parseForwardedRequest(headers http.Header) (proto, host string) {
	if fwd := headers.Values("Forwarded"); len(fwd) > 0 {
		first := strings.SplitN(fwd[0], ",", 2)[0]
		for _, component := range strings.Split(first, ";") {
			component = strings.TrimSpace(component)
			switch {
			case host == "" && strings.HasPrefix(component, "host="):
				host = strings.TrimPrefix(component, "host=")
			case proto == "" && strings.HasPrefix(component, "proto="):
				proto = strings.TrimPrefix(component, "proto=")
			}
		}
		return proto, host
	}

	if fh := headers.Values("X-Forwarded-Host"); len(fh) > 0 {
		first := strings.SplitN(fh[0], ",", 2)[0]
		if first != "" {
			host = strings.ToLower(strings.TrimSpace(stripPort(first)))
		}
	}
	if fp := headers.Values("X-Forwarded-Proto"); len(fp) > 0 {
		first := strings.SplitN(fp[0], ",", 2)[0]
		if first != "" {
			proto = strings.ToLower(strings.TrimSpace(first))
		}
	}
	if proto == "" {
		if fs := headers.Values("X-Forwarded-SSL"); len(fs) > 0 {
			ssl := strings.ToLower(strings.TrimSpace(strings.SplitN(fs[0], ",", 2)[0]))
			switch {
			case forwardedSSLTrue[ssl]:
				proto = "https"
			case forwardedSSLFalse[ssl]:
				proto = "http"
			}
		}
	}
	return proto, host
}

// appendHostHeader appends the request's Host value to hostList, substituting
// the configured server name whenever the Host header names localhost or a
// loopback address rather than the real public hostname.
// hostHeaderValue is r.Host, since net/http splits the Host header out of
// r.Header.
func appendHostHeader(hostList []string, hostHeaderValue string, serverName string) []string {
	if hostHeaderValue == "" {
		return hostList
	}
	headHost := strings.ToLower(strings.TrimSpace(stripPort(hostHeaderValue)))
	if localHostNames[headHost] {
		if serverName != "" {
			return append(hostList, serverName)
		}
		return append(hostList, headHost)
	}
	return append(hostList, headHost)
}
