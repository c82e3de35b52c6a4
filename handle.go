package main

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// getTraceID returns a per-request correlation ID for log lines, honoring an
// inbound X-Request-Id if the caller (or a fronting proxy) already set one.
func getTraceID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.New().String()
}

// buildHostList assembles the ordered host-candidate list shared by both
// routes: an explicit "_host" query override first, then any IRI-embedded
// host the caller already found, then proxy-forwarded headers, then the
// request's own Host header (with localhost substitution).
func buildHostList(r *http.Request, query url.Values, serverName string, iriHost string) (hostList []string, proto string) {
	if h := query.Get("_host"); h != "" {
		hostList = append(hostList, strings.ToLower(strings.TrimSpace(h)))
		query.Del("_host")
	}
	if iriHost != "" {
		hostList = append(hostList, strings.ToLower(iriHost))
	}

	forwardedProto, forwardedHost := parseForwardedRequest(r.Header)
	if forwardedHost != "" {
		hostList = append(hostList, forwardedHost)
	}
	proto = r.URL.Scheme
	if proto == "" {
		proto = "http"
	}
	if forwardedProto != "" {
		proto = forwardedProto
	}
	hostList = appendHostHeader(hostList, r.Host, serverName)
	return hostList, proto
}

// allowedMethods reports whether method is one the redirect surface serves.
// No other verbs are supported: a redirect rule has no request body to act
// on and nothing here is mutating.
func allowedMethods(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func writeOutcome(w http.ResponseWriter, logger *slog.Logger, traceID string, outcome *MatchOutcome, err error) {
	w.Header().Set("X-Request-Id", traceID)
	if err != nil {
		logger.Error("destination resolver failed", "trace_id", traceID, "err", err)
		http.Error(w, "internal error resolving redirect destination", http.StatusInternalServerError)
		return
	}
	if outcome.NotFound {
		logger.Debug("no matching rule", "trace_id", traceID, "host", outcome.Host, "path", outcome.MatchPath)
		http.Error(w, "Not Found; host="+outcome.Host+"; path="+outcome.MatchPath, http.StatusNotFound)
		return
	}
	logger.Debug("matched redirect rule", "trace_id", traceID, "host", outcome.Host, "location", outcome.Location, "code", outcome.StatusCode)
	w.Header().Set("Location", outcome.Location)
	w.WriteHeader(outcome.StatusCode)
}

// handleRedir serves GET/HEAD /redir?_pid=<iri> (or ?iri=<iri>), resolving a
// fully-qualified persistent identifier rather than a path on the current
// host.
func handleRedir(logger *slog.Logger, loader *Loader, serverName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowedMethods(r.Method) {
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		traceID := getTraceID(r)
		query := r.URL.Query()

		var iri string
		if v := query.Get("_pid"); v != "" {
			iri = strings.TrimSpace(v)
			query.Del("_pid")
		} else if v := query.Get("iri"); v != "" {
			iri = strings.TrimSpace(v)
			// Left in query_params: it may be consumed downstream.
		} else {
			http.Error(w, "Missing iri parameter or _pid query parameter.", http.StatusBadRequest)
			return
		}

		schemeIdx := strings.Index(iri, "://")
		if schemeIdx < 0 {
			http.Error(w, "Invalid PID URI given for redirect.", http.StatusBadRequest)
			return
		}
		iriProto := iri[:schemeIdx]
		hostPath := iri[schemeIdx+3:]

		slashIdx := strings.Index(hostPath, "/")
		if slashIdx < 0 {
			http.Error(w, "Invalid PID URI given for redirect.", http.StatusBadRequest)
			return
		}
		iriHost := hostPath[:slashIdx]
		path := strings.TrimLeft(hostPath[slashIdx+1:], "/")

		if qidx := strings.Index(path, "?"); qidx >= 0 {
			extra := path[qidx+1:]
			path = path[:qidx]
			extraVals, _ := url.ParseQuery(extra)
			for k, vs := range extraVals {
				for _, v := range vs {
					query.Add(k, v)
				}
			}
		}

		// forwarded proto is intentionally not consulted here: the IRI's own
		// scheme takes precedence.
		hostList, _ := buildHostList(r, query, serverName, iriHost)
		proto := iriProto

		tables := loader.Current()
		if tables == nil {
			http.Error(w, "redirect tables not yet loaded", http.StatusServiceUnavailable)
			return
		}
		outcome, err := MakeRedir(tables, serverName, proto, hostList, path, query, r.Header)
		writeOutcome(w, logger, traceID, outcome, err)
	})
}

// handleIndex serves GET/HEAD /{path...}, resolving a path on the matched
// virtualhost.
func handleIndex(logger *slog.Logger, loader *Loader, serverName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowedMethods(r.Method) {
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		traceID := getTraceID(r)
		// path does not include a leading slash but may have a trailing one:
		// "/datasets/bdr" => "datasets/bdr", "/" => "".
		path := strings.TrimPrefix(r.URL.Path, "/")
		query := r.URL.Query()

		hostList, proto := buildHostList(r, query, serverName, "")

		tables := loader.Current()
		if tables == nil {
			http.Error(w, "redirect tables not yet loaded", http.StatusServiceUnavailable)
			return
		}
		outcome, err := MakeRedir(tables, serverName, proto, hostList, path, query, r.Header)
		writeOutcome(w, logger, traceID, outcome, err)
	})
}
