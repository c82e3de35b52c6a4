package main

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Ranked is a single (quality, value) pair produced by content-negotiation
// header parsing. Lists of Ranked are always sorted by Q descending.
type Ranked struct {
	Q     float64
	Value string
}

// extToMediatype maps a URL path extension to the mediatype it implies.
// "jsonld" maps to the standard "application/ld+json" value, not the
// "application/json-ld" value some older deployments emit.
var extToMediatype = map[string]string{
	"ttl":    "text/turtle",
	"jsonld": "application/ld+json",
	"json":   "application/json",
	"xml":    "application/xml",
	"n3":     "text/n3",
}

func splitAndTrim(s string, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func stripAngleQuotes(s string) string {
	return strings.Trim(s, "<>\"'")
}

// profileExtract implements the profile content-negotiation algorithm:
// "_profile" query param, then Accept-Profile, then Link rel=profile,
// then Prefer profile=, then the legacy "_view" query param.
func profileExtract(headers http.Header, query url.Values) []Ranked {
	if v := query.Get("_profile"); v != "" {
		return []Ranked{{1.0, v}}
	}

	var ret []Ranked

	if acceptProfiles := headers.Values("Accept-Profile"); len(acceptProfiles) > 0 {
		var all []string
		for _, ap := range acceptProfiles {
			all = append(all, splitAndTrim(ap, ",")...)
		}
		for _, ap := range all {
			q := 1.0
			parts := splitAndTrim(ap, ";")
			if len(parts) == 0 {
				continue
			}
			profile := parts[0]
			for _, p := range parts[1:] {
				if strings.HasPrefix(p, "q=") {
					parsed, err := strconv.ParseFloat(p[2:], 64)
					if err != nil {
						q = 0.0
					} else {
						q = parsed
					}
					break
				}
			}
			ret = append(ret, Ranked{q, profile})
		}
	}

	if len(ret) < 1 {
		if linkHeaders := headers.Values("Link"); len(linkHeaders) > 0 {
			var all []string
			for _, lh := range linkHeaders {
				all = append(all, splitAndTrim(lh, ",")...)
			}
			for _, lp := range all {
				parts := splitAndTrim(lp, ";")
				if len(parts) == 0 {
					continue
				}
				href := parts[0]
				isRelProfile := false
				for _, p := range parts[1:] {
					switch strings.ToLower(p) {
					case `rel="profile"`, `rel='profile'`, `rel=profile`:
						isRelProfile = true
					}
					if isRelProfile {
						break
					}
				}
				if isRelProfile {
					ret = append(ret, Ranked{1.0, stripAngleQuotes(strings.TrimSpace(href))})
				}
			}
		}
	}

	if len(ret) < 1 {
		if preferHeaders := headers.Values("Prefer"); len(preferHeaders) > 0 {
			var all []string
			for _, ph := range preferHeaders {
				all = append(all, splitAndTrim(ph, ",")...)
			}
			for _, p := range all {
				for _, part := range splitAndTrim(p, ";") {
					if strings.HasPrefix(strings.ToLower(part), "profile=") {
						ret = append(ret, Ranked{1.0, stripAngleQuotes(part[8:])})
						break
					}
				}
			}
		}
	}

	if len(ret) < 1 {
		if v := query.Get("_view"); v != "" {
			return []Ranked{{1.0, v}}
		}
	}

	sortRanked(ret)
	return ret
}

// mediatypeExtract implements the mediatype content-negotiation algorithm:
// "_mediatype" query param, then Accept, then Prefer mediatype=, then the
// legacy "_format" query param, then an extension-derived mediatype, then a
// wildcard Accept value if one was seen.
func mediatypeExtract(headers http.Header, query url.Values, extension string) []Ranked {
	if v := query.Get("_mediatype"); v != "" {
		return []Ranked{{1.0, v}}
	}

	var ret []Ranked
	var hasWildcard string
	sawWildcard := false

	if acceptHeaders := headers.Values("Accept"); len(acceptHeaders) > 0 {
		var all []string
		for _, ah := range acceptHeaders {
			all = append(all, splitAndTrim(ah, ",")...)
		}
		for _, ap := range all {
			q := 1.0
			parts := splitAndTrim(ap, ";")
			if len(parts) == 0 {
				continue
			}
			value := parts[0]
			for _, p := range parts[1:] {
				if strings.HasPrefix(p, "q=") {
					parsed, err := strconv.ParseFloat(p[2:], 64)
					if err != nil {
						q = 0.0
					} else {
						q = parsed
					}
					break
				}
			}
			if (value == "*/*" || value == "*") && q == 1.0 {
				hasWildcard = value
				sawWildcard = true
			} else {
				ret = append(ret, Ranked{q, value})
			}
		}
	}

	if len(ret) < 1 {
		if preferHeaders := headers.Values("Prefer"); len(preferHeaders) > 0 {
			var all []string
			for _, ph := range preferHeaders {
				all = append(all, splitAndTrim(ph, ",")...)
			}
			for _, p := range all {
				for _, part := range splitAndTrim(p, ";") {
					if strings.HasPrefix(strings.ToLower(part), "mediatype=") {
						ret = append(ret, Ranked{1.0, stripAngleQuotes(part[10:])})
						break
					}
				}
			}
		}
	}

	switch {
	case len(ret) < 1 && query.Get("_format") != "":
		return []Ranked{{1.0, query.Get("_format")}}
	case len(ret) < 1 && extension != "":
		if mt, ok := extToMediatype[extension]; ok {
			return []Ranked{{1.0, mt}}
		}
	case len(ret) < 1 && sawWildcard:
		return []Ranked{{1.0, hasWildcard}}
	}

	sortRanked(ret)
	return ret
}

func sortRanked(r []Ranked) {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Q > r[j].Q
	})
}
