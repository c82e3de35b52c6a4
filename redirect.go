package main

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// MatchOutcome is the result of running the two-phase rewrite/redirect
// pipeline against one request. Exactly one of Location or NotFound is set
// on return, unless MakeRedir returns a non-nil error (and a nil outcome).
type MatchOutcome struct {
	Host       string
	StatusCode int
	Location   string
	NotFound   bool
	MatchPath  string
}

// longestFirst returns keys sorted by length descending, so the longest
// (most specific) regex candidate is tried first.
func longestFirst(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// bindHost walks hostList in order, returning the first virtualhost present
// in tables, falling back to serverName's table and finally the default ("")
// table.
func bindHost(tables *Tables, hostList []string, serverName string) (string, *HostTable) {
	for _, h := range hostList {
		if ht, ok := tables.Hosts[h]; ok {
			return h, ht
		}
	}
	if serverName != "" {
		if ht, ok := tables.Hosts[serverName]; ok {
			return serverName, ht
		}
	}
	return defaultHost, tables.Hosts[defaultHost]
}

// splitLocalname splits path (without a leading slash) into its final
// segment and extension, per the trailing-slash rule: a path ending in "/"
// has neither.
func splitLocalname(path string) (localname, extension string) {
	if path == "" || strings.HasSuffix(path, "/") {
		return "", ""
	}
	idx := strings.LastIndex(path, "/")
	localname = path[idx+1:]
	if dot := strings.LastIndex(localname, "."); dot >= 0 {
		extension = strings.ToLower(localname[dot+1:])
	}
	return localname, extension
}

// runRewritePhase applies the four rewrite stages in order, returning the
// (possibly unchanged) match path.
func runRewritePhase(ht *HostTable, mPath string, getProfile, getMediatype func() []Ranked) string {
	if rule, ok := ht.Rewrites[mPath]; ok {
		return strings.ToLower(strings.TrimPrefix(rule.To, "/"))
	}

	for _, k := range longestFirst(ht.RewriteRegexKeys) {
		rule := ht.Rewrites[k]
		if rule.startsMatch != "" && !strings.HasPrefix(mPath, rule.startsMatch) {
			continue
		}
		newPath, n := regexSubstitute(rule.regex, rule.To, mPath)
		if n > 0 {
			return strings.TrimPrefix(newPath, "/")
		}
	}

	if rules, ok := ht.ConditionalRewrites[mPath]; ok {
		for _, rule := range rules {
			if rule.Condition.Evaluate(getProfile(), getMediatype()) {
				return strings.TrimPrefix(rule.To, "/")
			}
		}
	}

	for _, k := range longestFirst(ht.CondRewriteRegexKeys) {
		for _, rule := range ht.ConditionalRewrites[k] {
			if rule.startsMatch != "" && !strings.HasPrefix(mPath, rule.startsMatch) {
				continue
			}
			if !rule.Condition.Evaluate(getProfile(), getMediatype()) {
				continue
			}
			newPath, n := regexSubstitute(rule.regex, rule.To, mPath)
			if n > 0 {
				return strings.TrimPrefix(newPath, "/")
			}
		}
	}

	return mPath
}

// runRedirectPhase applies the four redirect stages in order, returning the
// matching Rule or nil if nothing matched.
func runRedirectPhase(ht *HostTable, mPath string, getProfile, getMediatype func() []Ranked) *Rule {
	if rule, ok := ht.Redirects[mPath]; ok {
		return rule
	}

	for _, k := range longestFirst(ht.RedirectRegexKeys) {
		rule := ht.Redirects[k]
		if rule.startsMatch != "" && !strings.HasPrefix(mPath, rule.startsMatch) {
			continue
		}
		if _, n := regexSubstitute(rule.regex, rule.To, mPath); n > 0 {
			return rule
		}
	}

	if rules, ok := ht.ConditionalRedirects[mPath]; ok {
		for _, rule := range rules {
			if rule.Condition.Evaluate(getProfile(), getMediatype()) {
				return rule
			}
		}
	}

	for _, k := range longestFirst(ht.CondRedirectRegexKeys) {
		for _, rule := range ht.ConditionalRedirects[k] {
			if rule.startsMatch != "" && !strings.HasPrefix(mPath, rule.startsMatch) {
				continue
			}
			if !rule.Condition.Evaluate(getProfile(), getMediatype()) {
				continue
			}
			if _, n := regexSubstitute(rule.regex, rule.To, mPath); n > 0 {
				return rule
			}
		}
	}

	return nil
}

// mergeQSA appends the incoming request's query parameters onto target's,
// with the incoming value winning on a key collision.
func mergeQSA(target, incoming url.Values) string {
	base, err := url.Parse(target)
	if err != nil || len(incoming) == 0 {
		return target
	}
	merged := base.Query()
	for k, v := range incoming {
		merged[k] = v
	}
	base.RawQuery = merged.Encode()
	return base.String()
}

// MakeRedir runs the full rewrite-then-redirect pipeline for one request and
// resolves any destination reference the winning rule points at.
func MakeRedir(tables *Tables, serverName, proto string, hostList []string, origPath string, queryParams url.Values, headers http.Header) (*MatchOutcome, error) {
	host, ht := bindHost(tables, hostList, serverName)
	if ht == nil {
		return &MatchOutcome{Host: host, NotFound: true}, nil
	}

	mPath := strings.ToLower(origPath)
	_, extension := splitLocalname(origPath)

	var profile, mediatype []Ranked
	var profileDone, mediatypeDone bool
	getProfile := func() []Ranked {
		if !profileDone {
			profile = profileExtract(headers, queryParams)
			profileDone = true
		}
		return profile
	}
	getMediatype := func() []Ranked {
		if !mediatypeDone {
			mediatype = mediatypeExtract(headers, queryParams, extension)
			mediatypeDone = true
		}
		return mediatype
	}

	rewritten := runRewritePhase(ht, mPath, getProfile, getMediatype)
	if rewritten != mPath {
		recordMatch(host, "rewrite")
	}
	mPath = rewritten

	rule := runRedirectPhase(ht, mPath, getProfile, getMediatype)
	if rule == nil {
		recordNoMatch(host)
		return &MatchOutcome{Host: host, NotFound: true, MatchPath: mPath}, nil
	}
	recordMatch(host, "redirect")

	redirTo := rule.To
	if rule.regex != nil {
		if sub, n := regexSubstitute(rule.regex, rule.To, mPath); n > 0 {
			redirTo = sub
		}
	}
	if rule.IsDestRef() {
		destName := rule.DestName()
		resolver, ok := tables.Dests[destName]
		if !ok {
			recordNoMatch(host)
			return &MatchOutcome{Host: host, NotFound: true, MatchPath: mPath}, nil
		}
		ctx := ResolveContext{
			Proto:       proto,
			Host:        host,
			Path:        origPath,
			Fragment:    "",
			QueryParams: queryParams,
			Mediatype:   getMediatype(),
			Profile:     getProfile(),
			Extension:   extension,
			Rule:        rule,
		}
		resolved, err := resolver(ctx)
		recordDestResolve(destName, err)
		if err != nil {
			return nil, fmt.Errorf("destination %q: %w", destName, err)
		}
		redirTo = resolved
	}

	if rule.AppendRoute {
		redirTo = strings.TrimSuffix(redirTo, "/") + "/" + origPath
	}

	if rule.QSA {
		redirTo = mergeQSA(redirTo, queryParams)
	}

	code := rule.Code
	if code == 0 {
		code = ht.DefaultRedirCode
	}

	return &MatchOutcome{
		Host:       host,
		StatusCode: code,
		Location:   redirTo,
		MatchPath:  mPath,
	}, nil
}
