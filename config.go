package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
)

const defaultHost = ""

// HostTable is the per-virtual-host bundle of rewrite and redirect rule
// mappings, built by the Loader and read concurrently by the redirect
// engine. Once published it is never mutated.
type HostTable struct {
	Redirects            map[string]*Rule
	Rewrites             map[string]*Rule
	ConditionalRedirects map[string][]*Rule
	ConditionalRewrites  map[string][]*Rule

	RedirectRegexKeys     []string
	RewriteRegexKeys      []string
	CondRedirectRegexKeys []string
	CondRewriteRegexKeys  []string

	DefaultRedirCode int
	DefaultQSA       bool
}

func newHostTable() *HostTable {
	return &HostTable{
		Redirects:            map[string]*Rule{},
		Rewrites:             map[string]*Rule{},
		ConditionalRedirects: map[string][]*Rule{},
		ConditionalRewrites:  map[string][]*Rule{},
		DefaultRedirCode:     defaultStatusCode,
	}
}

// Tables is an immutable snapshot of every virtualhost's rule table plus the
// destination-resolver registry. A Loader publishes a new Tables atomically;
// in-flight requests always see one complete snapshot end-to-end.
type Tables struct {
	Hosts    map[string]*HostTable
	Dests    map[string]Resolver
	LoadedAt time.Time
}

// Summary is the diagnostic view of a Tables snapshot exposed over /status.
type Summary struct {
	LoadedAt  time.Time                 `yaml:"loaded_at"`
	HostCount int                       `yaml:"host_count"`
	DestCount int                       `yaml:"dest_count"`
	Hosts     map[string]map[string]int `yaml:"hosts"`
}

// Summary builds a serializable diagnostic snapshot of t.
func (t *Tables) Summary() Summary {
	s := Summary{LoadedAt: t.LoadedAt, DestCount: len(t.Dests), Hosts: map[string]map[string]int{}}
	for host, ht := range t.Hosts {
		s.Hosts[host] = map[string]int{
			"redirects":             len(ht.Redirects),
			"rewrites":              len(ht.Rewrites),
			"conditional_redirects": len(ht.ConditionalRedirects),
			"conditional_rewrites":  len(ht.ConditionalRewrites),
		}
	}
	s.HostCount = len(s.Hosts)
	return s
}

type destDecl struct {
	kind   string
	params map[string]interface{}
}

// parsedFile is the set of rule-table contributions extracted from a single
// *.toml definitions file, ready to merge into a Tables snapshot.
type parsedFile struct {
	virtualhost      string
	hostAliases      []string
	defaultRedirCode int
	defaultQSA       bool

	redirects             map[string]*Rule
	condRedirects         map[string][]*Rule
	redirectRegexKeys     []string
	condRedirectRegexKeys []string

	rewrites             map[string]*Rule
	condRewrites         map[string][]*Rule
	rewriteRegexKeys     []string
	condRewriteRegexKeys []string

	dests map[string]destDecl
}

type rawFile struct {
	Default   map[string]interface{} `toml:"default"`
	Redirects map[string]interface{} `toml:"redirects"`
	Rewrites  map[string]interface{} `toml:"rewrites"`
	Dests     map[string]interface{} `toml:"dests"`
}

// Loader reads *.toml rule-definition files from a directory into Tables
// snapshots, tracking per-file modification times so unchanged files are
// skipped on reload.
type Loader struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	mtimes map[string]time.Time
	parsed map[string]*parsedFile

	current atomic.Pointer[Tables]
}

// NewLoader returns a Loader rooted at dir. Call Load before serving.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	return &Loader{
		dir:    dir,
		logger: logger.WithGroup("redirs"),
		mtimes: map[string]time.Time{},
		parsed: map[string]*parsedFile{},
	}
}

// Current returns the most recently published Tables snapshot, or nil if
// Load has never succeeded.
func (l *Loader) Current() *Tables {
	return l.current.Load()
}

// Load (re)reads every *.toml file under the directory, parses it, and — on
// full success — atomically publishes a new Tables snapshot. When force is
// false, files whose mtime has not changed since the last successful load
// reuse their cached parse. A hard structural error aborts the whole load
// and leaves the previously published snapshot (if any) untouched.
func (l *Loader) Load(force bool) (*Tables, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("definitions directory %q: %w", l.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("definitions path %q is not a directory", l.dir)
	}

	matches, err := filepath.Glob(filepath.Join(l.dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	newMtimes := map[string]time.Time{}
	newParsed := map[string]*parsedFile{}

	for _, path := range matches {
		stat, err := os.Stat(path)
		mtime := time.Unix(1, 0)
		if err == nil {
			mtime = stat.ModTime()
		} else {
			l.logger.Info("cannot stat definitions file, ignoring mtime", "path", path)
		}

		if !force {
			if old, ok := l.mtimes[path]; ok && !mtime.After(old) {
				if cached, ok := l.parsed[path]; ok {
					newMtimes[path] = old
					newParsed[path] = cached
					continue
				}
			}
		}

		var raw rawFile
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			l.logger.Error("cannot read or parse definitions file, skipping", "path", path, "err", err)
			continue
		}
		l.logger.Info("reading definitions file", "path", path)

		pf, err := parseDefFile(&raw, l.logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		newMtimes[path] = mtime
		newParsed[path] = pf
	}

	tables, err := mergeParsed(newParsed, matches, l.logger)
	if err != nil {
		return nil, err
	}

	l.mtimes = newMtimes
	l.parsed = newParsed
	l.current.Store(tables)
	return tables, nil
}

func parseDefFile(raw *rawFile, logger *slog.Logger) (*parsedFile, error) {
	pf := &parsedFile{
		defaultRedirCode: defaultStatusCode,
		redirects:        map[string]*Rule{},
		condRedirects:    map[string][]*Rule{},
		rewrites:         map[string]*Rule{},
		condRewrites:     map[string][]*Rule{},
		dests:            map[string]destDecl{},
	}

	defaultRoutePrefix := "/"
	defaultAllowSlash := false

	if d := raw.Default; d != nil {
		if _, ok := d["code"]; ok {
			pf.defaultRedirCode = asInt(d, "code", pf.defaultRedirCode)
		}
		if vh := asString(d, "virtualhost"); vh != "" {
			pf.virtualhost = vh
		}
		if rp := asString(d, "route_prefix"); rp != "" {
			defaultRoutePrefix = rp
		}
		if aliases, ok := d["host_aliases"].([]interface{}); ok {
			for _, a := range aliases {
				if s, ok := a.(string); ok {
					pf.hostAliases = append(pf.hostAliases, s)
				}
			}
		}
		if _, ok := d["allow_slash"]; ok {
			defaultAllowSlash = boolish(d["allow_slash"])
		}
		if _, ok := d["qsa"]; ok {
			pf.defaultQSA = boolish(d["qsa"])
		}
	}
	if pf.virtualhost == "@" {
		pf.virtualhost = ""
	}

	for k, v := range raw.Redirects {
		rule, matchKey, conditional, err := decodeRule(k, v, defaultRoutePrefix, defaultAllowSlash, pf.defaultRedirCode, pf.defaultQSA)
		if err != nil {
			return nil, fmt.Errorf("redirect %q: %w", k, err)
		}
		if rule.Kind == "regex" {
			re, err := regexp.Compile("(?i)" + matchKey)
			if err != nil {
				logger.Error("cannot compile regex, skipping rule", "key", matchKey, "err", err)
				continue
			}
			rule.regex = re
			rule.startsMatch = findStartsMatch(matchKey)
			if conditional {
				pf.condRedirectRegexKeys = append(pf.condRedirectRegexKeys, matchKey)
				pf.condRedirects[matchKey] = append(pf.condRedirects[matchKey], rule)
			} else {
				pf.redirectRegexKeys = append(pf.redirectRegexKeys, matchKey)
				if _, exists := pf.redirects[matchKey]; exists {
					return nil, fmt.Errorf("non-conditional redirect rule %q already exists", matchKey)
				}
				pf.redirects[matchKey] = rule
			}
			continue
		}

		route := strings.ToLower(strings.TrimPrefix(joinRoute(rule.RoutePrefix, matchKey), "/"))
		routes := []string{route}
		if rule.AllowSlash {
			route = strings.TrimSuffix(route, "/")
			routes = []string{route, route + "/"}
		}
		for _, r := range routes {
			if conditional {
				pf.condRedirects[r] = append(pf.condRedirects[r], rule)
			} else {
				if _, exists := pf.redirects[r]; exists {
					return nil, fmt.Errorf("non-conditional redirect rule %q already exists", r)
				}
				pf.redirects[r] = rule
			}
		}
	}

	for k, v := range raw.Rewrites {
		rule, matchKey, conditional, err := decodeRule(k, v, defaultRoutePrefix, false, pf.defaultRedirCode, pf.defaultQSA)
		if err != nil {
			return nil, fmt.Errorf("rewrite %q: %w", k, err)
		}
		if rule.Kind == "regex" {
			re, err := regexp.Compile("(?i)" + matchKey)
			if err != nil {
				logger.Error("cannot compile regex, skipping rule", "key", matchKey, "err", err)
				continue
			}
			rule.regex = re
			rule.startsMatch = findStartsMatch(matchKey)
			if conditional {
				pf.condRewriteRegexKeys = append(pf.condRewriteRegexKeys, matchKey)
				pf.condRewrites[matchKey] = append(pf.condRewrites[matchKey], rule)
			} else {
				pf.rewriteRegexKeys = append(pf.rewriteRegexKeys, matchKey)
				if _, exists := pf.rewrites[matchKey]; exists {
					return nil, fmt.Errorf("non-conditional rewrite rule %q already exists", matchKey)
				}
				pf.rewrites[matchKey] = rule
			}
			continue
		}
		matchKey = strings.ToLower(matchKey)
		if conditional {
			pf.condRewrites[matchKey] = append(pf.condRewrites[matchKey], rule)
		} else {
			if _, exists := pf.rewrites[matchKey]; exists {
				return nil, fmt.Errorf("non-conditional rewrite rule %q already exists", matchKey)
			}
			pf.rewrites[matchKey] = rule
		}
	}

	for name, v := range raw.Dests {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("destination %q is not a table", name)
		}
		kind := asString(m, "kind")
		if kind == "" {
			return nil, fmt.Errorf("destination %q does not have a 'kind' value", name)
		}
		if _, ok := destConstructors[kind]; !ok {
			return nil, fmt.Errorf("destination %q has an unknown kind %q", name, kind)
		}
		pf.dests[name] = destDecl{kind: kind, params: m}
	}

	return pf, nil
}

func joinRoute(prefix, key string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// mergeParsed combines every file's contributions into one Tables snapshot,
// in sorted-filename order, so cross-file duplicate-key detection is
// deterministic.
func mergeParsed(files map[string]*parsedFile, orderedPaths []string, logger *slog.Logger) (*Tables, error) {
	hosts := map[string]*HostTable{defaultHost: newHostTable()}
	dests := map[string]Resolver{}

	for _, path := range orderedPaths {
		pf, ok := files[path]
		if !ok {
			continue
		}

		host, ok := hosts[pf.virtualhost]
		if !ok {
			host = newHostTable()
			hosts[pf.virtualhost] = host
		}
		host.DefaultRedirCode = pf.defaultRedirCode
		host.DefaultQSA = pf.defaultQSA

		for _, alias := range pf.hostAliases {
			if existing, ok := hosts[alias]; ok {
				if existing != host {
					logger.Error("host alias already exists for a different virtualhost, skipping alias", "alias", alias, "virtualhost", pf.virtualhost)
				}
				continue
			}
			hosts[alias] = host
		}

		if err := mergeRuleMap(host.Redirects, pf.redirects); err != nil {
			return nil, err
		}
		if err := mergeRuleMap(host.Rewrites, pf.rewrites); err != nil {
			return nil, err
		}
		mergeCondRuleMap(host.ConditionalRedirects, pf.condRedirects)
		mergeCondRuleMap(host.ConditionalRewrites, pf.condRewrites)
		host.RedirectRegexKeys = append(host.RedirectRegexKeys, pf.redirectRegexKeys...)
		host.RewriteRegexKeys = append(host.RewriteRegexKeys, pf.rewriteRegexKeys...)
		host.CondRedirectRegexKeys = append(host.CondRedirectRegexKeys, pf.condRedirectRegexKeys...)
		host.CondRewriteRegexKeys = append(host.CondRewriteRegexKeys, pf.condRewriteRegexKeys...)

		for name, decl := range pf.dests {
			ctor := destConstructors[decl.kind]
			resolver, err := ctor(decl.params)
			if err != nil {
				return nil, fmt.Errorf("destination %q: %w", name, err)
			}
			dests[name] = resolver
		}
	}

	return &Tables{Hosts: hosts, Dests: dests, LoadedAt: time.Now()}, nil
}

func mergeRuleMap(dst, src map[string]*Rule) error {
	for k, v := range src {
		if _, exists := dst[k]; exists {
			return fmt.Errorf("non-conditional rule %q already exists", k)
		}
		dst[k] = v
	}
	return nil
}

func mergeCondRuleMap(dst, src map[string][]*Rule) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}
