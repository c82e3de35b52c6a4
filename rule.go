package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rule is the compiled, in-memory form of a single redirect or rewrite
// entry. Its "to" field may be a literal URL/path template, or — when it
// begins with "!" — a reference to a named destination resolver.
type Rule struct {
	To          string
	Kind        string // "simple" or "regex"
	AllowSlash  bool
	Condition   *Condition
	Code        int
	QSA         bool
	AppendRoute bool
	RoutePrefix string

	// Parameters forwarded to a destination resolver when To references one.
	WebEndpoint string
	PrezParent  string
	PrezKind    string
	APIEndpoint string
	Prefixes    map[string]string

	regex       *regexp.Regexp
	startsMatch string
}

// IsDestRef reports whether To names a destination resolver rather than a
// literal target.
func (r *Rule) IsDestRef() bool {
	return strings.HasPrefix(r.To, "!")
}

// DestName returns the destination name referenced by To. Only valid when
// IsDestRef is true.
func (r *Rule) DestName() string {
	return strings.TrimPrefix(r.To, "!")
}

var truthValues = map[string]bool{
	"true": true, "1": true, "t": true, "yes": true,
}

// boolish interprets the loosely-typed truthy values TOML configuration
// authors write for flags: native bools, "true"/"1"/"t"/"yes" strings, or 1.
func boolish(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return truthValues[strings.ToLower(t)]
	case int64:
		return t == 1
	default:
		return false
	}
}

func asString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func asInt(m map[string]interface{}, key string, def int) int {
	switch v := m[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func decodeCondition(m map[string]interface{}) *Condition {
	c := &Condition{}
	c.Mediatype = asString(m, "mediatype")
	c.Profile = asString(m, "profile")
	if sub, ok := m["not"].(map[string]interface{}); ok {
		c.Not = decodeCondition(sub)
	}
	return c
}

func decodePrefixes(m map[string]interface{}) map[string]string {
	raw, ok := m["prefixes"].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// decodeRule turns a raw TOML value (either a bare string or a table) for
// one [redirects]/[rewrites] entry into a Rule, along with the effective
// match key (honoring a "from" override) and whether it is conditional.
func decodeRule(key string, raw interface{}, defaultRoutePrefix string, defaultAllowSlash bool, defaultCode int, defaultQSA bool) (rule *Rule, matchKey string, isConditional bool, err error) {
	matchKey = key
	switch v := raw.(type) {
	case string:
		return &Rule{To: v, Kind: "simple", RoutePrefix: defaultRoutePrefix, AllowSlash: defaultAllowSlash, Code: defaultCode, QSA: defaultQSA}, matchKey, false, nil
	case map[string]interface{}:
		to := asString(v, "to")
		if to == "" {
			return nil, matchKey, false, fmt.Errorf("value for %q does not have a 'to' value", key)
		}
		r := &Rule{
			To:          to,
			Kind:        "simple",
			RoutePrefix: defaultRoutePrefix,
			AllowSlash:  defaultAllowSlash,
			Code:        defaultCode,
			QSA:         defaultQSA,
			WebEndpoint: asString(v, "web_endpoint"),
			APIEndpoint: asString(v, "api_endpoint"),
			PrezKind:    asString(v, "prez_kind"),
			PrezParent:  asString(v, "prez_parent"),
			Prefixes:    decodePrefixes(v),
		}
		if k := asString(v, "kind"); k != "" {
			r.Kind = strings.ToLower(k)
		}
		if rp := asString(v, "route_prefix"); rp != "" {
			r.RoutePrefix = rp
		}
		if _, ok := v["allow_slash"]; ok {
			r.AllowSlash = boolish(v["allow_slash"])
		}
		if _, ok := v["code"]; ok {
			r.Code = asInt(v, "code", defaultCode)
		}
		if _, ok := v["qsa"]; ok {
			r.QSA = boolish(v["qsa"])
		}
		if _, ok := v["append_route"]; ok {
			r.AppendRoute = boolish(v["append_route"])
		}
		if cond, ok := v["condition"].(map[string]interface{}); ok {
			r.Condition = decodeCondition(cond)
			isConditional = true
		}
		if from := asString(v, "from"); from != "" {
			matchKey = from
		}
		return r, matchKey, isConditional, nil
	default:
		return nil, matchKey, false, fmt.Errorf("bad rule value for %q", key)
	}
}
