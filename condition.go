package main

// Condition is the conditional predicate attached to a conditional rule.
// Recognized keys are AND-combined; an empty condition evaluates true.
type Condition struct {
	Mediatype string     `toml:"mediatype"`
	Profile   string     `toml:"profile"`
	Not       *Condition `toml:"not"`
}

func matchMediatype(mediatypes []Ranked, mt string) bool {
	mt = mediatypeExpand(mt)
	for _, r := range mediatypes {
		if r.Value == mt {
			return true
		}
	}
	return false
}

func matchProfile(profiles []Ranked, profile string) bool {
	for _, r := range profiles {
		if r.Value == profile {
			return true
		}
	}
	return false
}

// mediatypeExpands lets condition authors write short aliases ("html",
// "ttl", ...) for their canonical mediatype strings.
var mediatypeExpands = map[string]string{
	"html":    "text/html",
	"xhtml":   "application/xhtml+xml",
	"xml":     "application/xml",
	"rdf":     "application/rdf+xml",
	"ttl":     "text/turtle",
	"turtle":  "text/turtle",
	"n3":      "text/n3",
	"nt":      "text/n3",
	"jsonld":  "application/ld+json",
	"json-ld": "application/ld+json",
	"json":    "application/json",
}

func mediatypeExpand(mt string) string {
	if expanded, ok := mediatypeExpands[mt]; ok {
		return expanded
	}
	return mt
}

// Evaluate checks whether c applies given the request's ranked profile and
// mediatype lists. A nil Condition always applies.
func (c *Condition) Evaluate(profiles, mediatypes []Ranked) bool {
	if c == nil {
		return true
	}
	matched := false
	result := true

	if c.Mediatype != "" {
		matched = true
		result = result && matchMediatype(mediatypes, c.Mediatype)
	}
	if c.Profile != "" {
		matched = true
		result = result && matchProfile(profiles, c.Profile)
	}
	if c.Not != nil {
		matched = true
		result = result && !c.Not.Evaluate(profiles, mediatypes)
	}

	if !matched {
		return true
	}
	return result
}

// IsEmpty reports whether the condition has no recognized keys, in which
// case negotiation signals never need to be computed to evaluate it.
func (c *Condition) IsEmpty() bool {
	return c == nil || (c.Mediatype == "" && c.Profile == "" && c.Not == nil)
}
