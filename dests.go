package main

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveContext carries everything a destination resolver needs to turn a
// matched IRI into a backend URL: the reconstructed request components, the
// negotiated mediatype/profile lists, and the rule entry that referenced the
// destination (whose fields override the destination's own declared
// parameters).
type ResolveContext struct {
	Proto       string
	Host        string
	Path        string
	Fragment    string
	QueryParams url.Values
	Mediatype   []Ranked
	Profile     []Ranked
	Extension   string
	Rule        *Rule
}

// Resolver transforms a ResolveContext into an absolute destination URL.
type Resolver func(ctx ResolveContext) (string, error)

type destConstructor func(params map[string]interface{}) (Resolver, error)

// destConstructors registers each destination "kind" name from [dests]
// blocks to the resolver constructor that closes over its declared
// parameters.
var destConstructors = map[string]destConstructor{
	"prez_v3": newPrezV3Resolver,
	"prez_v4": newPrezV4Resolver,
}

var (
	htmlMediatypes = map[string]bool{"text/html": true, "application/xhtml+xml": true}
	rdfMediatypes  = map[string]bool{"text/turtle": true, "application/rdf+xml": true, "application/ld+json": true, "application/json": true}
)

func prezEnd(mediatypes []Ranked) string {
	for _, r := range mediatypes {
		if htmlMediatypes[r.Value] {
			return "frontend"
		}
		if rdfMediatypes[r.Value] {
			return "backend"
		}
	}
	return "backend"
}

// reconstructIRI rebuilds the original request IRI from its components,
// returning the IRI plus its namespace/localname split for CURIE reduction.
func reconstructIRI(proto, host, path, fragment string) (uri, ns, localname string) {
	path = strings.TrimSuffix(path, "/")
	if fragment != "" {
		ns = fmt.Sprintf("%s://%s/%s#", proto, host, path)
		localname = fragment
		return ns + localname, ns, localname
	}
	uri = fmt.Sprintf("%s://%s/%s", proto, host, path)
	idx := strings.LastIndex(uri, "/")
	return uri, uri[:idx+1], uri[idx+1:]
}

func newPrezV3Resolver(params map[string]interface{}) (Resolver, error) {
	declWebEndpoint := asString(params, "web_endpoint")
	declAPIEndpoint := asString(params, "api_endpoint")
	declPrezKind := asString(params, "prez_kind")
	declPrezParent := asString(params, "prez_parent")
	declPrefixes := decodePrefixes(params)

	return func(ctx ResolveContext) (string, error) {
		uri, ns, localname := reconstructIRI(ctx.Proto, ctx.Host, ctx.Path, ctx.Fragment)

		webEndpoint, apiEndpoint, prezKind, prezParent, prefixes := declWebEndpoint, declAPIEndpoint, declPrezKind, declPrezParent, declPrefixes
		if ctx.Rule != nil {
			if ctx.Rule.WebEndpoint != "" {
				webEndpoint = ctx.Rule.WebEndpoint
			}
			if ctx.Rule.APIEndpoint != "" {
				apiEndpoint = ctx.Rule.APIEndpoint
			}
			if ctx.Rule.PrezKind != "" {
				prezKind = ctx.Rule.PrezKind
			}
			if ctx.Rule.PrezParent != "" {
				prezParent = ctx.Rule.PrezParent
			}
			if ctx.Rule.Prefixes != nil {
				prefixes = ctx.Rule.Prefixes
			}
		}

		if webEndpoint == "" || apiEndpoint == "" {
			return "", fmt.Errorf("prez_v3 destination: web_endpoint and api_endpoint must both be configured")
		}

		var curie string
		var haveCurie bool
		if len(prefixes) > 0 {
			curie, haveCurie = applyPrezCurie(ns, localname, prefixes)
		}

		var parentCurie string
		var haveParentCurie bool
		if prezParent != "" {
			switch {
			case strings.HasPrefix(prezParent, "http://"), strings.HasPrefix(prezParent, "https://"), strings.HasPrefix(prezParent, "urn:"):
				parentCurie, haveParentCurie = uriToCurie(prezParent, prefixes)
			case strings.Contains(prezParent, ":"):
				parentCurie, haveParentCurie = prezParent, true
			}
		}

		end := prezEnd(ctx.Mediatype)
		base := apiEndpoint
		if end == "frontend" {
			base = webEndpoint
		}

		var madeURI string
		if haveCurie {
			switch {
			case prezKind == "catalog":
				madeURI = base + "c/catalogs/" + curie
			case prezKind == "resource" && haveParentCurie:
				madeURI = base + "c/catalogs/" + parentCurie + "/resources/" + curie
			case prezKind == "vocab":
				madeURI = base + "v/vocab/" + curie
			case prezKind == "concept" && haveParentCurie:
				madeURI = base + "v/vocab/" + parentCurie + "/" + curie
			}
		}
		if madeURI == "" {
			madeURI = base + "object?uri=" + uri
		}
		return madeURI, nil
	}, nil
}

// newPrezV4Resolver returns the identity resolver: it reconstructs the
// original IRI and returns it unchanged.
func newPrezV4Resolver(params map[string]interface{}) (Resolver, error) {
	return func(ctx ResolveContext) (string, error) {
		uri, _, _ := reconstructIRI(ctx.Proto, ctx.Host, ctx.Path, ctx.Fragment)
		return uri, nil
	}, nil
}
