//go:build unit_test

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_reconstructIRI(t *testing.T) {
	uri, ns, localname := reconstructIRI("https", "example.com", "datasets/abc", "")
	assert.Equal(t, "https://example.com/datasets/abc", uri)
	assert.Equal(t, "https://example.com/datasets/", ns)
	assert.Equal(t, "abc", localname)

	uri2, ns2, localname2 := reconstructIRI("https", "example.com", "datasets/abc", "frag")
	assert.Equal(t, "https://example.com/datasets/abc#frag", uri2)
	assert.Equal(t, "https://example.com/datasets/abc#", ns2)
	assert.Equal(t, "frag", localname2)
}

func Test_prezEnd(t *testing.T) {
	assert.Equal(t, "frontend", prezEnd([]Ranked{{1.0, "text/html"}}))
	assert.Equal(t, "backend", prezEnd([]Ranked{{1.0, "text/turtle"}}))
	assert.Equal(t, "backend", prezEnd(nil))
}

func Test_newPrezV4Resolver(t *testing.T) {
	resolver, err := newPrezV4Resolver(nil)
	assert.NoError(t, err)

	got, err := resolver(ResolveContext{Proto: "https", Host: "example.com", Path: "datasets/abc"})
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/datasets/abc", got)
}

func Test_newPrezV3Resolver_catalog(t *testing.T) {
	resolver, err := newPrezV3Resolver(map[string]interface{}{
		"web_endpoint": "https://example.com/",
		"api_endpoint": "https://api.example.com/",
		"prez_kind":    "catalog",
		"prefixes": map[string]interface{}{
			"ex": "https://example.com/datasets/",
		},
	})
	assert.NoError(t, err)

	got, err := resolver(ResolveContext{
		Proto:     "https",
		Host:      "example.com",
		Path:      "datasets/abc",
		Mediatype: []Ranked{{1.0, "text/turtle"}},
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://api.example.com/c/catalogs/ex:abc", got)
}

func Test_newPrezV3Resolver_fallsBackToObjectURI(t *testing.T) {
	resolver, err := newPrezV3Resolver(map[string]interface{}{
		"web_endpoint": "https://example.com/",
		"api_endpoint": "https://api.example.com/",
		"prez_kind":    "catalog",
	})
	assert.NoError(t, err)

	got, err := resolver(ResolveContext{
		Proto:     "https",
		Host:      "example.com",
		Path:      "datasets/abc",
		Mediatype: []Ranked{{1.0, "text/turtle"}},
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://api.example.com/object?uri=https://example.com/datasets/abc", got)
}

func Test_newPrezV3Resolver_missingEndpoints(t *testing.T) {
	resolver, err := newPrezV3Resolver(map[string]interface{}{})
	assert.NoError(t, err)

	_, err = resolver(ResolveContext{Proto: "https", Host: "example.com", Path: "datasets/abc"})
	assert.Error(t, err)
}

func Test_newPrezV3Resolver_ruleOverridesDeclaredParams(t *testing.T) {
	resolver, err := newPrezV3Resolver(map[string]interface{}{
		"web_endpoint": "https://example.com/",
		"api_endpoint": "https://api.example.com/",
		"prez_kind":    "catalog",
		"prefixes": map[string]interface{}{
			"ex": "https://example.com/datasets/",
		},
	})
	assert.NoError(t, err)

	got, err := resolver(ResolveContext{
		Proto: "https",
		Host:  "example.com",
		Path:  "datasets/abc",
		Rule:  &Rule{PrezKind: "vocab"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v/vocab/ex:abc", got)
}
