//go:build unit_test

package main

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_mediatypeExtract(t *testing.T) {
	tests := []struct {
		name      string
		headers   http.Header
		query     url.Values
		extension string
		want      []Ranked
	}{
		{
			name:  "query override wins over everything",
			query: url.Values{"_mediatype": {"text/turtle"}},
			headers: http.Header{
				"Accept": {"application/json"},
			},
			want: []Ranked{{1.0, "text/turtle"}},
		},
		{
			name: "accept header ranked by q",
			headers: http.Header{
				"Accept": {"text/html;q=0.5, application/ld+json;q=0.9"},
			},
			want: []Ranked{{0.9, "application/ld+json"}, {0.5, "text/html"}},
		},
		{
			name:      "extension fallback maps jsonld to application/ld+json",
			extension: "jsonld",
			want:      []Ranked{{1.0, "application/ld+json"}},
		},
		{
			name: "wildcard accept falls through to extension",
			headers: http.Header{
				"Accept": {"*/*"},
			},
			extension: "ttl",
			want:      []Ranked{{1.0, "text/turtle"}},
		},
		{
			name: "bare wildcard accept used when nothing else applies",
			headers: http.Header{
				"Accept": {"*/*"},
			},
			want: []Ranked{{1.0, "*/*"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mediatypeExtract(tt.headers, tt.query, tt.extension)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_profileExtract(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		query   url.Values
		want    []Ranked
	}{
		{
			name:  "_profile query override",
			query: url.Values{"_profile": {"https://example.com/profile/a"}},
			want:  []Ranked{{1.0, "https://example.com/profile/a"}},
		},
		{
			// Accept-Profile values are passed through verbatim, angle
			// brackets included — only Link and Prefer get them stripped.
			name: "accept-profile header",
			headers: http.Header{
				"Accept-Profile": {`<https://example.com/a>;q=0.8, <https://example.com/b>`},
			},
			want: []Ranked{{1.0, "<https://example.com/b>"}, {0.8, "<https://example.com/a>"}},
		},
		{
			name: "single link rel=profile header is honored",
			headers: http.Header{
				"Link": {`<https://example.com/profile/a>; rel="profile"`},
			},
			want: []Ranked{{1.0, "https://example.com/profile/a"}},
		},
		{
			name: "prefer profile parameter",
			headers: http.Header{
				"Prefer": {"profile=https://example.com/profile/a"},
			},
			want: []Ranked{{1.0, "https://example.com/profile/a"}},
		},
		{
			name:  "_view legacy query fallback",
			query: url.Values{"_view": {"alt"}},
			want:  []Ranked{{1.0, "alt"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := profileExtract(tt.headers, tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}
