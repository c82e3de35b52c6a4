package main

import "strings"

// applyPrezCurie looks up ns in prefixes and, if found, returns the CURIE
// "prefix:localname". The lookup is by namespace value, not prefix name.
func applyPrezCurie(ns, localname string, prefixes map[string]string) (string, bool) {
	for prefix, ns2 := range prefixes {
		if ns2 == ns {
			return prefix + ":" + localname, true
		}
	}
	return "", false
}

// uriToCurie splits uri into a namespace and localname — preferring a "#"
// fragment split, falling back to the last "/" — and reduces it to a CURIE
// against prefixes.
func uriToCurie(uri string, prefixes map[string]string) (string, bool) {
	if idx := strings.Index(uri, "#"); idx >= 0 {
		ns := uri[:idx+1]
		localname := uri[idx+1:]
		return applyPrezCurie(ns, localname, prefixes)
	}
	idx := strings.LastIndex(uri, "/")
	if idx < 0 {
		return "", false
	}
	ns := uri[:idx+1]
	localname := uri[idx+1:]
	return applyPrezCurie(ns, localname, prefixes)
}
