package main

import (
	"net/http"

	"gopkg.in/yaml.v3"
)

// handleStatus serves a YAML diagnostic snapshot of the currently published
// rule tables: load time, host count, destination count, and a per-host rule
// count breakdown.
func handleStatus(loader *Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tables := loader.Current()
		if tables == nil {
			http.Error(w, "redirect tables not yet loaded", http.StatusServiceUnavailable)
			return
		}
		out, err := yaml.Marshal(tables.Summary())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(out)
	})
}
