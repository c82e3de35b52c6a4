package main

// Defaults applied wherever config or environment does not override them.
const (
	defaultStatusCode = 307

	defaultListenAddr        = ":8080"
	defaultMetricsListenAddr = ":9090"
	defaultDefsDir           = "./defs"
	defaultWatchInterval     = "30s"
	defaultServerName        = ""
)
