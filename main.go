package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

func newMetricsServer() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// newServer wires the redirect engine's routes under baseRoute (empty for
// no prefix), matching the original app's root_path mount.
func newServer(logger *slog.Logger, loader *Loader, serverName, baseRoute string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/redir", handleRedir(logger, loader, serverName))
	mux.Handle("/status", handleStatus(loader))
	mux.Handle("/", handleIndex(logger, loader, serverName))
	if baseRoute == "" {
		return mux
	}
	return http.StripPrefix(baseRoute, mux)
}

// normalizeServerName strips a leading "scheme://" and any trailing path
// from a configured SERVER_NAME, matching the "//host/path" forms operators
// tend to paste in.
func normalizeServerName(s string) string {
	if idx := strings.Index(s, "//"); idx >= 0 {
		s = s[idx+2:]
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// normalizeBaseRoute mirrors the original app's root-path handling: a bare
// "/" means no prefix at all (mounting under "/" doesn't compose with a
// mux that already roots at "/"), and any other value has its trailing
// slash stripped.
func normalizeBaseRoute(s string) string {
	if s == "" || s == "/" {
		return ""
	}
	return strings.TrimSuffix(s, "/")
}

func server(ctx context.Context, logger *slog.Logger) error {
	defsDir := envOr("CONFIG_DEFS_DIRECTORY", defaultDefsDir)
	baseRoute := normalizeBaseRoute(os.Getenv("APP_BASE_ROUTE"))

	serverName := os.Getenv("SERVER_NAME")
	if serverName != "" {
		serverName = normalizeServerName(serverName)
		logger.Info("using configured server name", "server_name", serverName)
	} else {
		logger.Info("no SERVER_NAME given, default server name used")
	}

	loader := NewLoader(defsDir, logger)
	if _, err := loader.Load(true); err != nil {
		logger.Error("error loading definitions, exiting", "err", err.Error())
		return err
	}

	if envBool("WATCH_CONFIGS") {
		debounce := envDurationOr("WATCH_CONFIGS_INTERVAL", 2*time.Second)
		if err := loader.Watch(ctx, debounce); err != nil {
			logger.Error("cannot watch definitions directory, falling back to polling", "err", err.Error())
			go loader.pollLoop(ctx, envDurationOr("WATCH_CONFIGS_INTERVAL", 30*time.Second))
		}
	}

	srv := newServer(logger, loader, serverName, baseRoute)
	listenAddr := envOr("LISTEN_ADDR", defaultListenAddr)
	metricsAddr := envOr("METRICS_LISTEN_ADDR", defaultMetricsListenAddr)

	s := &http.Server{
		Addr:              listenAddr,
		Handler:           srv,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	ms := &http.Server{
		Addr:         metricsAddr,
		Handler:      newMetricsServer(),
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  1 * time.Minute,
	}

	go func() {
		logger.WithGroup("server").Info("starting server", "listen_address", listenAddr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithGroup("server").Error("error serving", "err", err.Error())
			os.Exit(1)
		}
	}()

	go func() {
		logger.WithGroup("metrics_server").Info("starting metrics", "listen_address", metricsAddr)
		if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithGroup("metrics_server").Error("error serving", "err", err.Error())
			os.Exit(1)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.WithGroup("server").Error("error shutting down", "err", err.Error())
		} else {
			logger.Info("shutdown redirect server")
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ms.Shutdown(shutdownCtx); err != nil {
			logger.WithGroup("metrics_server").Error("error shutting down", "err", err.Error())
		} else {
			logger.Info("shutdown metrics server")
		}
	}()

	wg.Wait()
	return nil
}

func parseGenerateArgs(args []string) ingressOptions {
	fs := flag.NewFlagSet("generate-ingress", flag.ExitOnError)
	out := fs.String("out", "./redirector-ingress.yml", "where to write the Ingress manifest")
	ns := fs.String("namespace", "redirector", "Kubernetes namespace the engine is deployed in")
	svc := fs.String("service-name", "redirector", "Kubernetes Service name to send traffic to")
	port := fs.String("service-port", "8080", "Kubernetes Service port to send traffic to")
	name := fs.String("ingress-name", "redirector", "name of the generated Ingress")
	class := fs.String("ingress-class", "nginx", "ingressClassName set on the generated Ingress")

	if err := fs.Parse(args); err != nil {
		log.Fatal(err.Error())
	}

	portNum, err := strconv.Atoi(*port)
	if err != nil {
		log.Fatalf("invalid --service-port %q: %s", *port, err.Error())
	}

	return ingressOptions{
		outputPath:       *out,
		namespace:        *ns,
		serviceName:      *svc,
		servicePort:      int32(portNum),
		ingressName:      *name,
		ingressClassName: *class,
	}
}

func run(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	logLevel := slog.LevelInfo
	logSrc := false
	if envBool("DEBUG_APP") {
		logLevel = slog.LevelDebug
		logSrc = true
	}
	logger := NewLogger(logLevel, logSrc)

	switch args[1] {
	case "server":
		return server(ctx, logger)
	case "generate-ingress":
		opts := parseGenerateArgs(args[2:])
		return generateIngress(logger, envOr("CONFIG_DEFS_DIRECTORY", defaultDefsDir), opts)
	default:
		return errors.New("usage: redirector [server|generate-ingress]")
	}
}

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: redirector [server|generate-ingress]")
		os.Exit(1)
	}

	if err := run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
