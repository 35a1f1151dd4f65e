package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dohgate/dohgate/internal/api"
	"github.com/dohgate/dohgate/internal/chain"
	"github.com/dohgate/dohgate/internal/config"
	"github.com/dohgate/dohgate/internal/doh"
	"github.com/dohgate/dohgate/internal/kvstore"
	"github.com/dohgate/dohgate/internal/logging"
	"github.com/dohgate/dohgate/internal/plugins"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values.
type cliFlags struct {
	configPath string
	host       string
	port       int
	apiEnabled bool
	jsonLogs   bool
	debug      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config file (defaults to DOHGATE_CONFIG env or built-in defaults)")
	flag.StringVar(&f.host, "host", "", "Override DoH server bind host")
	flag.IntVar(&f.port, "port", 0, "Override DoH server bind port")
	flag.BoolVar(&f.apiEnabled, "api", false, "Force-enable the admin API regardless of config")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.apiEnabled {
		cfg.API.Enabled = true
	}
	if f.jsonLogs {
		cfg.Logging.Structured = true
		cfg.Logging.StructuredFormat = "json"
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run() error {
	flags := parseFlags()

	configPath := config.ResolveConfigPath(flags.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	logger.Info("dohgate starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"workers", cfg.Server.Workers.String(),
		"upstream", cfg.Upstream.DoHEndpoints,
	)

	kv, err := kvstore.OpenSQLiteKV(cfg.KV.DSN)
	if err != nil {
		return fmt.Errorf("failed to open kv store: %w", err)
	}
	defer kv.Close()

	ttl, err := time.ParseDuration(cfg.KV.DefaultTTL)
	if err != nil {
		ttl = 30 * time.Minute
	}
	loader := kvstore.NewLoader(kv, logger).
		WithFamilyTTL(kvstore.FamilyDomains, ttl).
		WithFamilyTTL(kvstore.FamilyIPs, ttl).
		WithFamilyTTL(kvstore.FamilyHosts, ttl)

	upstreamTimeout, err := time.ParseDuration(cfg.Upstream.Timeout)
	if err != nil {
		upstreamTimeout = 3 * time.Second
	}
	httpClient := &http.Client{Timeout: upstreamTimeout}

	registry := chain.NewRegistry(logger)
	plugins.Register(registry, plugins.Deps{
		HTTPClient: httpClient,
		Domains:    loader,
		IPs:        loader,
		Logger:     logger,
	})

	stepConfigs := cfg.BuildChainConfig()
	if len(stepConfigs) == 0 {
		stepConfigs = defaultChain(cfg)
		logger.Warn("no chain configured, falling back to a cache step followed by a forward step", "upstream", cfg.Upstream.DoHEndpoints)
	}
	c := registry.Build(stepConfigs)

	boundary := doh.NewBoundary(c, logger)

	srv := api.New(cfg, logger, boundary)
	logger.Info("dns-query listening", "addr", srv.Addr())
	if cfg.API.Enabled {
		logger.Info("admin api listening", "addr", srv.AdminAddr())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("dohgate stopped")
	return nil
}

// defaultChain gives the proxy a minimal working pipeline when the
// operator hasn't configured one: forward straight to the configured
// upstreams, cached.
func defaultChain(cfg *config.Config) []chain.StepConfig {
	timeoutMs := int64(3000)
	if d, err := time.ParseDuration(cfg.Upstream.Timeout); err == nil {
		timeoutMs = d.Milliseconds()
	}
	return []chain.StepConfig{
		{Kind: "cache", Tag: "cache"},
		{Kind: "forward", Tag: "forward", Args: map[string]any{
			"upstream":   cfg.Upstream.DoHEndpoints,
			"timeout_ms": timeoutMs,
		}},
	}
}
