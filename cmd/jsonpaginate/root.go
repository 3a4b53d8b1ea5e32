package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/jsonpagination/pkg/config"
	"github.com/Sternrassler/jsonpagination/pkg/logging"
	"github.com/Sternrassler/jsonpagination/pkg/metrics"
	"github.com/Sternrassler/jsonpagination/pkg/output"
	"github.com/Sternrassler/jsonpagination/pkg/paginator"
	"github.com/Sternrassler/jsonpagination/pkg/ratelimit"
	"github.com/Sternrassler/jsonpagination/pkg/transport"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var configPath string
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "jsonpaginate [url]",
		Short: "Download every page of a paginated JSON API",
		Long: `Fetches page 1 of a paginated JSON collection to learn the total count,
downloads the remaining pages concurrently and writes all records in page order.

Settings are read from --config, then JSONPAGINATE_* environment variables,
then flags.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configPath, args)
			if err != nil {
				return err
			}
			return runDownload(cmd, cfg, showProgress)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "print page progress to stderr")
	addConfigFlags(cmd)

	cmd.AddCommand(newVersionCmd(), newConfigCmd())
	return cmd
}

// resolveConfig returns the validated layered configuration.
func resolveConfig(cmd *cobra.Command, configPath string, args []string) (*config.Config, error) {
	cfg, err := layerConfig(cmd, configPath, args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// layerConfig applies defaults, the config file, the environment, the url
// argument and explicitly set flags, in that order.
func layerConfig(cmd *cobra.Command, configPath string, args []string) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		cfg.Source.URL = args[0]
	}
	if err := applyConfigFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDownload(cmd *cobra.Command, cfg *config.Config, showProgress bool) error {
	logCfg, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)
	logger := logging.NewLogger("jsonpaginate")

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, logger)
		defer shutdown()
	}

	store, closeStore, err := rateLimitStore(ctx, cfg.Redis.URL, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	trCfg, err := cfg.TransportConfig()
	if err != nil {
		return err
	}
	trCfg.Tracker = ratelimit.NewTracker(store, logging.NewLogger("ratelimit"), ratelimit.Options{})
	tr, err := transport.NewHTTP(trCfg, logging.NewLogger("transport"))
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	pcfg := cfg.PaginatorConfig()
	if showProgress {
		pcfg.OnProgress = progressPrinter(cmd.ErrOrStderr())
	}

	p, err := paginator.New(pcfg, paginator.WithTransport(tr), paginator.WithLogger(logging.NewLogger("paginator")))
	if err != nil {
		return err
	}

	if err := p.DownloadAllPages(ctx); err != nil {
		return err
	}
	if showProgress {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	records, err := p.Results()
	if err != nil {
		return err
	}

	opts, err := cfg.OutputOptions()
	if err != nil {
		return err
	}
	if cfg.Output.Path == "" || cfg.Output.Path == "-" {
		return output.Write(cmd.OutOrStdout(), records, opts)
	}
	if err := output.WriteFile(cfg.Output.Path, records, opts); err != nil {
		return err
	}
	logger.Info().
		Str("path", cfg.Output.Path).
		Int("records", len(records)).
		Str("format", string(opts.Format)).
		Str("compression", string(opts.Compression)).
		Msg("Results written")
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// rateLimitStore connects to redis when redisURL is set and falls back to
// process-local state otherwise.
func rateLimitStore(ctx context.Context, redisURL string, logger zerolog.Logger) (ratelimit.Store, func(), error) {
	if redisURL == "" {
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	return ratelimit.NewRedisStore(client), func() { client.Close() }, nil
}

// serveMetrics exposes the Prometheus registry on addr until the returned
// shutdown func is called.
func serveMetrics(addr string, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func progressPrinter(w io.Writer) func(paginator.Progress) {
	return func(p paginator.Progress) {
		fmt.Fprintf(w, "\rfetched %d/%d pages (%d records)", p.PagesFetched, p.TotalPages, p.Records)
	}
}
