package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"postboard/internal/config"
	"postboard/internal/logging"
	"postboard/internal/posts"
	"postboard/internal/web"
)

type serveOptions struct {
	configPath string
	listenAddr string
	apiBaseURL string
	bodyFormat string
	siteURL    string
	logLevel   string
	logFormat  string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&o.listenAddr, "listen", "", "listen address (overrides POSTBOARD_LISTEN_ADDR)")
	flags.StringVar(&o.apiBaseURL, "api-base-url", "", "base URL of the posts API")
	flags.StringVar(&o.bodyFormat, "body-format", "", `post body format: "text" or "markdown"`)
	flags.StringVar(&o.siteURL, "site-url", "", "public origin of this site, used to keep markdown links in the app")
	flags.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&o.logFormat, "log-format", "", `log format: "console" or "json"`)
}

// resolveConfig layers flags that were explicitly set over file and env.
func (o *serveOptions) resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddr = o.listenAddr
	}
	if flags.Changed("api-base-url") {
		cfg.APIBaseURL = o.apiBaseURL
	}
	if flags.Changed("body-format") {
		cfg.BodyFormat = o.bodyFormat
	}
	if flags.Changed("site-url") {
		cfg.SiteURL = o.siteURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := opts.resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    cmd.ErrOrStderr(),
	})

	client, err := posts.NewClient(
		posts.ClientConfig{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout},
		posts.WithUserAgent("postboard/"+Version),
		posts.WithLogger(logger.With().Str("component", "posts").Logger()),
	)
	if err != nil {
		return fmt.Errorf("posts client: %w", err)
	}

	handler, err := web.NewHandler(cfg, client, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, handler, logger)
}

func serve(ctx context.Context, cfg config.Config, handler http.Handler, logger zerolog.Logger) error {
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().
			Str("addr", listener.Addr().String()).
			Str("api", cfg.APIBaseURL).
			Msg("postboard listening")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info().Msg("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return group.Wait()
}
