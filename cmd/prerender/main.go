// Command prerender writes sitemap.xml and robots.txt to a directory so they
// can be served by a static host in front of the web server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cafefinder.de/web/internal/config"
	"cafefinder.de/web/internal/observability"
	"cafefinder.de/web/internal/sitemap"
	"cafefinder.de/web/internal/strapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	out     string
	envFile string
	siteURL string
}

// newRootCmd builds the command tree. A nil finder connects to the content API
// from the loaded config.
func newRootCmd(finder strapi.Finder) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "prerender",
		Short:        "Render sitemap.xml and robots.txt",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts, finder)
		},
	}
	root.Flags().StringVarP(&opts.out, "out", "o", "dist", "output directory")
	root.Flags().StringVar(&opts.envFile, "env-file", ".env", "optional .env file")
	root.Flags().StringVar(&opts.siteURL, "site-url", "", "override SITE_URL")
	return root
}

func run(ctx context.Context, cmd *cobra.Command, opts *options, finder strapi.Finder) error {
	loadOpts := []config.Option{config.WithEnvFile(opts.envFile)}
	if opts.siteURL != "" {
		loadOpts = append(loadOpts, config.WithEnvMap(map[string]string{"SITE_URL": opts.siteURL}))
	}
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("prerender")

	if finder == nil {
		finder = strapi.NewClient(cfg.Strapi.URL,
			strapi.WithPrefix(cfg.Strapi.Prefix),
			strapi.WithToken(cfg.Strapi.Token),
			strapi.WithHTTPClient(&http.Client{Timeout: cfg.Content.Timeout}),
			strapi.WithLogger(logger.Named("strapi")),
		)
	}
	gen := sitemap.NewGenerator(cfg.Site.URL, sitemap.WithFinder(finder), sitemap.WithLogger(logger))
	body, err := gen.XML(ctx)
	if err != nil {
		return fmt.Errorf("render sitemap: %w", err)
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", opts.out, err)
	}
	files := map[string][]byte{
		"sitemap.xml": body,
		"robots.txt":  []byte(sitemap.Robots(cfg.Site.URL)),
	}
	for name, data := range files {
		path := filepath.Join(opts.out, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Info("wrote file", zap.String("path", path), zap.Int("bytes", len(data)))
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
