// Command promogen runs the trend-to-promotion generation service, either as
// an HTTP server or as a one-shot generation from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/glowmart/promogen/internal/analysis"
	"github.com/glowmart/promogen/internal/catalog"
	"github.com/glowmart/promogen/internal/config"
	"github.com/glowmart/promogen/internal/imagegen"
	"github.com/glowmart/promogen/internal/metrics"
	"github.com/glowmart/promogen/internal/pipeline"
	"github.com/glowmart/promogen/internal/promotion"
	"github.com/glowmart/promogen/internal/promotion/jsonstore"
	"github.com/glowmart/promogen/internal/promotion/postgres"
	"github.com/glowmart/promogen/internal/promotion/sqlite"
	"github.com/glowmart/promogen/internal/server"
	"github.com/glowmart/promogen/internal/trends"
	"github.com/glowmart/promogen/internal/vertexai"
)

func main() {
	root := &cobra.Command{
		Use:          "promogen",
		Short:        "Generates storefront promotions from trending searches",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd(), generateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			deps, err := buildDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.store.Close()

			var metricsSrv *metrics.Server
			if cfg.MetricsPort > 0 {
				metricsSrv = metrics.Start(cfg.MetricsPort)
				defer metricsSrv.Stop(context.Background())
			}

			srv := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: server.New(deps.pipeline, deps.extractor, deps.store, deps.generator),
			}

			errCh := make(chan error, 1)
			go func() {
				logrus.WithField("addr", cfg.ListenAddr).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
				logrus.Info("shutting down")
				return srv.Shutdown(context.Background())
			}
		},
	}
}

func generateCmd() *cobra.Command {
	var (
		country  string
		category string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation and print the outcome as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			deps, err := buildDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.store.Close()

			outcome := deps.pipeline.Run(ctx, country, category)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		},
	}

	cmd.Flags().StringVar(&country, "country", "KR", "ISO 3166-1 alpha-2 country code")
	cmd.Flags().StringVar(&category, "category", "20", "trends category id")
	return cmd
}

type deps struct {
	store     promotion.Store
	extractor *trends.Extractor
	generator *imagegen.Generator
	pipeline  *pipeline.Pipeline
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var channel trends.Channel
	switch cfg.TrendsChannel {
	case "download":
		channel = trends.NewDownloadChannel()
	default:
		channel = trends.NewClipboardChannel()
	}

	extractor := trends.NewExtractor(trends.Config{
		Channel: channel,
		Headful: !cfg.Headless,
	})

	client, err := vertexai.NewClient(ctx, vertexai.Config{
		Project:         cfg.GCPProject,
		Location:        cfg.GCPLocation,
		CredentialsFile: cfg.CredentialsFile,
		TextModel:       cfg.TextModel,
		ImageModel:      cfg.ImageModel,
		CallsPerSecond:  cfg.ModelCallsPerSecond,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	fetcher, err := catalog.NewImageFetcher()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create image fetcher: %w", err)
	}

	analyzer := analysis.NewAnalyzer(client, catalog.NewLocator(cfg.CatalogURI))
	generator := imagegen.NewGenerator(client, fetcher)

	return &deps{
		store:     store,
		extractor: extractor,
		generator: generator,
		pipeline:  pipeline.New(extractor, analyzer, generator, store),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (promotion.Store, error) {
	switch cfg.StoreBackend {
	case "postgres":
		return postgres.New(ctx, cfg.PostgresDSN)
	case "json":
		return jsonstore.New(cfg.JSONPath)
	default:
		return sqlite.New(cfg.SQLitePath)
	}
}
