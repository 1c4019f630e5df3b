package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wikijournalbot/pkg/bot"
	"wikijournalbot/pkg/cache"
	"wikijournalbot/pkg/config"
	"wikijournalbot/pkg/db"
	"wikijournalbot/pkg/db/maintenance"
	"wikijournalbot/pkg/logging"
	"wikijournalbot/pkg/mediawiki"
	"wikijournalbot/pkg/model"
	"wikijournalbot/pkg/probe"
	"wikijournalbot/pkg/reconcile"
	"wikijournalbot/pkg/request"
	"wikijournalbot/pkg/store"
	"wikijournalbot/pkg/tracker"
	"wikijournalbot/pkg/version"
	"wikijournalbot/pkg/wikidata"
	"wikijournalbot/pkg/wikitext"
)

const abortPaused = "paused by operator"

type updateOptions struct {
	configPath string
	envPath    string
	dryRun     bool
	trace      bool
	pages      []string
}

func newUpdateCmd() *cobra.Command {
	opts := updateOptions{}
	cmd := &cobra.Command{
		Use:          "update",
		Aliases:      []string{"updateArticleLists"},
		Short:        "Populate every list page from Wikidata and submit the edits",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath, _ = cmd.Flags().GetString("config")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err := run(ctx, opts)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.envPath, "env", defaultEnvPath, "Optional .env file with credentials")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Compute edits without submitting them")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Log full query texts and page bodies at DEBUG")
	cmd.Flags().StringSliceVar(&opts.pages, "page", nil, "Process only these titles (repeatable)")
	return cmd
}

func run(ctx context.Context, opts updateOptions) (bot.Summary, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return bot.Summary{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadEnv(opts.envPath, cfg); err != nil {
		return bot.Summary{}, err
	}
	if opts.dryRun {
		cfg.Bot.DryRun = true
	}
	logging.EnableTrace = opts.trace

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return bot.Summary{}, fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("WikiJournalBot started", "version", version.Version, "mode", cfg.Bot.Mode)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissing) {
			slog.Error("Configuration incomplete, no pages touched", "error", err)
		}
		return bot.Summary{}, err
	}

	dbConn, st, err := initDB(cfg)
	if err != nil {
		return bot.Summary{}, err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, maintenance.DefaultOptions(), slog.Default()); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	prov := config.NewProvider(cfg, st)
	if prov.Paused(ctx) {
		slog.Warn("Bot paused by operator override, exiting", "key", config.KeyPaused)
		return bot.Summary{Aborted: abortPaused}, nil
	}

	tr := tracker.New()
	wiki, sparql, closeClients, err := initClients(ctx, cfg, st, tr)
	if err != nil {
		return bot.Summary{}, err
	}
	defer closeClients()

	checks := probe.Run(ctx, probe.MediaWiki(wiki), probe.SPARQL(sparql))
	checks.Log(slog.Default())
	if err := checks.Err(); err != nil {
		return bot.Summary{}, fmt.Errorf("startup checks failed: %w", err)
	}

	pipeline, err := newPipeline(cfg, sparql)
	if err != nil {
		return bot.Summary{}, err
	}

	preset := cfg.Preset()
	runner := &bot.Runner{
		Wiki:     wiki,
		Pipeline: pipeline,
		History:  st,
		Tracker:  tr,
		Logger:   slog.Default(),
		Options: bot.Options{
			BotName:       cfg.Bot.Name,
			Mode:          cfg.Bot.Mode,
			OperatorPage:  cfg.OperatorPage(),
			GuardOperator: preset.GuardOperator,
			CheckPages:    preset.CheckPages,
			ListTemplate:  "Template:" + cfg.Templates.ListStart,
			Namespace:     preset.Namespace,
			Summary:       prov.Summary(ctx),
			Throttle:      prov.Throttle(ctx),
			DryRun:        prov.DryRun(ctx),
			Pages:         opts.pages,
		},
	}
	return runner.Run(ctx)
}

func initDB(cfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initClients builds the MediaWiki and SPARQL clients. Each gets its own request
// client because only MediaWiki calls are signed or carry session cookies.
func initClients(ctx context.Context, cfg *config.Config, st store.CacheStore, tr *tracker.Tracker) (*mediawiki.Client, *wikidata.Client, func(), error) {
	timeout := cfg.Request.Timeout.Std()
	backoff := request.NewProviderBackoff(cfg.Request.Backoff.BaseDelay.Std(), cfg.Request.Backoff.MaxDelay.Std())

	var wikiHTTP *http.Client
	if cfg.Auth.HasOAuth() {
		wikiHTTP = mediawiki.NewOAuthHTTPClient(ctx, mediawiki.OAuthCredentials{
			ConsumerToken:  cfg.Auth.ConsumerToken,
			ConsumerSecret: cfg.Auth.ConsumerSecret,
			AccessToken:    cfg.Auth.AccessToken,
			AccessSecret:   cfg.Auth.AccessSecret,
		}, timeout)
	} else {
		hc, err := mediawiki.NewCookieHTTPClient(timeout)
		if err != nil {
			return nil, nil, nil, err
		}
		wikiHTTP = hc
	}

	// Page reads must see the current revision, so the wiki client never caches.
	wikiReq := request.New(cache.Nop{}, tr, request.Options{
		HTTPClient: wikiHTTP,
		UserAgent:  cfg.UserAgent(),
		Retries:    cfg.Request.Retries,
		BaseDelay:  cfg.Request.Backoff.BaseDelay.Std(),
		Backoff:    backoff,
		Logger:     logging.RequestLogger,
	})

	var sparqlCache cache.Cacher = cache.Nop{}
	if ttl := cfg.Wikidata.CacheTTL.Std(); ttl > 0 {
		sparqlCache = cache.NewSQLiteCache(st, ttl)
	}
	sparqlReq := request.New(sparqlCache, tr, request.Options{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  cfg.UserAgent(),
		Retries:    cfg.Request.Retries,
		BaseDelay:  cfg.Request.Backoff.BaseDelay.Std(),
		Backoff:    backoff,
		Logger:     logging.RequestLogger,
	})

	closeAll := func() {
		wikiReq.Close()
		sparqlReq.Close()
	}

	wiki := mediawiki.NewClient(wikiReq, cfg.Wiki.APIEndpoint, slog.Default())
	wiki.MaxLag = cfg.Wiki.MaxLag
	if !cfg.Auth.HasOAuth() && cfg.Auth.HasBotPassword() {
		if err := wiki.Login(ctx, cfg.Auth.Username, cfg.Auth.Password); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		slog.Info("Logged in with bot password", "user", cfg.Auth.Username)
	}

	sparql := wikidata.NewClient(sparqlReq, cfg.Wikidata.SPARQLEndpoint, slog.Default())
	return wiki, sparql, closeAll, nil
}

func newPipeline(cfg *config.Config, q reconcile.Querier) (*reconcile.Pipeline, error) {
	preset := cfg.Preset()

	qt, err := wikidata.LookupTemplate(preset.Query)
	if err != nil {
		return nil, err
	}
	policy, err := wikitext.PolicyByName(preset.TitlePolicy)
	if err != nil {
		return nil, err
	}
	if qt.NeedsSource() && !preset.RequireSource {
		slog.Warn("Query needs a journal id but pages without one are not rejected", "query", qt.Name)
	}

	return &reconcile.Pipeline{
		Extractor: wikitext.Extractor{
			Sources:       cfg.Sources,
			Policy:        policy,
			RequireSource: preset.RequireSource,
		},
		Query:    qt,
		Renderer: wikitext.Renderer{LabelKey: preset.LabelKey},
		Markers: model.Markers{
			Start: cfg.Templates.ListStart,
			End:   cfg.Templates.ListEnd,
		},
		DefaultRow: cfg.Templates.DefaultRow,
		Querier:    q,
		CacheQuery: cfg.Wikidata.CacheTTL > 0,
		Logger:     slog.Default(),
	}, nil
}
