package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/config"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	sqliteRepo "github.com/Br0ck25/kynews-sub003/internal/infra/adapter/persistence/sqlite"
	"github.com/Br0ck25/kynews-sub003/internal/infra/db"
	"github.com/Br0ck25/kynews-sub003/internal/infra/fetcher"
	"github.com/Br0ck25/kynews-sub003/internal/infra/notifier"
	"github.com/Br0ck25/kynews-sub003/internal/infra/scraper"
	"github.com/Br0ck25/kynews-sub003/internal/infra/summarizer"
	workerPkg "github.com/Br0ck25/kynews-sub003/internal/infra/worker"
	"github.com/Br0ck25/kynews-sub003/internal/observability/logging"
	"github.com/Br0ck25/kynews-sub003/internal/scheduler"
	alertUC "github.com/Br0ck25/kynews-sub003/internal/usecase/alert"
	calendarUC "github.com/Br0ck25/kynews-sub003/internal/usecase/calendar"
	discoverUC "github.com/Br0ck25/kynews-sub003/internal/usecase/discover"
	enrichUC "github.com/Br0ck25/kynews-sub003/internal/usecase/enrich"
	ingestUC "github.com/Br0ck25/kynews-sub003/internal/usecase/ingest"
	legislatureUC "github.com/Br0ck25/kynews-sub003/internal/usecase/legislature"
	seedUC "github.com/Br0ck25/kynews-sub003/internal/usecase/seed"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	pipelineCfg, err := config.LoadPipelineConfig()
	if err != nil {
		logger.Error("failed to load pipeline configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if os.Getenv("DB_PATH") == "" {
		// db.Open reads DB_PATH directly; propagate the configured default.
		_ = os.Setenv("DB_PATH", pipelineCfg.DBPath)
	}

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migrations failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	workerCfg := workerPkg.LoadConfigFromEnv()
	if err := workerCfg.Validate(); err != nil {
		logger.Error("invalid worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.Int("health_port", workerCfg.HealthPort),
		slog.Int("metrics_port", workerCfg.MetricsPort),
		slog.Int("max_feeds_per_run", pipelineCfg.MaxFeedsPerRun),
		slog.Int("worker_concurrency", pipelineCfg.WorkerConcurrency))

	sched, healthServer, err := buildPipeline(logger, database, pipelineCfg, workerCfg)
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	startMetricsServer(ctx, logger, workerCfg.MetricsPort)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	sched.Start()
	healthServer.SetReady(true)
	logger.Info("worker started")

	<-ctx.Done()
	healthServer.SetReady(false)
	stopped := sched.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("jobs still running at shutdown deadline")
	}
	logger.Info("worker stopped")
}

// buildPipeline constructs the repositories, services and the job
// schedule.
func buildPipeline(logger *slog.Logger, database *sql.DB, pipelineCfg *config.PipelineConfig, workerCfg workerPkg.Config) (*scheduler.Scheduler, *workerPkg.HealthServer, error) {
	feedRepo := sqliteRepo.NewFeedRepo(database)
	itemRepo := sqliteRepo.NewItemRepo(database)
	queueRepo := sqliteRepo.NewQueueRepo(database)
	runRepo := sqliteRepo.NewRunRepo(database)
	alertLogRepo := sqliteRepo.NewAlertLogRepo(database)
	billRepo := sqliteRepo.NewBillRepo(database)
	eventRepo := sqliteRepo.NewSchoolEventRepo(database)

	gaz, err := geotag.LoadGazetteer()
	if err != nil {
		return nil, nil, fmt.Errorf("buildPipeline: gazetteer: %w", err)
	}
	tagger := geotag.NewTagger(gaz)

	client := fetcher.NewClient(pipelineCfg.UserAgent, pipelineCfg.FeedTimeout, true)
	articleFetcher := buildArticleFetcher(logger, pipelineCfg)
	parsers := scraper.NewParserFactory()

	sum := buildSummarizer(logger)
	channels := buildAlertChannels(logger)

	alertSvc := alertUC.NewService(itemRepo, feedRepo, runRepo, alertLogRepo,
		gaz, channels, pipelineCfg.AlertCooldown, logger)
	ingestSvc := ingestUC.NewService(feedRepo, itemRepo, queueRepo, runRepo,
		client, articleFetcher, parsers, tagger, pipelineCfg, logger)
	enrichSvc := enrichUC.NewService(itemRepo, feedRepo, queueRepo, billRepo,
		articleFetcher, sum, tagger, alertSvc, pipelineCfg, logger)
	seedSvc := seedUC.NewService(feedRepo, gaz, logger)
	discoverSvc := discoverUC.NewService(feedRepo, client, logger)
	legislatureSvc := legislatureUC.NewService(itemRepo, billRepo, logger)
	calendarSvc, err := calendarUC.NewService(eventRepo, client, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("buildPipeline: calendar: %w", err)
	}

	jobMetrics := workerPkg.NewJobMetrics()
	sched := scheduler.New(runRepo, jobMetrics, logger)
	jobs := []scheduler.Job{
		{Name: "ingest", Spec: "@every 15m", Immediate: true, Run: func(ctx context.Context) error {
			_, err := ingestSvc.Run(ctx)
			return err
		}},
		{Name: "enrich", Spec: "@every 5m", Immediate: true, Run: enrichSvc.Run},
		{Name: "school-calendar", Spec: "@every 6h", Timeout: time.Hour, Run: func(ctx context.Context) error {
			_, err := calendarSvc.Run(ctx)
			return err
		}},
		{Name: "legislature-sweep", Spec: "0 8 * * *", Run: func(ctx context.Context) error {
			_, err := legislatureSvc.Run(ctx)
			return err
		}},
		{Name: "coverage-alerts", Spec: "0 4 * * *", Run: func(ctx context.Context) error {
			if err := alertSvc.RunCoverageCheck(ctx); err != nil {
				return err
			}
			return alertSvc.RunFeedFailureCheck(ctx)
		}},
		{Name: "rss-discovery", Spec: "0 3 * * 0", Timeout: time.Hour, Run: func(ctx context.Context) error {
			_, err := discoverSvc.Run(ctx)
			return err
		}},
		{Name: "bing-fallback", Spec: "0 6 * * *", Run: func(ctx context.Context) error {
			_, err := seedSvc.Run(ctx)
			return err
		}},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return nil, nil, fmt.Errorf("buildPipeline: %w", err)
		}
	}

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger)
	return sched, healthServer, nil
}

// buildArticleFetcher loads the article fetch configuration; a broken
// configuration disables body fetching rather than stopping the worker.
func buildArticleFetcher(logger *slog.Logger, pipelineCfg *config.PipelineConfig) *fetcher.ArticleFetcher {
	articleCfg, err := fetcher.LoadArticleFetchConfig()
	if err != nil {
		logger.Warn("invalid article fetch configuration, body fetching disabled",
			slog.Any("error", err))
		return nil
	}
	if !articleCfg.Enabled {
		logger.Info("article body fetching disabled")
		return nil
	}
	articleCfg.Timeout = pipelineCfg.ArticleTimeout
	logger.Info("article body fetching enabled",
		slog.Int("threshold", articleCfg.Threshold),
		slog.Duration("timeout", articleCfg.Timeout))
	return fetcher.NewArticleFetcher(articleCfg, pipelineCfg.UserAgent)
}

// buildSummarizer wires Cloudflare Workers AI when credentials are
// present. Without credentials the pipeline keeps feed-provided
// summaries.
func buildSummarizer(logger *slog.Logger) summarizer.Summarizer {
	sumCfg := config.LoadSummarizerConfig()
	if !sumCfg.Enabled() {
		logger.Info("summarizer disabled, keeping feed summaries")
		return nil
	}
	logger.Info("summarizer enabled", slog.String("model", sumCfg.Model))
	return summarizer.NewCloudflare(sumCfg)
}

// buildAlertChannels assembles the configured delivery channels. An
// empty result means alerts are evaluated and logged but not sent.
func buildAlertChannels(logger *slog.Logger) []notifier.Notifier {
	channelsCfg := config.LoadAlertChannelsConfig()
	var channels []notifier.Notifier

	if channelsCfg.SlackWebhookURL != "" {
		channels = append(channels, notifier.NewSlackNotifier(notifier.SlackConfig{
			WebhookURL: channelsCfg.SlackWebhookURL,
		}))
		logger.Info("alert channel enabled", slog.String("channel", "slack"))
	}
	if channelsCfg.PostmarkToken != "" && len(channelsCfg.EmailTo) > 0 {
		channels = append(channels, notifier.NewPostmarkNotifier(notifier.PostmarkConfig{
			ServerToken: channelsCfg.PostmarkToken,
			From:        channelsCfg.EmailFrom,
			To:          channelsCfg.EmailTo,
		}))
		logger.Info("alert channel enabled", slog.String("channel", "postmark"))
	}
	if channelsCfg.MailgunAPIKey != "" && channelsCfg.MailgunDomain != "" && len(channelsCfg.EmailTo) > 0 {
		channels = append(channels, notifier.NewMailgunNotifier(notifier.MailgunConfig{
			APIKey: channelsCfg.MailgunAPIKey,
			Domain: channelsCfg.MailgunDomain,
			From:   channelsCfg.EmailFrom,
			To:     channelsCfg.EmailTo,
		}))
		logger.Info("alert channel enabled", slog.String("channel", "mailgun"))
	}

	if len(channels) == 0 {
		logger.Info("no alert channels configured")
	}
	return channels
}
