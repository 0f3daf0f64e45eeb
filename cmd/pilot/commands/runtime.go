package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/tradepilot/internal/confluence"
	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/internal/history"
	"github.com/wonny/tradepilot/internal/indicators"
	"github.com/wonny/tradepilot/internal/notify"
	"github.com/wonny/tradepilot/internal/scheduler"
	"github.com/wonny/tradepilot/internal/scheduler/jobs"
	"github.com/wonny/tradepilot/internal/strategyconfig"
	"github.com/wonny/tradepilot/internal/workspace"
	"github.com/wonny/tradepilot/pkg/config"
	"github.com/wonny/tradepilot/pkg/database"
	"github.com/wonny/tradepilot/pkg/httputil"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/redis"
)

// runtimeOptions selects the optional parts of the runtime
type runtimeOptions struct {
	hub     bool          // push events to websocket clients
	history bool          // journal runs when DATABASE_URL is set
	console flow.Notifier // extra notification sink
}

// runtime holds the wired components shared by api, scheduler and flow commands
type runtime struct {
	cfg       *config.Config
	log       *logger.Logger
	redis     *redis.Client
	db        *database.DB
	history   *history.Repository
	analyzer  *confluence.CachedAnalyzer
	workspace *workspace.Workspace
	sequencer *flow.Sequencer
	hub       *notify.Hub
	webhook   *notify.Webhook
}

// newRuntime wires every component from config
// ⭐ SSOT: 컴포넌트 조립은 여기서만
func newRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log}

	// 1. Redis (analysis cache, webhook rate limit)
	rc, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	rt.redis = rc

	// 2. Confluence analyzer with cache
	src, err := loadCatalog(cfg, log)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.analyzer = confluence.NewCachedAnalyzer(
		confluence.NewAnalyzer(src.catalog, log),
		redis.NewCache(rc, src.cachePrefix),
		log,
	).WithPresets(src.presets)

	// 3. Workspace the flow drives
	rt.workspace = workspace.New(rt.analyzer, indicators.NewEvaluator(log), log)

	// 4. Notification sinks
	sinks := notify.Multi{notify.NewLogNotifier(log)}
	if opts.console != nil {
		sinks = append(sinks, opts.console)
	}
	if opts.hub {
		rt.hub = notify.NewHub(log)
		rt.workspace.OnChange(rt.hub.PublishWorkspace)
		sinks = append(sinks, rt.hub)
	}
	if cfg.Webhook.URL != "" {
		client := httputil.New(cfg, log).
			WithRateLimiter(redis.NewRateLimiter(rc, "pilot"), redis.WebhookRateLimit)
		rt.webhook = notify.NewWebhook(cfg.Webhook.URL, client, cfg.Webhook.Timeout, log)
		sinks = append(sinks, rt.webhook)
	}

	// 5. Run history (optional)
	if opts.history {
		db, err := database.New(cfg)
		switch {
		case errors.Is(err, database.ErrNotConfigured):
			log.Info("DATABASE_URL not set, flow run history disabled")
		case err != nil:
			rt.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		default:
			rt.db = db
			rt.history = history.NewRepository(db.Pool)
			if err := rt.history.EnsureSchema(ctx); err != nil {
				rt.close()
				return nil, err
			}
		}
	}

	// 6. Sequencer
	mode, err := flow.ParseMode(cfg.Flow.Mode)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("FLOW_MODE: %w", err)
	}

	seqOpts := []flow.Option{
		flow.WithNotifier(sinks),
		flow.WithLogger(log),
		flow.WithMode(mode),
		flow.WithStepDelay(cfg.Flow.StepDelay),
		flow.WithQuickDemoDelay(cfg.Flow.QuickDemoDelay),
		flow.WithPrompt(cfg.Flow.Prompt),
	}
	if rt.hub != nil {
		seqOpts = append(seqOpts, flow.WithObserver(rt.hub.PublishStatus))
	}
	if rt.history != nil {
		seqOpts = append(seqOpts, flow.WithRecorder(rt.history))
	}
	rt.sequencer = flow.New(rt.workspace, seqOpts...)

	return rt, nil
}

// catalogSource is the analyzer setup selected by CONFLUENCE_CATALOG
type catalogSource struct {
	catalog     confluence.Catalog
	presets     confluence.Presets
	cachePrefix string
}

// loadCatalog reads the optional catalog file, falling back to the built-in tables
func loadCatalog(cfg *config.Config, log *logger.Logger) (catalogSource, error) {
	path := cfg.Confluence.CatalogPath
	if path == "" {
		return catalogSource{
			catalog:     confluence.DefaultCatalog(),
			presets:     confluence.DefaultPresets(),
			cachePrefix: "pilot",
		}, nil
	}

	sc, _, err := strategyconfig.Load(path)
	if err != nil {
		return catalogSource{}, fmt.Errorf("load confluence catalog: %w", err)
	}
	for _, w := range strategyconfig.Warn(sc) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	prefix, err := strategyconfig.CachePrefix("pilot", sc)
	if err != nil {
		return catalogSource{}, fmt.Errorf("hash confluence catalog: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"path":       path,
		"config_id":  sc.Meta.ConfigID,
		"version":    sc.Meta.Version,
		"indicators": sc.Catalog().Len(),
	}).Info("Confluence catalog loaded")

	return catalogSource{
		catalog:     sc.Catalog(),
		presets:     sc.Presets(),
		cachePrefix: prefix,
	}, nil
}

// newScheduler registers the scheduled jobs against the runtime
func (rt *runtime) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(rt.log)

	if err := sched.AddJob(jobs.NewFlowDemoJob(rt.sequencer, rt.cfg.Scheduler.FlowDemoSchedule, rt.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewConfluenceWarmupJob(rt.analyzer, rt.cfg.Scheduler.WarmupSchedule, rt.log)); err != nil {
		return nil, err
	}

	return sched, nil
}

// close releases everything newRuntime opened
func (rt *runtime) close() {
	if rt.sequencer != nil && rt.sequencer.Status().IsRunning {
		rt.sequencer.Stop()
	}
	if rt.hub != nil {
		rt.hub.Close()
	}
	if rt.webhook != nil {
		rt.webhook.Wait()
	}
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.log.WithError(err).Warn("Failed to close redis client")
		}
	}
}
