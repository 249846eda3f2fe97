package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chainwatch/internal/alerting"
	"chainwatch/internal/config"
	"chainwatch/internal/executor"
	"chainwatch/internal/explorer"
	"chainwatch/internal/health"
	"chainwatch/internal/scheduler"
	"chainwatch/internal/service"
	"chainwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newExplorerClient() *explorer.Client {
	chains := make(map[string]explorer.ChainEndpoint, len(a.Config.Chains))
	for name, chain := range a.Config.Chains {
		chains[name] = explorer.ChainEndpoint{
			BaseURL: chain.BaseURL,
			APIKey:  chain.APIKey,
			RPCURL:  chain.RPCURL,
		}
	}

	proxyURL := ""
	if a.Config.Settings.UseProxy {
		proxyURL = a.Config.Settings.ProxyURL
	}

	return explorer.NewClient(explorer.Options{
		Chains:     chains,
		Timeout:    a.Config.Settings.RequestTimeout,
		MaxRetries: a.Config.Settings.MaxRetries,
		RetryDelay: a.Config.Settings.RetryDelay(),
		ProxyURL:   proxyURL,
		UserAgent:  fmt.Sprintf("%s/1.0", a.Config.App.Name),
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Notifications.Telegram.Enabled {
		cfg := a.Config.Notifications.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// resolveDefinitions loads the typed query/alert definitions, reporting each
// rejected entry without aborting the rest.
func (a *App) resolveDefinitions() ([]explorer.QueryDefinition, []alerting.Definition, error) {
	queries, alerts, entryErrs := a.Config.ResolveDefinitions()
	for _, entryErr := range entryErrs {
		a.Logger.Error().Str("kind", entryErr.Kind).Str("id", entryErr.ID).
			Err(entryErr.Err).Msg("configuration entry rejected")
	}
	if len(queries) == 0 {
		return nil, nil, errors.New("no usable query definitions configured")
	}
	return queries, alerts, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	queries, alerts, err := a.resolveDefinitions()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert audit log disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("no notification channel enabled; fired alerts will only be logged")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Settings.Interval(),
		AlignToStart:   a.Config.Scheduler.AlignToInterval,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	tracker := health.NewTracker()
	client := a.newExplorerClient()
	exec := executor.New(client, a.Config.Settings.MaxConcurrentQueries, a.Logger)
	eval := alerting.NewEvaluator(a.Logger)
	dispatcher := alerting.NewDispatcher(notifier, a.Logger)

	var auditLog storage.AlertLogStore
	var locker storage.AdvisoryLocker
	if store != nil {
		auditLog = store
		locker = store
	}

	svc := service.New(sched, exec, eval, dispatcher, tracker, auditLog, locker,
		a.Config.Scheduler.AdvisoryLockKey, queries, alerts, a.Logger)

	if addr := a.Config.Health.ListenAddr; addr != "" {
		var pinger health.Pinger
		if store != nil {
			pinger = store
		}
		healthSrv := health.NewServer(addr, tracker, pinger, a.Logger)
		go func() {
			if err := healthSrv.Run(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("health server terminated")
			}
		}()
	}

	a.Logger.Info().
		Int("queries", len(queries)).
		Int("alerts", len(alerts)).
		Float64("interval_minutes", a.Config.Settings.IntervalMinutes).
		Msg("starting blockchain monitor")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitor terminated with error")
		return err
	}

	a.Logger.Info().Msg("blockchain monitor stopped")
	return nil
}
