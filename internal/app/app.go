// Package app is the composition root: it builds the permission manager,
// the notification service and their collaborators from config, and manages
// their process-wide lifetime. Components never reach for globals; tests
// construct fresh instances the same way this package does.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"alertd/internal/config"
	"alertd/internal/eventbus"
	"alertd/internal/gateway/memory"
	"alertd/internal/gateway/telegram"
	"alertd/internal/httpapi"
	"alertd/internal/notify"
	"alertd/internal/permission"
	"alertd/internal/storage"
	"alertd/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store storage.Store
	bus   eventbus.Bus
	perm  *permission.Manager
	svc   *notify.Service
	http  *httpapi.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgMgr := config.NewManager(cfgPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))

	profile, err := permission.ProfileFor(permission.Platform(strings.ToLower(cfg.Platform)))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	var storeCfg storage.Config
	if cfg.Storage != nil {
		busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		storeCfg = storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path, BusyTimeout: busy}
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	bus := eventbus.New()

	// The OS permission surface is emulated in-process on every driver; real
	// permission dialogs are outside this service (see the gateway docs).
	permGW := memory.NewPermissions()
	perm := permission.New(permGW, profile, log.With(logx.String("comp", "permission")))

	notifGW, err := buildNotifierGateway(cfg, log)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		_ = logSvc.Close()
		return nil, err
	}

	svc := notify.New(notifGW, perm, store, bus, log)

	// Nudge operators through the bus when the prompt was declined.
	perm.SetDenialHook(func(ctx context.Context, education string) error {
		bus.Publish(eventbus.Event{Type: "permission.denied", Data: education})
		return nil
	})

	h := httpapi.NewHandler(svc, perm, log)
	srv := httpapi.NewServer(httpapi.Config{Enabled: cfg.HTTP.Enabled, Addr: cfg.HTTP.Addr}, h, log)

	a := &App{
		cfgMgr: cfgMgr,
		logSvc: logSvc,
		log:    log,
		store:  store,
		bus:    bus,
		perm:   perm,
		svc:    svc,
		http:   srv,
	}

	// Hot reload currently re-applies logging only; gateway and storage
	// drivers need a restart.
	cfgMgr.SetOnChange(func(next *config.Config) {
		logSvc.Apply(logx.Config{
			Level:   next.Logging.Level,
			Console: next.Logging.Console,
			File:    logx.FileConfig{Enabled: next.Logging.File.Enabled, Path: next.Logging.File.Path},
		})
	})

	return a, nil
}

func buildNotifierGateway(cfg *config.Config, log logx.Logger) (notify.Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Gateway.Driver)) {
	case "", "memory":
		return memory.NewNotifier(), nil
	case "telegram":
		tg := cfg.Gateway.Telegram
		if tg == nil {
			return nil, errors.New("gateway.telegram section is required")
		}
		return telegram.New(telegram.Config{Token: tg.Token, ChatID: tg.ChatID, RatePerSec: tg.RatePerSec}, log)
	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Gateway.Driver)
	}
}

// Service exposes the notification service (used by tests and embedders).
func (a *App) Service() *notify.Service { return a.svc }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.svc.Initialize(runCtx); err != nil {
		cancel()
		return err
	}
	a.svc.Start()

	if err := a.http.Start(); err != nil {
		cancel()
		return fmt.Errorf("start http api: %w", err)
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.eventLogLoop(runCtx)
	}()

	// Best-effort readiness for systemd units with Type=notify.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("alertd started")
	return nil
}

// eventLogLoop bridges delivery lifecycle events onto the logger.
func (a *App) eventLogLoop(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Type {
			case notify.EventFailed:
				a.log.Warn("delivery failed", logx.Any("event", ev.Data))
			case "permission.denied":
				a.log.Warn("permission denied by user", logx.Any("education", ev.Data))
			default:
				a.log.Debug(ev.Type, logx.Any("event", ev.Data))
			}
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cancel != nil {
		a.cancel()
	}
	a.http.Stop(ctx)
	a.svc.Stop(ctx)
	a.wg.Wait()

	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.logSvc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
