package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/deadman/internal/account"
	"github.com/ykvlv/deadman/internal/config"
	"github.com/ykvlv/deadman/internal/domain"
	"github.com/ykvlv/deadman/internal/events"
	"github.com/ykvlv/deadman/internal/httpapi"
	"github.com/ykvlv/deadman/internal/lock"
	"github.com/ykvlv/deadman/internal/mail"
	"github.com/ykvlv/deadman/internal/scheduler"
	"github.com/ykvlv/deadman/internal/store"
	"github.com/ykvlv/deadman/internal/telegram"
	"github.com/ykvlv/deadman/internal/tracing"
	"github.com/ykvlv/deadman/internal/watchdog"
)

const (
	RunModeService = "service"
	RunModeOnce    = "once"

	runLockKey      = "deadman:run-lock"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	cfg       config.Config
	log       *zap.Logger
	out       io.Writer
	scheduler *scheduler.Scheduler
	httpSrv   *http.Server
	bot       *tgbotapi.BotAPI
	router    *telegram.Router
	closers   []func(context.Context) error
}

// New builds every component from cfg. Optional integrations stay off when unconfigured.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	scanMode, err := domain.ParseResetMode(cfg.ScanMode)
	if err != nil {
		return nil, fmt.Errorf("SCAN_MODE: %w", err)
	}
	resetMode, err := domain.ParseResetMode(cfg.CheckinResetMode)
	if err != nil {
		return nil, fmt.Errorf("CHECKIN_RESET_MODE: %w", err)
	}
	if cfg.RunMode != RunModeService && cfg.RunMode != RunModeOnce {
		return nil, fmt.Errorf("RUN_MODE: unknown mode %q", cfg.RunMode)
	}

	a := &App{cfg: cfg, log: log, out: os.Stdout}

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		ServiceName: cfg.OtelServiceName,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracer)

	repo, err := store.OpenSQLite(ctx, cfg.DBPath, cfg.DefaultTZ)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return repo.Close() })
	log.Info("sqlite ready", zap.String("path", cfg.DBPath))

	opts := []watchdog.DispatcherOption{watchdog.WithSendTimeout(cfg.SMTP.Timeout)}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromAddress,
		FromName:    cfg.SMTP.FromName,
		Timeout:     cfg.SMTP.Timeout,
	}, log)
	switch {
	case errors.Is(err, mail.ErrNotConfigured):
		log.Warn("email delivery disabled, alerts will stay pending", zap.Error(err))
	case err != nil:
		a.close()
		return nil, err
	default:
		opts = append(opts, watchdog.WithGateway(sender))
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, watchdog.WithEvents(pub))
		a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
		log.Info("alert events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rl, err := lock.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, runLockKey, cfg.LockTTL)
		if err != nil {
			a.close()
			return nil, err
		}
		locker = rl
		a.closers = append(a.closers, func(context.Context) error { return rl.Close() })
		log.Info("distributed run lock enabled", zap.String("redis", cfg.RedisAddr))
	}

	orchestrator := watchdog.NewOrchestrator(
		watchdog.NewScanner(repo, scanMode),
		watchdog.NewDispatcher(repo, repo, log, opts...),
		cfg.Workers,
		log,
	)
	a.scheduler = scheduler.New(orchestrator, locker, log, cfg.ScanInterval)

	if cfg.RunMode == RunModeOnce {
		return a, nil
	}

	accounts := account.New(repo, resetMode, cfg.CheckinResetWindow(), log)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	a.httpSrv = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(accounts, a.scheduler, cfg.OtelServiceName, log),
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       5 * time.Second,
		// A manual run answers only after the whole batch.
		WriteTimeout: 2 * time.Minute,
	}

	if cfg.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		bot.Debug = false
		a.bot = bot
		a.router = telegram.NewRouter(bot, log, accounts)
	}
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	a.log.Info("starting deadman",
		zap.String("mode", a.cfg.RunMode),
		zap.String("http", a.cfg.HTTPAddr),
		zap.Bool("telegram", a.bot != nil),
	)

	if a.cfg.RunMode == RunModeOnce {
		return a.runOnce(ctx)
	}
	return a.serve(ctx)
}

// runOnce performs one batch and prints its report as JSON.
func (a *App) runOnce(ctx context.Context) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")

	report, err := a.scheduler.RunOnce(ctx)
	if err != nil {
		_ = enc.Encode(watchdog.NewFailureReport(err, time.Now()))
		return err
	}
	return enc.Encode(report)
}

func (a *App) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.scheduler.Run(ctx)
		return nil
	})

	if a.bot != nil {
		g.Go(func() error {
			a.pollUpdates(ctx)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpSrv.Shutdown(shCtx); err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func (a *App) pollUpdates(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)
	defer a.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// close releases resources in reverse order of creation.
func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
