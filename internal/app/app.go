package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"Debate_Community/internal/config"
	"Debate_Community/internal/metrics"
	"Debate_Community/internal/model"
	"Debate_Community/internal/moderation"
	"Debate_Community/internal/pkg"
	"Debate_Community/internal/repository/memory"
	"Debate_Community/internal/repository/mysql"
	redisrepo "Debate_Community/internal/repository/redis"
	"Debate_Community/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

const fanoutDrainTimeout = 15 * time.Second

// App 组装好的服务和后台任务，api 和 debatectl 共用
type App struct {
	Config        config.Config
	Logger        *slog.Logger
	Registry      *prometheus.Registry
	Debates       *service.DebateService
	Anonymizer    *service.AnonymizationService
	Notifications *service.NotificationService
	Verifier      *pkg.TokenVerifier

	Relayer    *service.OutboxRelayer     // 仅 SQL 存储
	Reconciler *service.RankingReconciler // 仅配置了 Redis

	fanout  *service.NotificationFanout
	closers []func() error
}

func NewLogger(level string, json bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Verifier: pkg.NewTokenVerifier(cfg.JWTSecret),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.Registry)

	classifier, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}
	gate := moderation.NewGate(classifier,
		moderation.WithTimeout(cfg.ClassifierTimeout),
		moderation.WithMetrics(m),
		moderation.WithLogger(logger))

	opts := service.Options{
		MaxAttempts:       cfg.MaxAttempts,
		StoreTimeout:      cfg.StoreTimeout,
		ModerateEdits:     cfg.ModerateEdits,
		RedactionSentinel: cfg.RedactionSentinel,
		AnonymizeChunk:    cfg.AnonymizeChunk,
	}

	var (
		store      service.DebateStore
		audit      service.CensorshipLog
		sink       service.NotificationSink
		notes      service.NotificationStore
		categories service.CategoryLookup
		users      service.UserDirectory
	)
	switch cfg.StoreDriver {
	case "memory":
		s := &memory.NotificationStore{}
		store = memory.NewDebateStore()
		audit = &memory.CensorshipLog{}
		sink, notes = s, s
		categories = memory.NewCategoryStore(model.Category{ID: "general", Name: "General"})
	default:
		db, err := openDB(cfg)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		nr := &mysql.NotificationRepository{DB: db}
		store = &mysql.DebateRepository{DB: db}
		audit = &mysql.CensorshipRepository{DB: db}
		sink, notes = nr, nr
		categories = &mysql.CategoryRepository{DB: db}
		users = &mysql.UserRepository{DB: db}

		sender, closeSender, err := newSender(cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closeSender)
		a.Relayer = service.NewOutboxRelayer(&mysql.OutboxRepository{DB: db}, sender, cfg.OutboxInterval, cfg.OutboxBatch, m, logger)
	}

	var (
		ranking service.Ranking
		lock    service.Locker
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisrepo.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		rr := &redisrepo.RankingRepository{RDB: rdb}
		ranking = rr
		lock = &redisrepo.DistLock{RDB: rdb}
		a.Reconciler = service.NewRankingReconciler(store, rr, lock, cfg.ReconcileInterval, cfg.ReconcileBatch, logger)
	}

	a.fanout = service.NewNotificationFanout(sink,
		service.WithSkipRecipients(cfg.RedactionSentinel),
		service.WithFanoutMetrics(m),
		service.WithFanoutLogger(logger))

	a.Debates = service.NewDebateService(service.DebateDeps{
		Store:      store,
		Gate:       gate,
		Audit:      audit,
		Categories: categories,
		Fanout:     a.fanout,
		Ranking:    ranking,
		Metrics:    m,
		Logger:     logger,
	}, opts)
	a.Anonymizer = service.NewAnonymizationService(service.AnonymizeDeps{
		Store:   store,
		Users:   users,
		Lock:    lock,
		Metrics: m,
		Logger:  logger,
	}, opts)
	a.Notifications = service.NewNotificationService(notes)
	return a, nil
}

// RunBackground 启动后台任务，ctx 取消后返回
func (a *App) RunBackground(ctx context.Context) {
	if a.Relayer != nil {
		go a.Relayer.Run(ctx)
	}
	if a.Reconciler != nil {
		go a.Reconciler.Run(ctx)
	}
}

// Close 先等通知发完，再按打开的逆序关闭连接
func (a *App) Close() error {
	var errs []error
	if a.fanout != nil {
		ctx, cancel := context.WithTimeout(context.Background(), fanoutDrainTimeout)
		if err := a.fanout.Wait(ctx); err != nil {
			a.Logger.Warn("notification dispatch still running at shutdown", "err", err)
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.MySQLDSN
	if cfg.StoreDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	db, err := mysql.Open(cfg.StoreDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.StoreDriver, err)
	}
	if err := mysql.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func newClassifier(cfg config.Config) (moderation.Classifier, error) {
	switch cfg.Classifier {
	case "openai":
		return moderation.NewOpenAIClassifier(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, moderation.DefaultRejectCategories), nil
	default:
		return moderation.NewRulesClassifier(cfg.RulesFile)
	}
}

// newSender 配了 broker 走 kafka，否则只打日志
func newSender(cfg config.Config, logger *slog.Logger) (service.Sender, func() error, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka not configured, outbox relays to log")
		return service.LogSender(logger), func() error { return nil }, nil
	}
	p, err := pkg.NewNotificationPublisher(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}
	logger.Info("outbox relays to kafka", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaTopic)
	return service.KafkaSender(p), p.Close, nil
}
