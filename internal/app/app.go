package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gw-ipn-relay/internal/api/handlers"
	"gw-ipn-relay/internal/api/middlew"
	"gw-ipn-relay/internal/bot"
	"gw-ipn-relay/internal/config"
	"gw-ipn-relay/internal/db"
	"gw-ipn-relay/internal/http_client"
	"gw-ipn-relay/internal/kafka"
	"gw-ipn-relay/internal/metrics"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/server"
	"gw-ipn-relay/internal/service"
	"gw-ipn-relay/internal/storage"
	"gw-ipn-relay/internal/storage/memory"
	"gw-ipn-relay/internal/storage/mongodb"
	"gw-ipn-relay/internal/storage/postgres"
	"gw-ipn-relay/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type repositories struct {
	ledger    storage.LedgerRepository
	registry  storage.RegistryRepository
	sessions  storage.SessionRepository
	settings  storage.SettingsRepository
	txManager service.TxManager
}

type App struct {
	log     *slog.Logger
	logFile *os.File
	cfg     *config.Config
	server  *server.Server
	pool    *pgxpool.Pool
	metrics *metrics.Metrics

	repos         repositories
	kafkaProducer kafka.Producer
	archive       storage.Archive

	registryService *service.RegistryService
	ledgerService   *service.LedgerService
	cashOutService  *service.CashOutService
	authService     *service.AuthService

	telegram   *bot.TelegramBot
	dispatcher *service.Dispatcher
}

func NewApp() (*App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации конфига: %w", err)
	}

	loggerWithFile, err := logger.NewLoggerWithFile(cfg.LogFile, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	log := loggerWithFile.Logger
	log.Info("инициализация приложения",
		slog.String("port", cfg.HTTPPort),
		slog.String("storage", cfg.StorageDriver))

	a := &App{
		log:     log,
		logFile: loggerWithFile.LogFile,
		cfg:     cfg,
	}

	if err := a.initStorage(context.Background()); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewMetrics(reg)

	if cfg.Kafka.Enabled {
		log.Info("инициализация kafka producer", slog.Any("brokers", cfg.Kafka.Brokers))
		a.kafkaProducer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации kafka: %w", err)
		}
	} else {
		log.Info("kafka отключен в конфигурации")
		a.kafkaProducer = kafka.NewNoOpProducer(log)
	}

	if cfg.MongoDB.Enabled {
		log.Info("подключение к MongoDB", slog.String("database", cfg.MongoDB.Database))
		a.archive, err = mongodb.NewMongoArchive(context.Background(),
			cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Collection, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
		}
	} else {
		log.Info("архив MongoDB отключен в конфигурации")
		a.archive = mongodb.NewNoOpArchive()
	}

	srv := server.NewServer(cfg.HTTPPort)
	srv.Router.Use(middleware.RequestID)
	srv.Router.Use(middlew.WithLogger(log))
	srv.Router.Use(middleware.RealIP)
	srv.Router.Use(middleware.Recoverer)
	srv.RegisterSwagger()
	srv.RegisterMetrics(reg)
	srv.Router.Get("/healthz", handlers.Healthz)
	a.server = srv
	log.Info("сервер инициализирован", slog.String("port", cfg.HTTPPort))

	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		a.repos = repositories{
			ledger:    store,
			registry:  store,
			sessions:  store,
			settings:  store,
			txManager: memory.NewLockTxManager(),
		}
		a.log.Warn("используется хранилище в памяти, данные не переживут перезапуск")
		return nil

	default:
		poolCfg := db.PoolConfig{
			MaxConns:          20,
			MinConns:          2,
			HealthCheckPeriod: 30 * time.Second,
			PoolTimeout:       5 * time.Second,
			RetryAttempts:     a.cfg.DB.RetryAttempts,
			RetryDelay:        a.cfg.DB.RetryDelay,
			MaxRetryDelay:     a.cfg.DB.MaxRetryDelay,
			ApplicationName:   "ipn-relay",
		}

		pool, err := db.NewPool(ctx, a.cfg.DB.DSN(), poolCfg, a.log)
		if err != nil {
			return fmt.Errorf("не удалось подключиться к базе данных: %w", err)
		}
		a.pool = pool
		a.log.Info("подключение к базе данных установлено")

		a.log.Info("выполнение миграций базы данных")
		if err := db.RunMigrations(a.cfg.DB.MigrationURL(), "migrations"); err != nil {
			return fmt.Errorf("ошибка выполнения миграций: %w", err)
		}
		a.log.Info("миграции успешно применены")

		a.repos = repositories{
			ledger:    postgres.NewLedgerRepository(pool),
			registry:  postgres.NewRegistryRepository(pool),
			sessions:  postgres.NewSessionRepository(pool),
			settings:  postgres.NewSettingsRepository(pool),
			txManager: service.NewPgxTxManager(pool),
		}
		return nil
	}
}

// BuildCoreLayer собирает сервисы журнала, реестров и вывода средств.
func (a *App) BuildCoreLayer() error {
	defaultFee, err := models.ParsePlainDecimal(a.cfg.Bot.DefaultFeePercent)
	if err != nil {
		return fmt.Errorf("некорректный DEFAULT_FEE_PERCENT %q: %w", a.cfg.Bot.DefaultFeePercent, err)
	}

	a.registryService = service.NewRegistryService(a.repos.registry, a.log)
	a.ledgerService = service.NewLedgerService(a.repos.ledger, a.repos.registry, a.repos.settings, a.log)
	a.cashOutService = service.NewCashOutService(
		a.repos.ledger,
		a.repos.sessions,
		a.repos.settings,
		a.repos.txManager,
		a.metrics,
		a.log,
	)
	a.authService = service.NewAuthService(a.cfg.Bot.AdminUserID, a.cfg.JWT.Secret, a.cfg.JWT.Expiration, a.log)

	if err := a.ledgerService.EnsureDefaultFee(context.Background(), defaultFee); err != nil {
		return fmt.Errorf("не удалось сохранить комиссию по умолчанию: %w", err)
	}

	a.log.Info("слой 'core' собран", slog.String("default_fee", defaultFee.String()))
	return nil
}

// BuildBotLayer подключает Telegram-бота, оповещения и фоновую доставку.
func (a *App) BuildBotLayer() error {
	if a.ledgerService == nil {
		return errors.New("core services not initialized, call BuildCoreLayer first")
	}

	router := bot.NewRouter(
		a.registryService,
		a.ledgerService,
		a.cashOutService,
		a.authService,
		a.repos.sessions,
		bot.RouterConfig{
			AdminID:          a.cfg.Bot.AdminUserID,
			CashOutAdminOnly: a.cfg.Bot.CashOutAdminOnly,
		},
		a.log,
	)

	telegram, err := bot.NewTelegramBot(a.cfg.Bot.Token, router, a.cfg.Bot.SendRPS, a.cfg.Bot.PollTimeout, a.log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации telegram бота: %w", err)
	}
	a.telegram = telegram

	notifier := service.NewNotifier(a.registryService, telegram, a.cfg.Bot.AdminUserID, a.metrics, a.log)
	a.dispatcher = service.NewDispatcher(
		notifier,
		a.kafkaProducer,
		a.archive,
		http_client.NewForwarder(a.cfg.IPN.ForwardTimeout),
		a.cfg.Dispatcher.Workers,
		a.cfg.Dispatcher.QueueSize,
		a.metrics,
		a.log,
	)

	a.log.Info("слой 'bot' собран")
	return nil
}

// BuildIPNLayer регистрирует приём уведомлений.
func (a *App) BuildIPNLayer() error {
	if a.dispatcher == nil {
		return errors.New("dispatcher not initialized, call BuildBotLayer first")
	}

	var verifier http_client.Verifier = http_client.NoOpVerifier{}
	if a.cfg.IPN.VerifyEnabled {
		verifier = http_client.NewVerifier(a.cfg.IPN.VerifyURL, a.cfg.IPN.VerifyTimeout, a.log)
	} else {
		a.log.Warn("проверка подлинности IPN отключена")
	}

	converter := service.NewRateConverter(
		http_client.NewRatesClient(a.cfg.Rates.APIURL, a.cfg.Rates.Timeout, a.log),
		a.cfg.Rates.CacheTTL,
		a.log,
	)

	ipnService := service.NewIPNService(
		verifier,
		converter,
		a.repos.ledger,
		a.registryService,
		a.dispatcher,
		a.metrics,
		a.log,
	)
	ipnHandler := handlers.NewIPNHandler(ipnService)

	a.server.Router.Post("/ipn", ipnHandler.HandleIPN)

	a.log.Info("слой 'ipn' собран и маршруты зарегистрированы")
	return nil
}

// BuildReportLayer монтирует отчётный API, если задан JWT_SECRET.
func (a *App) BuildReportLayer() error {
	if a.authService == nil {
		return errors.New("authService not initialized, call BuildCoreLayer first")
	}
	if !a.cfg.APIEnabled() {
		a.log.Info("отчётный API отключен, JWT_SECRET не задан")
		return nil
	}

	reportHandler := handlers.NewReportHandler(a.ledgerService)

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.RequireAuth(a.authService))

		r.Get("/api/v1/balance", reportHandler.GetBalance)
		r.Get("/api/v1/transactions", reportHandler.GetTransactions)
		r.Get("/api/v1/status", reportHandler.GetStatus)
	})

	a.log.Info("слой 'report' собран и маршруты зарегистрированы")
	return nil
}

func (a *App) Run() error {
	a.log.Info("сервер запускается")

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	}()

	botCtx, stopBot := context.WithCancel(context.Background())
	var botWG sync.WaitGroup
	if a.telegram != nil {
		botWG.Add(1)
		go func() {
			defer botWG.Done()
			a.telegram.Run(botCtx)
		}()
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-serverErr:
		a.log.Error("сервер завершился с ошибкой", slog.String("error", runErr.Error()))
	case sig := <-shutdownChan:
		a.log.Info("получен сигнал завершения", slog.String("signal", sig.String()))
	}

	a.log.Info("приложение останавливается")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.log.Info("остановка telegram бота")
	stopBot()
	botWG.Wait()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("ошибка при остановке http сервера", slog.String("error", err.Error()))
	}

	if a.dispatcher != nil {
		a.log.Info("остановка dispatcher")
		if err := a.dispatcher.Shutdown(ctx); err != nil {
			a.log.Error("ошибка при остановке dispatcher", slog.String("error", err.Error()))
		}
	}

	if a.kafkaProducer != nil {
		a.log.Info("закрытие kafka producer")
		if err := a.kafkaProducer.Close(); err != nil {
			a.log.Error("ошибка при закрытии kafka producer", slog.String("error", err.Error()))
		}
	}

	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Error("ошибка при закрытии архива", slog.String("error", err.Error()))
		}
	}

	if a.pool != nil {
		a.log.Info("закрытие соединения с базой данных")
		a.pool.Close()
	}

	a.log.Info("приложение остановлено")
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "ошибка при закрытии файла логов: %v\n", err)
		}
	}

	return runErr
}
