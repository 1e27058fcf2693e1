// Точка входа Odie — сервис продажи протоколов устных экзаменов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// открывает хранилище файлов, создаёт сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/odie/internal/api/handlers"
	"github.com/bigkaa/odie/internal/api/middleware"
	"github.com/bigkaa/odie/internal/config"
	"github.com/bigkaa/odie/internal/database"
	"github.com/bigkaa/odie/internal/domain/pricing"
	"github.com/bigkaa/odie/internal/repository"
	"github.com/bigkaa/odie/internal/server"
	"github.com/bigkaa/odie/internal/service"
	"github.com/bigkaa/odie/internal/storage/blobstore"
)

// keycloakCheckTimeout — таймаут readiness-проверки JWKS.
const keycloakCheckTimeout = 5 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Odie запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	if os.Getenv("ODIE_DEPHEALTH_GROUP") == "" {
		logger.Warn("ODIE_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище файлов документов
	store, storageChecker, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Ошибка открытия хранилища файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	// 6. Repositories
	repos := repository.New(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Services
	cache := service.NewDocumentCache(cfg.DocumentCacheSize, cfg.DocumentCacheTTL)
	svc := handlers.Services{
		Catalog:     service.NewCatalogService(repos, store, cache, logger),
		Orders:      service.NewOrderService(repos, txRunner, logger),
		Print:       service.NewPrintService(txRunner, service.NewLogPrinter(logger), pricing.PerPage(cfg.PricePerPage), cfg.DepositPrice, logger),
		Accounting:  service.NewAccountingService(repos, txRunner, logger),
		Submissions: service.NewSubmissionService(txRunner, store, cfg.AllowedExtensions, logger),
	}

	// 8. Readiness checkers (PostgreSQL + Keycloak + хранилище)
	pgChecker := database.NewReadinessChecker(pool)
	kcChecker := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, keycloakCheckTimeout)
	healthHandler := handlers.NewHealthHandler(pgChecker, kcChecker, storageChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, svc, cfg, logger)

	// 10. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(cfg.JWTJWKSURL, cfg.JWTIssuer, cfg.OperatorGroups, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:       "odie",
		Group:           cfg.DephealthGroup,
		DB:              pgDB,
		PostgresURL:     cfg.DatabaseURL(),
		KeycloakJWKSURL: cfg.JWTJWKSURL,
		CheckInterval:   cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Odie остановлен")
}

// openStore открывает хранилище файлов по ODIE_STORAGE_BACKEND.
// Возвращает хранилище, его readiness checker и функцию закрытия.
func openStore(ctx context.Context, cfg *config.Config) (blobstore.Store, handlers.ReadinessChecker, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageBackendDisk:
		s, err := blobstore.NewDiskStore(cfg.DocumentDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() {}, nil
	case config.StorageBackendGCS:
		s, err := blobstore.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("неизвестный backend хранилища %q", cfg.StorageBackend)
	}
}
