// Пакет server — HTTP-сервер Odie с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/odie/internal/api/handlers"
	"github.com/bigkaa/odie/internal/api/middleware"
	"github.com/bigkaa/odie/internal/config"
)

// Server — HTTP-сервер Odie.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами и middleware.
// jwtAuth — JWT middleware для операторских маршрутов (может быть nil для тестирования без auth).
func New(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      newRouter(logger, h, jwtAuth),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Handler возвращает корневой http.Handler сервера.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func newRouter(logger *slog.Logger, h *handlers.APIHandler, jwtAuth *middleware.JWTAuth) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую.
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api", func(r chi.Router) {
		// Публичные маршруты: каталог, заказы студентов, подача протоколов
		r.Get("/config", h.GetConfig)
		r.Get("/lectures", h.ListLectures)
		r.Get("/lectures/{id}/documents", h.ListLectureDocuments)
		r.Get("/examinants", h.ListExaminants)
		r.Get("/examinants/{id}/documents", h.ListExaminantDocuments)
		r.Get("/documents", h.ListDocuments)
		r.Post("/documents", h.SubmitDocument)
		r.Post("/orders", h.CreateOrder)

		// Операторские маршруты
		r.Group(func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(jwtAuth.Middleware())
			}

			r.Get("/user_info", h.GetUserInfo)
			r.Post("/print", h.Print)
			r.Post("/log_erroneous_sale", h.LogErroneousSale)
			r.Post("/log_deposit_return", h.LogDepositReturn)
			r.Post("/donation", h.Donation)
			r.Get("/accounting", h.ListAccounting)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Delete("/orders/{id}", h.DeleteOrder)
			r.Get("/deposits", h.ListDeposits)
			r.Get("/view/{id}", h.ViewDocument)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
