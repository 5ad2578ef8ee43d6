package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/meetroom-backend/internal/handler"
	"github.com/xela07ax/meetroom-backend/internal/infra"
	"github.com/xela07ax/meetroom-backend/internal/infra/auth"
	"go.uber.org/zap"
)

// PermManageUsers требуется для freeze и листинга пользователей.
const PermManageUsers = "user.manage"

type Server struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	tokens *auth.TokenService

	userHandler    *handler.UserHandler
	captchaHandler *handler.CaptchaHandler
	metrics        *handler.Metrics
	registry       *prometheus.Registry
}

// NewServer собирает роутер со всеми группами доступа.
func NewServer(
	cfg *infra.Config,
	logger *zap.Logger,
	tokens *auth.TokenService,
	userH *handler.UserHandler,
	captchaH *handler.CaptchaHandler,
	metrics *handler.Metrics,
	registry *prometheus.Registry,
) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger.Named("http"),
		cfg:            cfg,
		tokens:         tokens,
		userHandler:    userH,
		captchaHandler: captchaH,
		metrics:        metrics,
		registry:       registry,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TracingMiddleware)
	r.Use(DurationMiddleware(s.metrics))

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (без инспекции токена) ---
	r.Group(func(r chi.Router) {
		r.Post("/user/register", s.userHandler.Register)
		r.Post("/user/login", s.userHandler.Login)
		r.Post("/user/admin/login", s.userHandler.AdminLogin)
		r.Get("/user/refresh", s.userHandler.Refresh)
		r.Get("/user/admin/refresh", s.userHandler.AdminRefresh)

		// Выдача одноразовых кодов
		r.Get("/user/register-captcha", s.captchaHandler.RegisterCaptcha)
		r.Get("/user/update_password/captcha", s.captchaHandler.UpdatePasswordCaptcha)
		r.Get("/user/update/captcha", s.captchaHandler.UpdateUserCaptcha)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (нужен живой access-токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin(s.tokens, s.logger))

		r.Get("/user/info", s.userHandler.Info)
		r.Post("/user/update_password", s.userHandler.UpdatePassword)
		r.Post("/user/admin/update_password", s.userHandler.UpdatePassword)
		r.Post("/user/update", s.userHandler.Update)
		r.Post("/user/admin/update", s.userHandler.Update)

		// Администрирование аккаунтов — токена мало, нужно право
		r.Group(func(r chi.Router) {
			r.Use(auth.RequirePermissions(s.logger, PermManageUsers))
			r.Get("/user/freeze", s.userHandler.Freeze)
			r.Get("/user/list", s.userHandler.List)
		})
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
