package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — четыре сигнала auth-ядра: логины, обмены, выдача кодов, латентность.
type Metrics struct {
	LoginAttempts *prometheus.CounterVec // outcome: success, invalid, frozen, error

	TokenRefreshes *prometheus.CounterVec // outcome: success, rejected

	CaptchasIssued *prometheus.CounterVec // purpose: captcha, update_password_captcha, update_user_captcha

	RequestDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		LoginAttempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome", "admin"}),

		TokenRefreshes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Refresh-token exchanges by outcome.",
		}, []string{"outcome"}),

		CaptchasIssued: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "auth_captchas_issued_total",
			Help: "One-time codes issued by purpose.",
		}, []string{"purpose"}),

		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "method", "status"}),
	}
}
