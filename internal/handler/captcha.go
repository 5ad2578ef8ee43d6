package handler

import (
	"net/http"
	"net/mail"

	"github.com/xela07ax/meetroom-backend/internal/captcha"
	"github.com/xela07ax/meetroom-backend/internal/infra"
	"go.uber.org/zap"
)

// CaptchaHandler обслуживает три эндпоинта выдачи кодов: регистрация,
// смена пароля, смена профиля.
type CaptchaHandler struct {
	issuer  *captcha.Issuer
	metrics *Metrics
	logger  *zap.Logger
}

func NewCaptchaHandler(issuer *captcha.Issuer, metrics *Metrics, logger *zap.Logger) *CaptchaHandler {
	return &CaptchaHandler{issuer: issuer, metrics: metrics, logger: logger.Named("captcha-handler")}
}

func (h *CaptchaHandler) RegisterCaptcha(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, infra.CaptchaRegister)
}

func (h *CaptchaHandler) UpdatePasswordCaptcha(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, infra.CaptchaUpdatePassword)
}

func (h *CaptchaHandler) UpdateUserCaptcha(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, infra.CaptchaUpdateUser)
}

func (h *CaptchaHandler) issue(w http.ResponseWriter, r *http.Request, purpose infra.CaptchaPurpose) {
	address := r.URL.Query().Get("address")
	if _, err := mail.ParseAddress(address); err != nil {
		http.Error(w, "address is not a valid email", http.StatusBadRequest)
		return
	}

	if err := h.issuer.Issue(r.Context(), purpose, address); err != nil {
		h.logger.Warn("captcha issue failed",
			zap.String("purpose", string(purpose)), zap.Error(err))
		writeError(w, err)
		return
	}

	h.metrics.CaptchasIssued.WithLabelValues(string(purpose)).Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
