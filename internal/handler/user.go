package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/xela07ax/meetroom-backend/internal/domain"
	"github.com/xela07ax/meetroom-backend/internal/infra/auth"
	"github.com/xela07ax/meetroom-backend/internal/service"
	"go.uber.org/zap"
)

// UserHandler — тонкий слой: декод JSON, вызов сервиса, маппинг ошибки.
type UserHandler struct {
	svc     *service.UserService
	metrics *Metrics
	logger  *zap.Logger
}

func NewUserHandler(svc *service.UserService, metrics *Metrics, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, metrics: metrics, logger: logger.Named("user-handler")}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Captcha == "" || len(req.Password) < 6 {
		http.Error(w, "username, email, captcha are required; password min 6 chars", http.StatusBadRequest)
		return
	}

	if err := h.svc.Register(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, false)
}

func (h *UserHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, true)
}

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	admin := strconv.FormatBool(isAdmin)

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	user, err := h.svc.Login(r.Context(), &req, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			h.metrics.LoginAttempts.WithLabelValues("invalid", admin).Inc()
		case errors.Is(err, domain.ErrAccountFrozen):
			h.metrics.LoginAttempts.WithLabelValues("frozen", admin).Inc()
		default:
			h.metrics.LoginAttempts.WithLabelValues("error", admin).Inc()
		}
		writeError(w, err)
		return
	}

	// Выпуск токенов — забота вызывающего, не логин-проверки
	pair, err := h.svc.IssueTokenPair(user)
	if err != nil {
		h.logger.Error("token issuance failed", zap.Error(err))
		writeError(w, err)
		return
	}

	h.metrics.LoginAttempts.WithLabelValues("success", admin).Inc()
	writeJSON(w, http.StatusOK, &domain.LoginResponse{
		UserInfo: &domain.Principal{
			UserID:      user.ID,
			Username:    user.Username,
			Roles:       user.Roles,
			Permissions: user.Permissions,
		},
		TokenPair: pair,
	})
}

func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, false)
}

func (h *UserHandler) AdminRefresh(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, true)
}

func (h *UserHandler) refresh(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	token := r.URL.Query().Get("refreshToken")
	if token == "" {
		http.Error(w, "refreshToken is required", http.StatusBadRequest)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), token, isAdmin)
	if err != nil {
		h.metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
		writeError(w, err)
		return
	}

	h.metrics.TokenRefreshes.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, pair)
}

// Info — профиль текущего пользователя (Principal берется из контекста Guard'а).
func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrNotLoggedIn)
		return
	}

	user, err := h.svc.Info(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrNotLoggedIn)
		return
	}

	var req domain.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 6 || req.Email == "" || req.Captcha == "" {
		http.Error(w, "email, captcha are required; password min 6 chars", http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdatePassword(r.Context(), principal.UserID, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrNotLoggedIn)
		return
	}

	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Captcha == "" {
		http.Error(w, "email and captcha are required", http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdateProfile(r.Context(), principal.UserID, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *UserHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "id should be a number", http.StatusBadRequest)
		return
	}

	if err := h.svc.Freeze(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNo := parseIntDefault(q.Get("pageNo"), 1)
	pageSize := parseIntDefault(q.Get("pageSize"), 10)

	page, err := h.svc.List(r.Context(), pageNo, pageSize, domain.UserFilter{
		Username: q.Get("username"),
		NickName: q.Get("nickName"),
		Email:    q.Get("email"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
