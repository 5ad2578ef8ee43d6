package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/meetroom-backend/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError маппит таксономию ошибок ядра в HTTP-статусы.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrCaptchaExpired),
		errors.Is(err, domain.ErrCaptchaMismatch),
		errors.Is(err, domain.ErrUsernameTaken):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrNotLoggedIn),
		errors.Is(err, domain.ErrSessionExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrAccountFrozen):
		status = http.StatusForbidden
	default:
		var dErr *domain.DeliveryError
		if errors.As(err, &dErr) {
			status = http.StatusBadGateway
			break
		}
		// PersistenceError и все неожиданное — 500, без деталей наружу
		status = http.StatusInternalServerError
		err = errors.New("internal error")
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
