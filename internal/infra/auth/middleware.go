package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/xela07ax/meetroom-backend/internal/domain"
	"go.uber.org/zap"
)

// AccessVerifier — то, что нужно Guard'у от токенного сервиса.
type AccessVerifier interface {
	VerifyAccess(tokenStr string) (*domain.AccessClaims, error)
}

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const principalKey ctxKey = "principal"

// PrincipalFromContext достает проверенную личность запроса.
// До Guard'а (и на анонимных роутах) вернет ok=false.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*domain.Principal)
	return p, ok
}

// WithPrincipal кладет личность в контекст. Экспортирован для тестов хендлеров.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// RequireLogin — Guard для группы роутов, требующих входа. Роуты вне группы
// проходят без какой-либо инспекции токена. Порядок проверок:
// наличие заголовка → извлечение bearer-сегмента → подпись и срок →
// Principal в контекст.
func RequireLogin(v AccessVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, domain.ErrNotLoggedIn.Error(), http.StatusUnauthorized)
				return
			}

			// Формат "<scheme> <token>": берем второй сегмент
			parts := strings.Fields(authHeader)
			if len(parts) < 2 {
				http.Error(w, domain.ErrSessionExpired.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyAccess(parts[1])
			if err != nil {
				// Клиенту причину не уточняем, в лог — полную
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, domain.ErrSessionExpired.Error(), http.StatusUnauthorized)
				return
			}

			ctx := WithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermissions отклоняет запрос 403, если права Principal не покрывают
// требуемые. Ставится после RequireLogin: без Principal в контексте запрос
// считается неаутентифицированным.
func RequirePermissions(logger *zap.Logger, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, domain.ErrNotLoggedIn.Error(), http.StatusUnauthorized)
				return
			}

			if !principal.HasPermissions(permissions) {
				logger.Warn("permission denied",
					zap.Int64("user_id", principal.UserID),
					zap.Strings("required", permissions))
				http.Error(w, domain.ErrForbidden.Error(), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
