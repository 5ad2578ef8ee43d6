package captcha

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/xela07ax/meetroom-backend/internal/infra"
	"github.com/xela07ax/meetroom-backend/internal/mailer"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Issuer генерирует шестизначный код, кладет его в кэш под ключом назначения
// и просит внешний релей доставить письмо. Кэш и доставка не связаны
// транзакцией: если процесс упадет между ними, пользователь просто
// запрашивает код заново.
type Issuer struct {
	store  CodeStore
	mail   mailer.Mailer
	logger *zap.Logger

	// Пер-адресные лимитеры против спама кодами на один ящик
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewIssuer(store CodeStore, mail mailer.Mailer, logger *zap.Logger) *Issuer {
	return &Issuer{
		store:    store,
		mail:     mail,
		logger:   logger.Named("captcha"),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Issue выпускает код для пары (назначение, адрес). Повторный вызов
// перезаписывает прошлый код — валиден всегда только последний.
func (i *Issuer) Issue(ctx context.Context, purpose infra.CaptchaPurpose, address string) error {
	if !i.allow(address) {
		return fmt.Errorf("too many captcha requests for %s", address)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate captcha code: %w", err)
	}

	if err := i.store.Set(ctx, purpose.Key(address), code, purpose.TTL()); err != nil {
		return fmt.Errorf("failed to store captcha code: %w", err)
	}

	body := fmt.Sprintf("<p>Your verification code is %s</p>", code)
	if err := i.mail.Send(ctx, address, purpose.Subject(), body); err != nil {
		// Код уже в кэше; ошибка доставки отдается как есть (DeliveryError)
		return err
	}

	i.logger.Info("captcha issued",
		zap.String("purpose", string(purpose)),
		zap.String("address", address))
	return nil
}

// allow: 1 код в 30 секунд на адрес, burst 3.
func (i *Issuer) allow(address string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	lim, ok := i.limiters[address]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(1.0/30.0), 3)
		i.limiters[address] = lim
	}
	return lim.Allow()
}

// generateCode — равномерный шестизначный код, ведущие нули сохраняются.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
