package infra

import (
	"fmt"
	"time"
)

// CaptchaPurpose — назначение одноразового кода. Каждое назначение живет
// в своем префиксе ключа, так что коды разных действий не пересекаются.
type CaptchaPurpose string

const (
	CaptchaRegister       CaptchaPurpose = "captcha"
	CaptchaUpdatePassword CaptchaPurpose = "update_password_captcha"
	CaptchaUpdateUser     CaptchaPurpose = "update_user_captcha"
)

// Key строит ключ вида "<префикс>_<адрес>". На пару (назначение, адрес)
// живет максимум один код: повторная выдача перезаписывает значение и TTL.
func (p CaptchaPurpose) Key(address string) string {
	return fmt.Sprintf("%s_%s", string(p), address)
}

// TTL возвращает срок жизни кода для данного назначения.
func (p CaptchaPurpose) TTL() time.Duration {
	if p == CaptchaRegister {
		return 5 * time.Minute
	}
	return 10 * time.Minute
}

// Subject — тема письма с кодом.
func (p CaptchaPurpose) Subject() string {
	switch p {
	case CaptchaUpdatePassword:
		return "Password change verification code"
	case CaptchaUpdateUser:
		return "Profile change verification code"
	default:
		return "Registration verification code"
	}
}
