package domain

import (
	"errors"
	"fmt"
)

// Единая таксономия отказов auth-ядра. Хендлеры маппят эти ошибки
// в HTTP-статусы, сервисный слой их только порождает и оборачивает.
var (
	// ErrNotLoggedIn — заголовок Authorization отсутствует на защищенном роуте.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrSessionExpired — токен не прошел проверку (подпись, срок, формат).
	// Guard намеренно не уточняет причину в ответе клиенту.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrForbidden — аутентифицирован, но прав недостаточно.
	ErrForbidden = errors.New("insufficient permissions")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountFrozen      = errors.New("account is frozen")
	ErrCaptchaExpired     = errors.New("captcha has expired")
	ErrCaptchaMismatch    = errors.New("captcha is incorrect")
	ErrUsernameTaken      = errors.New("username already exists")
)

// PersistenceError — отказ записи в хранилище. Вместо проглатывания в строку
// "fail" ошибка логируется и отдается наверх типизированной.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// DeliveryError — отказ внешней доставки письма. Отличаем от ошибок записи
// в кэш: код уже лежит в Redis, а письмо не ушло.
type DeliveryError struct {
	Address string
	Cause   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery to %s failed: %v", e.Address, e.Cause)
}

func (e *DeliveryError) Unwrap() error { return e.Cause }
