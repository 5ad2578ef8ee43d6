package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/meetroom-backend/internal/domain"
	"github.com/xela07ax/meetroom-backend/internal/infra"
	"go.uber.org/zap"
)

// Mailer — внешний коллаборатор доставки. Ядро его не ретраит:
// упавшая доставка отдается клиенту как DeliveryError, и код
// приходится запрашивать заново.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer шлет через внешний релей. Доставка обернута в Circuit Breaker:
// при мертвом релее отказываем быстро, не держа соединения.
type SMTPMailer struct {
	cfg    infra.SMTPConfig
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func NewSMTPMailer(cfg infra.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp-relay",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &SMTPMailer{
		cfg:    cfg,
		cb:     cb,
		logger: logger.Named("mailer"),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return &domain.DeliveryError{Address: to, Cause: err}
	}

	_, err := m.cb.Execute(func() (interface{}, error) {
		return nil, m.send(to, subject, htmlBody)
	})
	if err != nil {
		m.logger.Error("mail delivery failed", zap.String("to", to), zap.Error(err))
		return &domain.DeliveryError{Address: to, Cause: err}
	}
	return nil
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String()))
}
