// Пакет artifact владеет жизненным циклом платёжных артефактов: выпуск,
// посекундный обратный отсчёт, просрочка, перегенерация (Pix) и подтверждение
// оплаты. Единственный мутатор состояния отсчёта — сам артефакт.
package artifact

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	// BoletoTTLSeconds — срок оплаты boleto: 3 дня в секундах.
	BoletoTTLSeconds = 3 * 24 * 60 * 60
	// PixTTLSeconds — время жизни кода Pix: 30 минут в секундах.
	PixTTLSeconds = 30 * 60
	// copyAckTTL — время показа подтверждения "скопировано".
	copyAckTTL = 3 * time.Second
)

// state — общая часть boleto и pix: отсчёт, флаги и подтверждение копирования.
type state struct {
	mu        sync.Mutex
	clk       clock.Clock
	clipboard domain.Clipboard

	remaining int
	expired   bool
	paid      bool
	closed    bool

	copied    bool
	copyTimer clock.Timer

	onExpire func()
}

// Remaining возвращает оставшиеся секунды отсчёта.
func (s *state) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Expired сообщает, просрочен ли артефакт.
func (s *state) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Paid сообщает, было ли подтверждение оплаты.
func (s *state) Paid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paid
}

// Copied возвращает транзиентный флаг "скопировано".
func (s *state) Copied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copied
}

// tick уменьшает отсчёт на секунду; возвращает true, когда именно этот тик
// довёл отсчёт до нуля. Отсчёт монотонен: ниже нуля не опускается.
func (s *state) tick() bool {
	s.mu.Lock()
	if s.closed || s.expired || s.paid || s.remaining <= 0 {
		s.mu.Unlock()
		return false
	}
	s.remaining--
	justExpired := s.remaining == 0
	if justExpired {
		s.expired = true
	}
	hook := s.onExpire
	s.mu.Unlock()

	if justExpired && hook != nil {
		hook()
	}
	return justExpired
}

// copyText пишет text в буфер обмена и поднимает флаг подтверждения на 3 секунды.
// Повторное копирование перезапускает таймер сброса.
func (s *state) copyText(text string) error {
	if err := s.clipboard.Write(text); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.copyTimer != nil {
		s.copyTimer.Stop()
	}
	s.copied = true
	s.copyTimer = s.clk.AfterFunc(copyAckTTL, func() {
		s.mu.Lock()
		s.copied = false
		s.mu.Unlock()
	})
	return nil
}

// markPaid подтверждает оплату, если артефакт жив; expiredErr — метод-специфичная ошибка.
func (s *state) markPaid(expiredErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrArtifactClosed
	}
	if s.expired {
		return expiredErr
	}
	s.paid = true
	return nil
}

// close гасит таймер подтверждения и помечает артефакт закрытым.
// Вызывается на всех путях выхода из состояния ожидания оплаты.
func (s *state) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.copyTimer != nil {
		s.copyTimer.Stop()
		s.copyTimer = nil
	}
	s.copied = false
}

// run крутит посекундный тикер до отмены ctx или условия done.
func (s *state) run(ctx context.Context, done func() bool) {
	ticker := s.clk.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.tick()
			if done() {
				return
			}
		}
	}
}
