package artifact

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Pix — код мгновенного перевода, живущий 30 минут. Просрочка не бросает заказ:
// Regenerate выпускает свежий код и перезапускает отсчёт.
type Pix struct {
	state
	code      string
	issuedAt  time.Time
	expiresAt time.Time
	newCode   func() string
}

// Code возвращает текущий код перевода.
func (p *Pix) Code() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

// ExpiresAt возвращает момент истечения текущего кода.
func (p *Pix) ExpiresAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expiresAt
}

// IssuedAt возвращает момент выпуска текущего кода.
func (p *Pix) IssuedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issuedAt
}

// Tick уменьшает отсчёт на секунду; true — код истёк именно сейчас.
func (p *Pix) Tick() bool { return p.tick() }

// Copy пишет код в буфер обмена с трёхсекундным подтверждением.
func (p *Pix) Copy() error { return p.copyText(p.Code()) }

// MarkPaid подтверждает оплату; после истечения возвращает ErrPixExpired.
func (p *Pix) MarkPaid() error { return p.markPaid(domain.ErrPixExpired) }

// Regenerate выпускает свежий код, сбрасывает отсчёт к 30 минутам и снимает флаг просрочки.
func (p *Pix) Regenerate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.ErrArtifactClosed
	}
	if p.paid {
		return nil
	}
	now := p.clk.Now()
	p.code = p.newCode()
	p.issuedAt = now
	p.expiresAt = now.Add(PixTTLSeconds * time.Second)
	p.remaining = PixTTLSeconds
	p.expired = false
	return nil
}

// Close освобождает таймеры артефакта; обязателен на всех путях выхода.
func (p *Pix) Close() { p.close() }

// Run ведёт отсчёт до подтверждения или отмены ctx. Истечение не завершает
// цикл: после Regenerate отсчёт продолжается тем же тикером.
func (p *Pix) Run(ctx context.Context) {
	p.run(ctx, func() bool { return p.Paid() })
}
