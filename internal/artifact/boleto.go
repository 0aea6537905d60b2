package artifact

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Boleto — банковский слип: штрихкод и срок оплаты через 3 дня.
// Просрочка фатальна: заказ бросается, пути воскрешения нет.
type Boleto struct {
	state
	barcode  string
	issuedAt time.Time
	dueDate  time.Time
}

// Barcode возвращает цифровую строку слипа.
func (b *Boleto) Barcode() string { return b.barcode }

// DueDate возвращает срок оплаты (issueTime + 3 дня).
func (b *Boleto) DueDate() time.Time { return b.dueDate }

// IssuedAt возвращает момент выпуска.
func (b *Boleto) IssuedAt() time.Time { return b.issuedAt }

// Tick уменьшает отсчёт на секунду; true — слип просрочился именно сейчас.
func (b *Boleto) Tick() bool { return b.tick() }

// Copy пишет штрихкод в буфер обмена с трёхсекундным подтверждением.
func (b *Boleto) Copy() error { return b.copyText(b.barcode) }

// MarkPaid подтверждает оплату; после просрочки возвращает ErrBoletoExpired.
func (b *Boleto) MarkPaid() error { return b.markPaid(domain.ErrBoletoExpired) }

// Close освобождает таймеры артефакта; обязателен на всех путях выхода.
func (b *Boleto) Close() { b.close() }

// Run ведёт отсчёт до просрочки, подтверждения или отмены ctx.
func (b *Boleto) Run(ctx context.Context) {
	b.run(ctx, func() bool { return b.Expired() || b.Paid() })
}
