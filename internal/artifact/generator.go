package artifact

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Generator выпускает платёжные артефакты и является единственным их источником.
type Generator struct {
	clk       clock.Clock
	clipboard domain.Clipboard
	logger    *log.Entry

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator создаёт генератор поверх часов и буфера обмена.
func NewGenerator(clk clock.Clock, clipboard domain.Clipboard, logger *log.Entry) *Generator {
	if logger == nil {
		logger = log.WithField("component", "artifact-generator")
	}
	return &Generator{
		clk:       clk,
		clipboard: clipboard,
		logger:    logger,
		rnd:       rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

// IssueBoleto выпускает слип со сроком оплаты через 3 дня и отсчётом 259200 секунд.
// onExpire (опционально) вызывается ровно один раз в момент просрочки.
func (g *Generator) IssueBoleto(onExpire func()) *Boleto {
	now := g.clk.Now()
	b := &Boleto{
		barcode:  g.barcode(),
		issuedAt: now,
		dueDate:  now.Add(BoletoTTLSeconds * time.Second),
	}
	b.state = state{
		clk:       g.clk,
		clipboard: g.clipboard,
		remaining: BoletoTTLSeconds,
		onExpire:  onExpire,
	}
	g.logger.WithFields(log.Fields{
		"method":   domain.MethodBoleto,
		"due_date": b.dueDate.Format(time.RFC3339),
	}).Info("boleto issued")
	return b
}

// IssuePix выпускает код перевода с отсчётом 1800 секунд.
func (g *Generator) IssuePix(onExpire func()) *Pix {
	now := g.clk.Now()
	p := &Pix{
		code:      g.pixCode(),
		issuedAt:  now,
		expiresAt: now.Add(PixTTLSeconds * time.Second),
		newCode:   g.pixCode,
	}
	p.state = state{
		clk:       g.clk,
		clipboard: g.clipboard,
		remaining: PixTTLSeconds,
		onExpire:  onExpire,
	}
	g.logger.WithFields(log.Fields{
		"method":     domain.MethodPix,
		"expires_at": p.expiresAt.Format(time.RFC3339),
	}).Info("pix code issued")
	return p
}

// barcode собирает цифровую строку слипа в привычной группировке 5.5 5.6 5.6 1 14.
func (g *Generator) barcode() string {
	groups := []int{5, 5, 5, 6, 5, 6, 1, 14}
	parts := make([]string, 0, len(groups))
	for _, n := range groups {
		parts = append(parts, g.digits(n))
	}
	return fmt.Sprintf("%s.%s %s.%s %s.%s %s %s",
		parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6], parts[7])
}

// pixCode собирает EMV-подобную строку "copia e cola" с uuid в поле ключа.
func (g *Generator) pixCode() string {
	key := uuid.NewString()
	return "00020126580014BR.GOV.BCB.PIX0136" + key +
		"52040000530398654041.005802BR5925PAYMILLES PAGAMENTOS6009SAO PAULO62070503***6304" +
		strings.ToUpper(g.hex(4))
}

func (g *Generator) digits(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + g.rnd.Intn(10)))
	}
	return b.String()
}

func (g *Generator) hex(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	const alphabet = "0123456789abcdef"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.rnd.Intn(len(alphabet))])
	}
	return b.String()
}
