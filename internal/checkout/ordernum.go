package checkout

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// randomOrderNumbers — генератор случайных шестизначных номеров, дополненных нулями.
type randomOrderNumbers struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomOrderNumbers создаёт генератор с заданным зерном.
func NewRandomOrderNumbers(seed int64) domain.OrderNumberGenerator {
	return &randomOrderNumbers{rnd: rand.New(rand.NewSource(seed))}
}

// Next возвращает номер в диапазоне [000000, 999999].
func (g *randomOrderNumbers) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%06d", g.rnd.Intn(1000000))
}
