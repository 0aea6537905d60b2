// Пакет clipboard хранит последний скопированный текст артефакта.
// Системного буфера обмена на сервере нет, поэтому реализация in-memory:
// клиент забирает текст из ответа, сервер помнит его для диагностики и тестов.
package clipboard

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Buffer — потокобезопасный держатель последнего скопированного текста.
type Buffer struct {
	mu   sync.Mutex
	last string
}

// NewBuffer создаёт пустой буфер.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write запоминает text как последний скопированный.
func (b *Buffer) Write(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = text
	return nil
}

// Last возвращает последний скопированный текст.
func (b *Buffer) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

var _ domain.Clipboard = (*Buffer)(nil)
