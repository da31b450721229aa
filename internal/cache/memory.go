package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory кэш внутри процесса поверх ttlcache. Чтение не продлевает TTL:
// запись живёт ровно столько, сколько задано при Set.
type Memory struct {
	items *ttlcache.Cache[string, []byte]
}

func NewMemory() *Memory {
	return &Memory{items: ttlcache.New[string, []byte](
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)}
}

// Start запускает фоновую очистку просроченных записей; Stop её останавливает.
// Без Start просроченные записи всё равно не отдаются, но занимают память.
func (m *Memory) Start() { go m.items.Start() }

func (m *Memory) Stop() { m.items.Stop() }

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item := m.items.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return append([]byte(nil), item.Value()...), true, nil
}

// Set хранит копию value; ttl <= 0 значит без срока
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Len число записей, включая просроченные, которые ещё не вычищены
func (m *Memory) Len() int { return m.items.Len() }
