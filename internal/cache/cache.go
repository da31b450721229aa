// Package cache ключ-значение перед дорогими запросами.
// Значения непрозрачные байты, сериализация на вызывающей стороне.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type Cache interface {
	// Get возвращает ok=false при промахе и после истечения TTL
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fingerprint SHA-256 от "version:queryType:p1:...:pn".
// Параметры должны быть уже канонизированы. Смена version делает все прежние
// ключи недостижимыми, не трогая само хранилище.
func Fingerprint(version, queryType string, params ...string) string {
	parts := make([]string, 0, len(params)+2)
	parts = append(parts, version, queryType)
	parts = append(parts, params...)
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}
