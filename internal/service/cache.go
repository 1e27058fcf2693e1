// cache.go — LRU-кэш хэшей файлов документов с TTL.
// Хэш файла документа после установки не меняется, поэтому
// кэш не требует инвалидации при изменении документа.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odie_document_cache_hits_total",
		Help: "Общее количество попаданий в кэш хэшей файлов документов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odie_document_cache_misses_total",
		Help: "Общее количество промахов кэша хэшей файлов документов.",
	})
)

// DocumentCache — кэш document id → SHA-256 файла.
type DocumentCache struct {
	cache *expirable.LRU[int64, string]
}

// NewDocumentCache создаёт кэш с указанным максимальным размером и TTL.
func NewDocumentCache(maxSize int, ttl time.Duration) *DocumentCache {
	return &DocumentCache{cache: expirable.NewLRU[int64, string](maxSize, nil, ttl)}
}

// Get возвращает хэш файла документа.
// Обновляет Prometheus-метрики hit/miss.
func (c *DocumentCache) Get(documentID int64) (string, bool) {
	digest, ok := c.cache.Get(documentID)
	if ok {
		cacheHitsTotal.Inc()
		return digest, true
	}
	cacheMissesTotal.Inc()
	return "", false
}

// Set запоминает хэш файла документа.
func (c *DocumentCache) Set(documentID int64, digest string) {
	c.cache.Add(documentID, digest)
}

// Len возвращает количество записей в кэше.
func (c *DocumentCache) Len() int {
	return c.cache.Len()
}
