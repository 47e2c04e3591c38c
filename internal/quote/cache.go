package quote

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/go-redis/redis/v8"
)

// Cache is a Source which keeps recent quotes in Redis.
//
// Cache failures are logged and fall through to the wrapped Source.
type Cache struct {
	source Source
	client *redis.Client
	ttl    time.Duration
}

func NewCache(source Source, client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{source, client, ttl}
}

func cacheKey(symbol string) string {
	return "quote:" + NormalizeSymbol(symbol) + ":price"
}

func (cache *Cache) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	key := cacheKey(symbol)
	cached, err := cache.client.Get(ctx, key).Bytes()

	if err == nil {
		var quote model.Quote

		decodeErr := json.Unmarshal(cached, &quote)

		if decodeErr == nil {
			return quote, nil
		}

		log.Printf("quote cache decode error for %s: %s\n", key, decodeErr)
	} else if err != redis.Nil {
		log.Printf("quote cache read error for %s: %s\n", key, err)
	}

	quote, err := cache.source.Lookup(ctx, symbol)

	if err != nil {
		return quote, err
	}

	content, err := json.Marshal(quote)

	if err != nil {
		return quote, err
	}

	if err := cache.client.Set(ctx, key, content, cache.ttl).Err(); err != nil {
		log.Printf("quote cache write error for %s: %s\n", key, err)
	}

	return quote, nil
}
