package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/dense-analysis/tradewarp/internal/env"
	"github.com/go-redis/redis/v8"
)

// Connect builds the quote Source from the project environment variables.
//
// QUOTE_API_KEY is required. When recorder is not nil, every quote fetched
// from the API is passed to it. Quotes are cached in Redis when REDIS_ADDR
// is set, and cache hits are not recorded again.
func Connect(recorder Recorder) (Source, error) {
	apiKey := env.Get("QUOTE_API_KEY", "")

	if apiKey == "" {
		return nil, fmt.Errorf("QUOTE_API_KEY not set")
	}

	httpSource := NewHTTPSource(apiKey)
	httpSource.URL = env.Get("QUOTE_URL", DefaultURL)
	httpSource.SymbolPath = env.Get("QUOTE_SYMBOL_PATH", DefaultSymbolPath)
	httpSource.PricePath = env.Get("QUOTE_PRICE_PATH", DefaultPricePath)
	httpSource.NamePath = env.Get("QUOTE_NAME_PATH", "")

	var source Source = httpSource

	if recorder != nil {
		source = NewRecording(source, recorder)
	}

	redisAddress := env.Get("REDIS_ADDR", "")

	if redisAddress == "" {
		return source, nil
	}

	ttl, err := time.ParseDuration(env.Get("QUOTE_CACHE_TTL", "1m"))

	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_CACHE_TTL: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Password: env.Get("REDIS_PASSWORD", ""),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()

		return nil, fmt.Errorf("redis error: %w", err)
	}

	return NewCache(source, client, ttl), nil
}
