package config

// Redis backs exactly two optional concerns in this service: the hold
// mirror (hold:<event>:<seat> keys with a TTL matching the hold's
// remaining lifetime) and the token bucket on the hold endpoint.  Both
// are best-effort, so the client is tuned to fail fast: short dial and
// per-command timeouts keep a sick Redis from slowing the booking path,
// and a nil client (returned when the ping fails at startup) disables
// both concerns outright.

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisAddr resolves the server address: REDIS_ADDR wins, then
// REDIS_HOST + REDIS_PORT, then localhost.
func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	host := envStr("REDIS_HOST", "localhost")
	port := envStr("REDIS_PORT", "6379")
	return net.JoinHostPort(host, port)
}

// NewRedisClient builds the client from REDIS_ADDR / REDIS_HOST /
// REDIS_PORT, REDIS_PASSWORD, REDIS_DB, REDIS_POOL_SIZE and REDIS_TLS.
// Returns nil when the server cannot be reached; callers degrade to
// engine-only operation.
func NewRedisClient() *redis.Client {
	opts := &redis.Options{
		Addr:         redisAddr(),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           envInt("REDIS_DB", 0),
		PoolSize:     envInt("REDIS_POOL_SIZE", 16),
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
