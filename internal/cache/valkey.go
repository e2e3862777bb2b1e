package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

type ValkeyClient struct {
	client *redis.Client
}

func NewValkeyClient() (*ValkeyClient, error) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	password := os.Getenv("VALKEY_PASSWORD")

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{client: rdb}, nil
}

// AcquireResendGuard takes the cooldown slot for a registration.
// Returns false while a previous resend holds the slot, absorbing
// duplicate admin triggers without a formal lock.
func (v *ValkeyClient) AcquireResendGuard(ctx context.Context, registrationID int64, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("resend:guard:%d", registrationID)
	ok, err := v.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("resend guard error: %w", err)
	}
	return ok, nil
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
