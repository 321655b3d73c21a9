package devices

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "device:"
	defaultCacheTTL = 5 * time.Minute
)

// Cache keeps device records in Redis for the per-ingest credential lookup.
// It is strictly a read-through accelerator: misses and Redis failures fall
// back to the database.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache. A zero ttl uses the default.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached device, or nil on miss or any Redis error.
func (c *Cache) Get(ctx context.Context, deviceID string) *Device {
	if c == nil || c.client == nil || deviceID == "" {
		return nil
	}
	payload, err := c.client.Get(ctx, cacheKeyPrefix+deviceID).Bytes()
	if err != nil {
		return nil
	}
	var device Device
	if err := json.Unmarshal(payload, &device); err != nil {
		return nil
	}
	return &device
}

// Put stores the device with the configured TTL.
func (c *Cache) Put(ctx context.Context, device *Device) error {
	if c == nil || c.client == nil {
		return nil
	}
	if device == nil || device.DeviceID == "" {
		return errors.New("devices cache: nil device")
	}
	payload, err := json.Marshal(device)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+device.DeviceID, payload, c.ttl).Err()
}
