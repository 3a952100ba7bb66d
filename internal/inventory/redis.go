package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

const (
	fieldAvailable = "available"

	statusMissing      = -1
	statusInsufficient = -2
)

// reserveScript returns the remaining stock, or a negative status.
var reserveScript = redis.NewScript(`
local avail = redis.call('HGET', KEYS[1], 'available')
if not avail then return -1 end
avail = tonumber(avail)
local qty = tonumber(ARGV[1])
if avail < qty then return -2 end
return redis.call('HINCRBY', KEYS[1], 'available', -qty)
`)

// releaseScript returns {available, clamped, capacity}.
var releaseScript = redis.NewScript(`
local avail = redis.call('HGET', KEYS[1], 'available')
if not avail then return {-1, 0, 0} end
local cap = tonumber(redis.call('HGET', KEYS[1], 'capacity'))
local nextAvail = tonumber(avail) + tonumber(ARGV[1])
local clamped = 0
if nextAvail > cap then
  nextAvail = cap
  clamped = 1
end
redis.call('HSET', KEYS[1], 'available', nextAvail)
return {nextAvail, clamped, cap}
`)

var seedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], 'available', ARGV[1], 'capacity', ARGV[2])
return 1
`)

// RedisLedger stores one hash per cell. Reserve and release run as Lua scripts so the
// check and the write are a single atomic step on the server.
type RedisLedger struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	return &RedisLedger{client: client, prefix: prefix}
}

func (l *RedisLedger) key(productID, variant string) string {
	return fmt.Sprintf("%s:stock:%s:%s", l.prefix, productID, variant)
}

func (l *RedisLedger) Reserve(ctx context.Context, productID, variant string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	res, err := reserveScript.Run(ctx, l.client, []string{l.key(productID, variant)}, qty).Int64()
	if err != nil {
		return domain.Unavailable("reserve stock", err)
	}
	switch res {
	case statusMissing:
		return domain.ErrProductUnavailable
	case statusInsufficient:
		return domain.ErrInsufficientStock
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, productID, variant string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	res, err := releaseScript.Run(ctx, l.client, []string{l.key(productID, variant)}, qty).Int64Slice()
	if err != nil {
		return domain.Unavailable("release stock", err)
	}
	if len(res) != 3 {
		return domain.Unavailable("release stock", fmt.Errorf("unexpected script reply %v", res))
	}
	if res[0] == statusMissing {
		return domain.ErrProductUnavailable
	}
	if res[1] == 1 {
		warnClamp(ctx, productID, variant, qty, int(res[2]))
	}
	return nil
}

func (l *RedisLedger) CurrentStock(ctx context.Context, productID, variant string) (int, error) {
	val, err := l.client.HGet(ctx, l.key(productID, variant), fieldAvailable).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrProductUnavailable
		}
		return 0, domain.Unavailable("read stock", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt stock value %q: %w", val, err)
	}
	return n, nil
}

func (l *RedisLedger) Seed(ctx context.Context, productID, variant string, available, capacity int) error {
	err := seedScript.Run(ctx, l.client, []string{l.key(productID, variant)}, available, capacity).Err()
	if err != nil {
		return domain.Unavailable("seed stock", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (l *RedisLedger) Close() error {
	return nil
}
