package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// onlineTTL bounds how stale a presence key can get if the process dies
// without cleaning up.
const onlineTTL = 2 * time.Minute

// Cache mirrors the gateway's in-memory online state into Redis so that
// other processes (and a future second gateway node) can answer "is this
// user online" without a database round trip. Keys expire on their own;
// the gateway refreshes them while a user stays connected.
type Cache struct {
	rdb *redis.Client
}

func NewCache(addr string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	return &Cache{rdb: rdb}, nil
}

func onlineKey(accountId int) string {
	return "presence:" + strconv.Itoa(accountId)
}

func (c *Cache) SetOnline(ctx context.Context, accountId int) error {
	return c.rdb.Set(ctx, onlineKey(accountId), "1", onlineTTL).Err()
}

func (c *Cache) SetOffline(ctx context.Context, accountId int) error {
	return c.rdb.Del(ctx, onlineKey(accountId)).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
