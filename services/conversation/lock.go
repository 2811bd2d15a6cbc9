package conversation

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/Achutaiscool/Twenty44-WA-bot/utils"
)

// Locker serializes units of work for the same identity. Units for
// different identities run in parallel; units for the same identity must
// not interleave across the session's load-decide-persist span.
type Locker interface {
	// Acquire blocks briefly for the identity's lock and returns a release
	// function, or ErrBusy when the lock cannot be obtained in time.
	Acquire(identity string) (func(), error)
}

// RedisLocker implements Locker with a Redis SET NX PX advisory lock, so
// the serialization holds across multiple bot instances.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{Client: client, TTL: utils.IdentityLockTTL}
}

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(identity string) (func(), error) {
	key := utils.IdentityLockPrefix + identity
	token := uuid.New().String()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const attempts = 10
	for i := 0; i < attempts; i++ {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer rcancel()
				releaseScript.Run(rctx, l.Client, []string{key}, token)
			}, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, ErrBusy
}
