package locksvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/evaluation"
)

const keyPrefix = "ies:formlock:"

var (
	// refreshes the lease of its holder, or takes a free lock
	acquireScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur == false or cur == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

	// deletes the lock only if it is held by ARGV[1]
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
)

// RedisLocker is an evaluation.FormLocker shared by all the app instances.
type RedisLocker struct {
	client *redis.Client
}

var _ evaluation.FormLocker = (*RedisLocker)(nil)

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func lockKey(formID string) string {
	return keyPrefix + formID
}

func (l *RedisLocker) AcquireLock(ctx context.Context, formID, holderID string, ttl time.Duration) (evaluation.FormLock, error) {
	key := lockKey(formID)
	ok, err := acquireScript.Run(ctx, l.client, []string{key}, holderID, ttl.Milliseconds()).Int()
	if err != nil {
		return evaluation.FormLock{}, errors.Wrap(err, "acquiring form lock")
	}
	lock, err := l.GetLock(ctx, formID)
	if err != nil {
		return evaluation.FormLock{}, err
	}
	if ok == 0 {
		return lock, evaluation.ErrFormLocked
	}
	return lock, nil
}

func (l *RedisLocker) ReleaseLock(ctx context.Context, formID, holderID string) error {
	err := releaseScript.Run(ctx, l.client, []string{lockKey(formID)}, holderID).Err()
	return errors.Wrap(err, "releasing form lock")
}

func (l *RedisLocker) GetLock(ctx context.Context, formID string) (evaluation.FormLock, error) {
	key := lockKey(formID)
	pipe := l.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return evaluation.FormLock{}, errors.Wrap(err, "getting form lock")
	}

	holderID, err := getCmd.Result()
	if err == redis.Nil {
		return evaluation.FormLock{FormID: formID}, nil
	} else if err != nil {
		return evaluation.FormLock{}, errors.Wrap(err, "getting form lock holder")
	}
	lock := evaluation.FormLock{FormID: formID, IsLocked: true, HolderID: holderID}
	if ttl := ttlCmd.Val(); ttl > 0 {
		lock.ExpiresAt = time.Now().Add(ttl).UTC()
	}
	return lock, nil
}
