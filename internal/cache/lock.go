package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLocked is returned by TryLock when another holder owns the key.
	ErrLocked = errors.New("lock is already held")
	// ErrLockLost is returned by Extend when the key expired or changed owner.
	ErrLockLost = errors.New("lock is no longer held")
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// extendScript resets the TTL only while the key still holds our token.
const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`

// Lock is a held SET NX lease.
type Lock struct {
	r     *Redis
	key   string
	token string
	ttl   time.Duration
}

// TryLock takes key with SET NX and a TTL. ErrLocked means someone else has it.
// The holder must call Unlock when done and Extend before ttl runs out.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{r: r, key: key, token: token, ttl: ttl}, nil
}

// Extend pushes the expiry back to a full ttl from now.
func (l *Lock) Extend(ctx context.Context) error {
	n, err := l.r.client.Eval(ctx, extendScript, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("cache extend %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// Unlock releases the key if it is still ours.
func (l *Lock) Unlock() {
	// Background context: release even when the run was cancelled.
	_ = l.r.client.Eval(context.Background(), releaseScript, []string{l.key}, l.token).Err()
}
