package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"contest-reward-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if this holder still owns it, so an
// expired-and-reacquired lock is never released by the old holder.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// DrawLocker serializes draws per contest across instances with a SET NX
// lease. The TTL bounds how long a crashed holder can block later draws.
type DrawLocker struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDrawLocker(client *redis.Client, ttl time.Duration) *DrawLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DrawLocker{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (l *DrawLocker) Acquire(ctx context.Context, contestID string) (func(), error) {
	key := l.key(contestID)
	token := l.token()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrConcurrentDraw
	}

	release := func() {
		// best-effort; the TTL reclaims the lock if this fails
		_ = l.client.Eval(context.Background(), releaseScript, []string{key}, token).Err()
	}
	return release, nil
}

// token must be safe for concurrent Acquire calls; rand.Rand is not.
func (l *DrawLocker) token() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strconv.FormatInt(l.rnd.Int63(), 16)
}

func (l *DrawLocker) key(contestID string) string {
	return "contest:" + contestID + ":drawlock"
}
