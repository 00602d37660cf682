// Package runlock keeps two runs of the same job from overlapping.
package runlock // import "streamlance.app/internal/runlock"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"streamlance.app/internal/logging"
)

const keyPrefix = "streamlance:runlock:"

// ErrLocked is returned when the job is already running somewhere else.
var ErrLocked = errors.New("runlock: job is already running")

type Locker interface {
	// Do calls fn if the lock of job was acquired and releases the lock after
	// that. It returns ErrLocked without calling fn if the job is locked.
	Do(ctx context.Context, job string, fn func(ctx context.Context) error,
	) error
}

// Connect parses redisURL and verifies connectivity.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("runlock: parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("runlock: redis ping: %w", err)
	}
	return client, nil
}

// NewRedis returns a Locker shared by every process connected to the same
// redis. A lock expires after ttl if its owner died.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ Locker = (*Redis)(nil)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

func (self *Redis) Do(ctx context.Context, job string,
	fn func(ctx context.Context) error,
) error {
	key, token := keyPrefix+job, uuid.NewString()
	ok, err := self.client.SetNX(ctx, key, token, self.ttl).Result()
	if err != nil {
		return fmt.Errorf("runlock: acquire %q: %w", job, err)
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, job)
	}

	defer func() {
		// Release even if ctx was canceled while fn was running.
		ctx := context.WithoutCancel(ctx)
		n, err := releaseScript.Run(ctx, self.client, []string{key}, token).Int()
		log := logging.FromContext(ctx).With(slog.String("lock", key))
		switch {
		case err != nil:
			log.Error("Unable release run lock", slog.Any("error", err))
		case n == 0:
			log.Warn("Run lock expired before the job completed",
				slog.Duration("ttl", self.ttl))
		}
	}()
	return fn(ctx)
}

// NewLocal returns a Locker, which guards jobs inside this process only.
func NewLocal() *Local {
	return &Local{jobs: make(map[string]*sync.Mutex)}
}

type Local struct {
	mu   sync.Mutex
	jobs map[string]*sync.Mutex
}

var _ Locker = (*Local)(nil)

func (self *Local) Do(ctx context.Context, job string,
	fn func(ctx context.Context) error,
) error {
	m := self.jobMutex(job)
	if !m.TryLock() {
		return fmt.Errorf("%w: %s", ErrLocked, job)
	}
	defer m.Unlock()
	return fn(ctx)
}

func (self *Local) jobMutex(job string) *sync.Mutex {
	self.mu.Lock()
	defer self.mu.Unlock()
	m, ok := self.jobs[job]
	if !ok {
		m = new(sync.Mutex)
		self.jobs[job] = m
	}
	return m
}
