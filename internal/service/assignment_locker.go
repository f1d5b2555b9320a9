package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bigfive-core/internal/domain"
)

// AssignmentLocker serializa submit y repair sobre un mismo assignment.
type AssignmentLocker interface {
	Lock(ctx context.Context, assignmentID string) (func(), error)
}

type memoryAssignmentLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryAssignmentLocker sirve para una sola instancia. wait acota la espera (0 = sin limite propio).
func NewMemoryAssignmentLocker(wait time.Duration) AssignmentLocker {
	return &memoryAssignmentLocker{locks: make(map[string]*keyLock), wait: wait}
}

func (l *memoryAssignmentLocker) Lock(ctx context.Context, assignmentID string) (func(), error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	l.mu.Lock()
	kl, ok := l.locks[assignmentID]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[assignmentID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(assignmentID, kl)
		return nil, fmt.Errorf("%w: %s", domain.ErrAssignmentBusy, assignmentID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(assignmentID, kl)
		})
	}, nil
}

func (l *memoryAssignmentLocker) release(id string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, id)
	}
}

// solo borra si el token sigue siendo el nuestro.
const redisUnlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type redisLockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisAssignmentLocker struct {
	client redisLockClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	prefix string
}

// NewRedisAssignmentLocker usa SET NX PX con un token por duenio. Sirve con varias instancias.
func NewRedisAssignmentLocker(client *redis.Client, ttl, wait time.Duration) AssignmentLocker {
	if client == nil {
		return nil
	}
	return newRedisAssignmentLocker(client, ttl, wait)
}

func newRedisAssignmentLocker(client redisLockClient, ttl, wait time.Duration) *redisAssignmentLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &redisAssignmentLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
		prefix: "bigfive:lock:assignment:",
	}
}

func (l *redisAssignmentLocker) Lock(ctx context.Context, assignmentID string) (func(), error) {
	id := strings.TrimSpace(assignmentID)
	if id == "" {
		return nil, fmt.Errorf("%w: assignment id is required", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	key := l.prefix + id
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", id, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s", domain.ErrAssignmentBusy, id)
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, rcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer rcancel()
			// si falla, el TTL libera la clave.
			_ = l.client.Eval(rctx, redisUnlockScript, []string{key}, token).Err()
		})
	}, nil
}
