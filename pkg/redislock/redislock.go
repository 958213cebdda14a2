package redislock

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumostore/topup/pkg/config"
)

// Locker provides best-effort mutual exclusion across process instances via
// redis SET NX. Callers must still guard correctness with a conditional
// update; the lock only reduces wasted concurrent work.
type Locker struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func New(client goredis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

// NewFromConfig returns a disabled Locker when no redis address is configured.
func NewFromConfig(cfg *config.Config, log *zap.SugaredLogger) *Locker {
	if cfg.Redis.Addr == "" {
		log.Infow("redis lock disabled, no address configured")
		return &Locker{}
	}
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return New(client, cfg.Dispatch.LockTTL)
}

// Enabled reports whether a redis backend is attached.
func (l *Locker) Enabled() bool { return l != nil && l.client != nil }

// Acquire attempts to take the named lock. It returns ok=false when another
// holder owns the lock. A disabled Locker always grants the lock.
func (l *Locker) Acquire(ctx context.Context, key string) (release func(), ok bool, err error) {
	if !l.Enabled() {
		return func() {}, true, nil
	}
	ttl := l.ttl
	if ttl <= 0 {
		ttl = time.Minute
	}
	acquired, err := l.client.SetNX(ctx, key, time.Now().UnixNano(), ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	return func() {
		// Release with a fresh context so the lock is freed even when the
		// caller's context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.client.Del(releaseCtx, key)
	}, true, nil
}

func (l *Locker) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Close()
}

func registerClose(lc fx.Lifecycle, l *Locker) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return l.Close()
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewFromConfig),
	fx.Invoke(registerClose),
)
