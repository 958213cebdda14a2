package transaction

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumostore/topup/pkg/config"
)

// recoveryLoop periodically resolves processing transactions abandoned by a
// crash, so no purchase is ever silently stuck.
type recoveryLoop struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	mgr    Manager
	cancel context.CancelFunc
	done   chan struct{}
}

func newRecoveryLoop(cfg *config.Config, log *zap.SugaredLogger, mgr Manager) *recoveryLoop {
	return &recoveryLoop{cfg: cfg, log: log, mgr: mgr, done: make(chan struct{})}
}

func (r *recoveryLoop) start() {
	interval := r.cfg.Recovery.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.mgr.RecoverStale(ctx); err != nil {
					r.log.Errorw("stale transaction sweep failed", "err", err)
				}
			}
		}
	}()
}

func (r *recoveryLoop) stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func registerRecovery(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger, mgr Manager) {
	loop := newRecoveryLoop(cfg, log, mgr)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loop.start()
			return nil
		},
		OnStop: loop.stop,
	})
}
