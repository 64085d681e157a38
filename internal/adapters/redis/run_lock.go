package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/internal/adapters/config"
	"github.com/selivandex/etf-signals/pkg/logger"
)

const runLockName = "etl:run:lock"

// RunLock guards against overlapping pipeline runs when the batch is
// scheduled from more than one place. Uses the Redlock algorithm so a
// crashed run releases the lock by TTL.
type RunLock struct {
	lockManager *redlock.RedLock
	ttl         time.Duration
	locked      bool
}

// NewRunLock creates the distributed run lock
func NewRunLock(ctx context.Context, cfg *config.RedisConfig) (*RunLock, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("at least one redis address is required")
	}

	servers := make([]string, len(cfg.Addrs))
	for i, addr := range cfg.Addrs {
		servers[i] = "tcp://" + addr
	}

	lockManager, err := redlock.NewRedLock(ctx, servers)
	if err != nil {
		return nil, fmt.Errorf("failed to create redlock manager: %w", err)
	}

	return &RunLock{lockManager: lockManager, ttl: cfg.LockTTL}, nil
}

// TryAcquire attempts to take the run lock. Returns false when another run
// already holds it.
func (l *RunLock) TryAcquire(ctx context.Context) (bool, error) {
	expiry, err := l.lockManager.Lock(ctx, runLockName, l.ttl)
	if err != nil {
		logger.Debug("run lock already held", zap.Error(err))
		return false, nil
	}
	if expiry <= 0 {
		return false, fmt.Errorf("failed to acquire run lock: invalid expiry %v", expiry)
	}

	l.locked = true
	logger.Info("run lock acquired",
		zap.Duration("ttl", l.ttl),
		zap.Duration("expiry", expiry),
	)
	return true, nil
}

// Release releases the run lock. An already-expired lock is not an error.
func (l *RunLock) Release(ctx context.Context) error {
	if !l.locked {
		return nil
	}

	if err := l.lockManager.UnLock(ctx, runLockName); err != nil {
		logger.Warn("failed to release run lock (may have already expired)", zap.Error(err))
	} else {
		logger.Info("run lock released")
	}

	l.locked = false
	return nil
}
