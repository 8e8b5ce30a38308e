package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// NotificationGate guarantees at most one notification per prayer per day.
type NotificationGate struct {
	Store Store

	mu sync.Mutex
}

// NotificationKey identifies a prayer occurrence: "YYYY-MM-DD-<Prayer>".
func NotificationKey(date string, p Prayer) string {
	return fmt.Sprintf(config.NotificationKeyFmt, date, p)
}

// ShouldFire reports whether a notification for p on date may be emitted now.
// It is true only within config.NotificationWindow after start and only once per
// key; when true the key is persisted before returning. A window missed
// entirely is skipped, never fired late.
func (g *NotificationGate) ShouldFire(ctx context.Context, p Prayer, date string, start, now time.Time) (bool, error) {
	since := now.Sub(start)
	if since < 0 || since >= config.NotificationWindow {
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := NotificationKey(date, p)
	last, err := g.Store.LoadLastFired(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	if last == key {
		return false, nil
	}
	if err := g.Store.SaveLastFired(ctx, key); err != nil {
		return false, fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}

	slog.DebugContext(ctx, config.MsgGateOpened,
		config.LogKeyComponent, config.CompGate,
		config.LogKeyKey, key)
	return true, nil
}
