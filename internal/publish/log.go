package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// LogRenderer is the headless render surface: each View becomes a log record.
type LogRenderer struct {
	Logger *slog.Logger
	now    func() time.Time
}

var _ engine.Renderer = (*LogRenderer)(nil)

func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRenderer{Logger: logger, now: time.Now}
}

func (l *LogRenderer) Render(ctx context.Context, v engine.View) error {
	l.Logger.InfoContext(ctx, config.MsgRender,
		config.LogKeyComponent, config.CompPublish,
		config.LogKeyOutcome, v.Outcome.String(),
		config.LogKeyPrayer, v.Current,
		config.LogKeyNext, v.Next,
		config.LogKeyCountdown, v.CountdownAt(l.now()),
		config.LogKeyDate, v.Footer,
	)
	return nil
}

// LogNotifier writes prayer start notifications to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ engine.Notifier = (*LogNotifier)(nil)

func (l *LogNotifier) Notify(ctx context.Context, p engine.Prayer) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, config.MsgNotifyFired,
		config.LogKeyComponent, config.CompPublish,
		config.LogKeyPrayer, p.String(),
	)
	return nil
}
