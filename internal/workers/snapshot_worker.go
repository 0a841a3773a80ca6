package workers

import (
	"context"

	"go.uber.org/zap"

	"github.com/robofi/dabot/internal/dabot"
	"github.com/robofi/dabot/internal/factory"
	"github.com/robofi/dabot/pkg/logger"
)

// SnapshotWorker periodically persists every live bot instance. It is a
// safety net over the per-call state mirror: a mirror save that failed
// transiently gets retried here.
type SnapshotWorker struct {
	manager *factory.Manager
	repo    dabot.Persister
}

// NewSnapshotWorker creates new snapshot worker
func NewSnapshotWorker(manager *factory.Manager, repo dabot.Persister) *SnapshotWorker {
	return &SnapshotWorker{
		manager: manager,
		repo:    repo,
	}
}

// Name returns worker name for logging
func (w *SnapshotWorker) Name() string {
	return "bot_snapshots"
}

// Run persists a snapshot of every deployed bot
func (w *SnapshotWorker) Run(ctx context.Context) error {
	bots := w.manager.Bots()

	saved := 0
	for _, bot := range bots {
		if err := w.repo.SaveSnapshot(ctx, bot.Snapshot()); err != nil {
			logger.Error("failed to snapshot bot",
				zap.Uint64("bot_id", bot.ID()),
				zap.Error(err),
			)
			continue
		}
		saved++
	}

	if saved > 0 {
		logger.Debug("bot snapshots persisted",
			zap.Int("saved", saved),
			zap.Int("total", len(bots)),
		)
	}
	return nil
}
