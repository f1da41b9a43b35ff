package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// Runner は再集計ジョブの実行インターフェース。
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Scheduler は再集計ジョブの定期実行を管理する。
type Scheduler struct {
	job    Runner
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(job Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		job:    job,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// 起動直後に1回実行し、以降はコンテキストがキャンセルされるまで
// 間隔ごとに実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("再集計スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	if _, err := s.job.Run(ctx); err != nil {
		s.logger.Error("再集計ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("再集計スケジューラを停止しました")
			return
		case <-ticker.C:
			if _, err := s.job.Run(ctx); err != nil {
				s.logger.Error("再集計ジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
