// Package counter は非正規化カウンターの維持ロジックを提供する。
//
// 子エンティティ（ニュース、ステーション、フォローエッジ）の作成で親カウンターを+1、
// 削除で-1する。減算は常に0でクランプされる。親ドキュメントが存在しない場合は
// 警告ログのみで処理を続行する。バックグラウンドトリガーであり、呼び出し元の
// 書き込みを中断させてはならないため、呼び出し元にエラーを返さない。
package counter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/pocketnewz/internal/repository"
)

// Next はカウンターのクランプ則を適用した次の値を返す。
// 結果は開始値にかかわらず0以上になる。
func Next(current, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}

// StatsAdjuster はnewzer_statsカウンターへのアトミックな増減インターフェース。
// repository.StatsRepositoryの部分集合として定義する。
type StatsAdjuster interface {
	AdjustCount(ctx context.Context, ownerID string, field repository.CounterField, delta int) (bool, error)
}

// StationRefAdjuster はstation_refsカウンターへのアトミックな増減インターフェース。
type StationRefAdjuster interface {
	AdjustRefCount(ctx context.Context, stationID string, field repository.CounterField, delta int) (bool, error)
}

// Collector はカウンター操作のメトリクス収集インターフェース。
type Collector interface {
	RecordCounterAdjustment(field string, delta int)
	RecordFanOutFailure()
}

// Service はカウンター維持のサービス層。
type Service struct {
	stats    StatsAdjuster
	stations StationRefAdjuster
	logger   *slog.Logger
	metrics  Collector
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(stats StatsAdjuster, stations StationRefAdjuster, logger *slog.Logger, metrics Collector) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		stats:    stats,
		stations: stations,
		logger:   logger,
		metrics:  metrics,
	}
}

// OnChildCreated は子エンティティ作成時に親カウンターを+1する。
// 親ドキュメントが存在しない場合は警告ログのみで正常終了する。
func (s *Service) OnChildCreated(ctx context.Context, ownerID string, field repository.CounterField) {
	s.adjustStats(ctx, ownerID, field, 1)
}

// OnChildDeleted は子エンティティ削除時に親カウンターを-1する。
// 減算は0でクランプされ、負の値にはならない。
func (s *Service) OnChildDeleted(ctx context.Context, ownerID string, field repository.CounterField) {
	s.adjustStats(ctx, ownerID, field, -1)
}

func (s *Service) adjustStats(ctx context.Context, ownerID string, field repository.CounterField, delta int) {
	found, err := s.stats.AdjustCount(ctx, ownerID, field, delta)
	if err != nil {
		s.logger.Error("カウンターの更新に失敗しました",
			slog.String("owner_id", ownerID),
			slog.String("field", string(field)),
			slog.Int("delta", delta),
			slog.String("error", err.Error()),
		)
		return
	}
	if !found {
		s.logger.Warn("親カウンタードキュメントが存在しないため更新をスキップしました",
			slog.String("owner_id", ownerID),
			slog.String("field", string(field)),
			slog.Int("delta", delta),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordCounterAdjustment(string(field), delta)
	}
}

// FanOutStationCounts はニュースが属する各ステーションのカウンターを独立に増減する。
//
// ステーション群への適用はグループとしてアトミックではない。一部のステーションだけ
// 更新されて残りが失敗する部分適用は許容される障害モードであり、ロールバックしない。
// 各タスクの完了はWaitGroupで待ち合わせ、失敗はすべて収集して呼び出し元に返す。
func (s *Service) FanOutStationCounts(ctx context.Context, stationIDs []string, field repository.CounterField, delta int) []error {
	if len(stationIDs) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(stationIDs))

	for _, stationID := range stationIDs {
		wg.Add(1)
		go func(stationID string) {
			defer wg.Done()
			found, err := s.stations.AdjustRefCount(ctx, stationID, field, delta)
			if err != nil {
				errCh <- err
				return
			}
			if !found {
				s.logger.Warn("ステーション参照が存在しないため更新をスキップしました",
					slog.String("station_id", stationID),
					slog.String("field", string(field)),
					slog.Int("delta", delta),
				)
				return
			}
			if s.metrics != nil {
				s.metrics.RecordCounterAdjustment(string(field), delta)
			}
		}(stationID)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		s.logger.Error("ステーションカウンターの一部更新に失敗しました",
			slog.Int("failed", len(errs)),
			slog.Int("total", len(stationIDs)),
			slog.String("field", string(field)),
		)
		if s.metrics != nil {
			s.metrics.RecordFanOutFailure()
		}
	}

	return errs
}
