// Package engagement はニュースごとのエンゲージメント集計ロジックを提供する。
//
// 視聴・共有・平均評価の3つの集計値を独立に維持する。
//   - 視聴: 認証済みパスでは視聴者ごとに最大1回。投稿者自身の視聴は拒否される。
//   - 共有: 呼び出しごとに無条件で+1。重複排除はしない。
//   - 平均評価: 同一raterの再評価は上書きし、全評価の算術平均を再計算する。
//
// 共有リンク経由の視聴（未認証パス）には投稿者除外も重複排除も適用されない。
// この非対称性は意図的に保存している（匿名アクセスでは視聴者を特定できない）。
package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/pocketnewz/internal/model"
	"github.com/hitoshi/pocketnewz/internal/repository"
)

// NewzFinder はニュースの取得に必要なインターフェース。
// repository.NewzRepositoryの部分集合として定義する。
type NewzFinder interface {
	FindByID(ctx context.Context, id string) (*model.NewzItem, error)
}

// Collector はエンゲージメント操作のメトリクス収集インターフェース。
type Collector interface {
	RecordViewRecorded()
	RecordShareRecorded()
	RecordRatingRecorded()
}

// Service はエンゲージメント集計のサービス層。
type Service struct {
	newzRepo    NewzFinder
	metricsRepo repository.MetricsRepository
	viewRepo    repository.ViewRepository
	ratingRepo  repository.RatingRepository
	maxRating   float64
	metrics     Collector
}

// NewService はServiceの新しいインスタンスを生成する。
// maxRatingが0以下の場合はmodel.DefaultMaxRatingを使用する。metricsはnilでもよい。
func NewService(
	newzRepo NewzFinder,
	metricsRepo repository.MetricsRepository,
	viewRepo repository.ViewRepository,
	ratingRepo repository.RatingRepository,
	maxRating float64,
	metrics Collector,
) *Service {
	if maxRating <= 0 {
		maxRating = model.DefaultMaxRating
	}
	return &Service{
		newzRepo:    newzRepo,
		metricsRepo: metricsRepo,
		viewRepo:    viewRepo,
		ratingRepo:  ratingRepo,
		maxRating:   maxRating,
		metrics:     metrics,
	}
}

// RecordView は認証済みユーザーの視聴を記録し、現在の視聴数を返す。
//
// 同一(viewer, newz)の組では最初の呼び出しのみ視聴数を増やす。
// 2回目以降は何も変更せず現在値をそのまま返す（seenは終端状態で巻き戻らない）。
// 投稿者自身による視聴はABORTEDで拒否され、視聴数は変化しない。
func (s *Service) RecordView(ctx context.Context, viewerID, newzID string) (int, error) {
	if viewerID == "" {
		return 0, model.NewUnauthenticatedError()
	}
	if newzID == "" {
		return 0, model.NewInvalidArgumentError("newz_idが空です")
	}

	item, err := s.newzRepo.FindByID(ctx, newzID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, model.NewNewzNotFoundError(newzID)
	}
	if item.OwnerID == viewerID {
		return 0, model.NewOwnerViewError()
	}

	first, err := s.viewRepo.MarkViewed(ctx, viewerID, newzID)
	if err != nil {
		return 0, err
	}

	if first {
		views, err := s.metricsRepo.IncrementViews(ctx, newzID)
		if err != nil {
			return 0, err
		}
		if s.metrics != nil {
			s.metrics.RecordViewRecorded()
		}
		return views, nil
	}

	// 視聴済み: 変更せず現在値を返す
	metrics, err := s.metricsRepo.FindByNewzID(ctx, newzID)
	if err != nil {
		return 0, err
	}
	if metrics == nil {
		return 0, model.NewNewzNotFoundError(newzID)
	}
	return metrics.Views, nil
}

// RecordSharedView は共有リンク経由（未認証）の視聴を記録し、現在の視聴数を返す。
// 対象が公開ニュースであれば常に視聴数を増やす。重複排除も投稿者除外も行わない。
func (s *Service) RecordSharedView(ctx context.Context, newzID string) (int, error) {
	if newzID == "" {
		return 0, model.NewInvalidArgumentError("newz_idが空です")
	}

	item, err := s.newzRepo.FindByID(ctx, newzID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, model.NewNewzNotFoundError(newzID)
	}
	if !item.IsPublic {
		return 0, model.NewNotPublicError(newzID)
	}

	views, err := s.metricsRepo.IncrementViews(ctx, newzID)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.RecordViewRecorded()
	}
	return views, nil
}

// RecordShare は共有を記録し、現在の共有数を返す。
// 共有は呼び出しごとに無条件で+1され、重複排除はしない。
func (s *Service) RecordShare(ctx context.Context, callerID, newzID string) (int, error) {
	if callerID == "" {
		return 0, model.NewUnauthenticatedError()
	}
	if newzID == "" {
		return 0, model.NewInvalidArgumentError("newz_idが空です")
	}

	item, err := s.newzRepo.FindByID(ctx, newzID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, model.NewNewzNotFoundError(newzID)
	}

	shares, err := s.metricsRepo.IncrementShares(ctx, newzID)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.RecordShareRecorded()
	}
	return shares, nil
}

// SubmitRating は評価を登録し、再計算後の平均評価を返す。
//
// 同一raterの既存評価は加算ではなく上書きされる。平均は現在存在する全評価の
// 算術平均として再計算される（rater数に比例した読み取りコスト）。
// 再計算中に他の評価が追加された場合、結果は各読み取り時点のスナップショットを
// 反映し、一貫したポイントインタイムビューではない。
func (s *Service) SubmitRating(ctx context.Context, raterID, newzID string, score float64) (float64, error) {
	if raterID == "" {
		return 0, model.NewUnauthenticatedError()
	}
	if newzID == "" {
		return 0, model.NewInvalidArgumentError("newz_idが空です")
	}
	if score <= 0 {
		return 0, model.NewInvalidArgumentError("評価値は0より大きい必要があります")
	}
	if score > s.maxRating {
		return 0, model.NewInvalidArgumentError("評価値が上限を超えています")
	}

	item, err := s.newzRepo.FindByID(ctx, newzID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, model.NewNewzNotFoundError(newzID)
	}

	rating := &model.Rating{
		NewzID:    newzID,
		RaterID:   raterID,
		Score:     score,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.ratingRepo.Upsert(ctx, rating); err != nil {
		return 0, err
	}

	scores, err := s.ratingRepo.ListScores(ctx, newzID)
	if err != nil {
		return 0, err
	}

	avg := Mean(scores)
	if err := s.metricsRepo.UpdateAvgRating(ctx, newzID, avg); err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.RecordRatingRecorded()
	}

	slog.Debug("平均評価を再計算しました",
		slog.String("newz_id", newzID),
		slog.Int("raters", len(scores)),
		slog.Float64("avg", avg),
	)

	return avg, nil
}

// Mean は評価値の算術平均を返す。空の場合は0を返す。
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
