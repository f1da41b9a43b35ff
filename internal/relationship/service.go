// Package relationship はフォロー関係とコラボレーション招待のドメインロジックを提供する。
package relationship

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/pocketnewz/internal/model"
	"github.com/hitoshi/pocketnewz/internal/repository"
)

// StationFinder はステーションの取得に必要なインターフェース。
type StationFinder interface {
	FindByID(ctx context.Context, id string) (*model.Station, error)
}

// FollowResult はtoggleFollowの結果を表す。
// 呼び出し側が再読み取りなしでローカル状態を同期できるよう、
// 更新後のフォロー中セットとフォロワー数を含む。
type FollowResult struct {
	Following     bool
	FollowingIDs  []string
	FollowerCount int
}

// Service はフォロー・コラボレーションのサービス層。
type Service struct {
	followRepo  repository.FollowRepository
	statsRepo   repository.StatsRepository
	stationRepo StationFinder
	collabRepo  repository.CollaborationRepository
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	followRepo repository.FollowRepository,
	statsRepo repository.StatsRepository,
	stationRepo StationFinder,
	collabRepo repository.CollaborationRepository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		followRepo:  followRepo,
		statsRepo:   statsRepo,
		stationRepo: stationRepo,
		collabRepo:  collabRepo,
		logger:      logger,
	}
}

// ToggleFollow はフォロー状態を冪等に反転する。
//
// 既にフォローしていればエッジを削除してフォロワー数を-1（0でクランプ）、
// していなければエッジを作成して+1する。同じ組で2回呼ぶと元の状態に戻る。
// 更新後のフォロー中セットとフォロワー数を返す。
func (s *Service) ToggleFollow(ctx context.Context, followerID, followID string) (*FollowResult, error) {
	if followerID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	if followID == "" {
		return nil, model.NewInvalidArgumentError("follow_idが空です")
	}
	if followerID == followID {
		return nil, model.NewInvalidArgumentError("自分自身はフォローできません")
	}

	exists, err := s.followRepo.Exists(ctx, followerID, followID)
	if err != nil {
		return nil, err
	}

	var following bool
	if exists {
		if err := s.followRepo.Delete(ctx, followerID, followID); err != nil {
			return nil, err
		}
		following = false
	} else {
		if err := s.followRepo.Create(ctx, followerID, followID); err != nil {
			return nil, err
		}
		following = true
	}

	delta := -1
	if following {
		delta = 1
	}
	found, err := s.statsRepo.AdjustCount(ctx, followID, repository.FieldFollowerCount, delta)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Warn("フォロー対象の統計ドキュメントが存在しません",
			slog.String("followed_id", followID),
		)
	}

	followingIDs, err := s.followRepo.ListFollowedIDs(ctx, followerID)
	if err != nil {
		return nil, err
	}

	var followerCount int
	if stats, err := s.statsRepo.FindByOwnerID(ctx, followID); err != nil {
		return nil, err
	} else if stats != nil {
		followerCount = stats.FollowerCount
	}

	return &FollowResult{
		Following:     following,
		FollowingIDs:  followingIDs,
		FollowerCount: followerCount,
	}, nil
}

// InviteContributor はステーションへのコラボレーター招待を冪等に処理する。
//
// (contributor, station)の組に既存のコラボレーション記録があればALREADY_EXISTSを
// 返して何も変更しない。なければ記録を作成し、そのパスを返す。
// 招待できるのはステーションの所有者のみで、ステーションはコラボレーション設定が
// 有効でなければならない。
func (s *Service) InviteContributor(ctx context.Context, ownerUID, contributorID, stationID string) (string, error) {
	if ownerUID == "" {
		return "", model.NewUnauthenticatedError()
	}
	if contributorID == "" {
		return "", model.NewInvalidArgumentError("contributor_idが空です")
	}
	if stationID == "" {
		return "", model.NewInvalidArgumentError("station_idが空です")
	}
	if contributorID == ownerUID {
		return "", model.NewInvalidArgumentError("所有者自身は招待できません")
	}

	station, err := s.stationRepo.FindByID(ctx, stationID)
	if err != nil {
		return "", err
	}
	if station == nil {
		return "", model.NewStationNotFoundError(stationID)
	}
	if station.OwnerID != ownerUID {
		return "", model.NewNotStationOwnerError(stationID)
	}
	if !station.IsCollaborative {
		return "", model.NewStationNotCollaborativeError(stationID)
	}

	existing, err := s.collabRepo.FindByContributorAndStation(ctx, contributorID, stationID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.Path(), model.NewAlreadyCollaboratorError(contributorID, stationID)
	}

	collab := &model.Collaboration{
		ID:            uuid.New().String(),
		StationID:     stationID,
		OwnerID:       ownerUID,
		ContributorID: contributorID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.collabRepo.Create(ctx, collab); err != nil {
		return "", err
	}

	s.logger.Info("コラボレーターを招待しました",
		slog.String("station_id", stationID),
		slog.String("contributor_id", contributorID),
	)

	return collab.Path(), nil
}
