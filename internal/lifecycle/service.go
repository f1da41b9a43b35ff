// Package lifecycle はエンティティのライフサイクル処理を提供する。
//
// IdPからのアイデンティティイベント、ステーションとニュースの作成・削除、
// コメント投稿を担当する。各イベントの正本ハンドラーはこのパッケージの
// 1メソッドのみであり、同一イベントを複数の経路で処理することはない。
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/pocketnewz/internal/blob"
	"github.com/hitoshi/pocketnewz/internal/email"
	"github.com/hitoshi/pocketnewz/internal/engagement"
	"github.com/hitoshi/pocketnewz/internal/model"
	"github.com/hitoshi/pocketnewz/internal/repository"
)

// avatarPrefix はミラーされたプロフィール画像のルートプレフィックス。
const avatarPrefix = "Avatars"

// maxAvatarSize はミラー取得するプロフィール画像の最大サイズ。
const maxAvatarSize = 5 * 1024 * 1024

// welcomeTemplateID はウェルカムメールのテンプレートID。
const welcomeTemplateID = "welcome-newzer"

// Counter は非正規化カウンターの維持インターフェース。
// counter.Serviceの部分集合として定義する。
type Counter interface {
	OnChildCreated(ctx context.Context, ownerID string, field repository.CounterField)
	OnChildDeleted(ctx context.Context, ownerID string, field repository.CounterField)
	FanOutStationCounts(ctx context.Context, stationIDs []string, field repository.CounterField, delta int) []error
}

// Sanitizer はユーザー投稿コンテンツのサニタイズインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
	SanitizeComment(raw string) string
}

// URLValidator は外部URL取得前の安全性検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// EmailSender はfire-and-forgetのメール送信インターフェース。
// email.Clientの部分集合として定義する。
type EmailSender interface {
	SendAsync(msg email.Message)
}

// Collector はライフサイクル処理のメトリクス収集インターフェース。
type Collector interface {
	RecordIdentityEvent(eventType string)
	RecordLifecycleFailure(operation string)
}

// ServiceConfig はライフサイクルサービスの設定。
type ServiceConfig struct {
	EmailFrom         string // ウェルカムメールの送信元アドレス
	WelcomeTemplateID string // ウェルカムメールのテンプレートID。空の場合はデフォルト値を使用する
}

// Service はライフサイクル処理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	stationRepo repository.StationRepository
	newzRepo    repository.NewzRepository
	metricsRepo repository.MetricsRepository
	ratingRepo  repository.RatingRepository
	viewRepo    repository.ViewRepository
	followRepo  repository.FollowRepository
	collabRepo  repository.CollaborationRepository
	commentRepo repository.CommentRepository

	counter    Counter
	sanitizer  Sanitizer
	blobStore  blob.Store
	urlGuard   URLValidator
	httpClient *http.Client
	email      EmailSender
	logger     *slog.Logger
	metrics    Collector
	config     ServiceConfig
}

// Deps はServiceの依存をまとめる。
type Deps struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	StationRepo repository.StationRepository
	NewzRepo    repository.NewzRepository
	MetricsRepo repository.MetricsRepository
	RatingRepo  repository.RatingRepository
	ViewRepo    repository.ViewRepository
	FollowRepo  repository.FollowRepository
	CollabRepo  repository.CollaborationRepository
	CommentRepo repository.CommentRepository

	Counter    Counter
	Sanitizer  Sanitizer
	BlobStore  blob.Store
	URLGuard   URLValidator
	HTTPClient *http.Client
	Email      EmailSender
	Logger     *slog.Logger
	Metrics    Collector
	Config     ServiceConfig
}

// NewService はServiceを生成する。MetricsとEmailはnilでもよい。
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Service{
		userRepo:    deps.UserRepo,
		sessionRepo: deps.SessionRepo,
		stationRepo: deps.StationRepo,
		newzRepo:    deps.NewzRepo,
		metricsRepo: deps.MetricsRepo,
		ratingRepo:  deps.RatingRepo,
		viewRepo:    deps.ViewRepo,
		followRepo:  deps.FollowRepo,
		collabRepo:  deps.CollabRepo,
		commentRepo: deps.CommentRepo,
		counter:     deps.Counter,
		sanitizer:   deps.Sanitizer,
		blobStore:   deps.BlobStore,
		urlGuard:    deps.URLGuard,
		httpClient:  httpClient,
		email:       deps.Email,
		logger:      logger,
		metrics:     deps.Metrics,
		config:      deps.Config,
	}
}

// OnIdentityCreated はアイデンティティ作成イベントを処理する。
// ユーザー行とゼロ初期化されたnewzer_statsを同一トランザクションで作成し、
// プロフィール画像をブロブストレージへミラーし、ウェルカムメールを送信する。
// Webhookのバックグラウンド処理であるため、失敗はログに記録するのみで
// 呼び出し元には返さない。
func (s *Service) OnIdentityCreated(ctx context.Context, event *model.IdentityEvent) {
	if s.metrics != nil {
		s.metrics.RecordIdentityEvent(string(event.Type))
	}

	now := time.Now()
	user := &model.User{
		ID:         event.UserID,
		Email:      event.Email,
		Name:       event.Name,
		GivenName:  event.GivenName,
		FamilyName: event.FamilyName,
		PhotoURL:   event.PhotoURL,
		Phone:      event.Phone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.userRepo.CreateWithStats(ctx, user); err != nil {
		s.logFailure("identity_created", err, slog.String("user_id", event.UserID))
		return
	}

	s.logger.Info("newzer created",
		slog.String("user_id", event.UserID),
		slog.String("email", event.Email),
	)

	if event.PhotoURL != "" {
		if err := s.mirrorAvatar(ctx, event.UserID, event.PhotoURL); err != nil {
			s.logFailure("avatar_mirror", err, slog.String("user_id", event.UserID))
		}
	}

	if s.email != nil && event.Email != "" {
		templateID := s.config.WelcomeTemplateID
		if templateID == "" {
			templateID = welcomeTemplateID
		}
		s.email.SendAsync(email.Message{
			To:         event.Email,
			From:       s.config.EmailFrom,
			Subject:    "PocketNewzへようこそ",
			TemplateID: templateID,
			TemplateData: map[string]string{
				"name": event.Name,
			},
		})
	}
}

// OnIdentityDeleted はアイデンティティ削除イベントを処理する。
// ユーザーのニュース、ステーション、フォロー、視聴記録、評価、セッション、
// 統計、ユーザー行、メディアプレフィックスを連鎖的に削除する。
// 失敗はログに記録するのみで処理を継続する。
func (s *Service) OnIdentityDeleted(ctx context.Context, event *model.IdentityEvent) {
	if s.metrics != nil {
		s.metrics.RecordIdentityEvent(string(event.Type))
	}
	userID := event.UserID

	// ニュースは1件ずつDeleteNewzと同じ経路で削除し、
	// ステーションカウンターとメディアを正しく巻き戻す。
	newzIDs, err := s.newzRepo.ListIDsByOwner(ctx, userID)
	if err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}
	for _, newzID := range newzIDs {
		if err := s.removeNewz(ctx, userID, newzID); err != nil {
			s.logFailure("identity_deleted", err,
				slog.String("user_id", userID),
				slog.String("newz_id", newzID),
			)
		}
	}

	// ステーション削除。station_refsはCASCADEで消える。
	stationIDs, err := s.stationRepo.ListIDsByOwner(ctx, userID)
	if err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}
	for _, stationID := range stationIDs {
		if err := s.stationRepo.DeleteByID(ctx, stationID); err != nil {
			s.logFailure("identity_deleted", err,
				slog.String("user_id", userID),
				slog.String("station_id", stationID),
			)
		}
	}

	// フォロー解除。フォローしていた相手のフォロワー数を減算してからエッジを消す。
	followedIDs, err := s.followRepo.ListFollowedIDs(ctx, userID)
	if err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}
	for _, followedID := range followedIDs {
		s.counter.OnChildDeleted(ctx, followedID, repository.FieldFollowerCount)
	}
	if err := s.followRepo.DeleteByUserID(ctx, userID); err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}

	// 評価の削除。影響を受けたニュースの平均を再計算する。
	ratedIDs, err := s.ratingRepo.ListNewzIDsByRater(ctx, userID)
	if err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}
	if err := s.ratingRepo.DeleteByRater(ctx, userID); err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}
	for _, newzID := range ratedIDs {
		scores, err := s.ratingRepo.ListScores(ctx, newzID)
		if err != nil {
			s.logFailure("identity_deleted", err, slog.String("newz_id", newzID))
			continue
		}
		if err := s.metricsRepo.UpdateAvgRating(ctx, newzID, engagement.Mean(scores)); err != nil {
			s.logFailure("identity_deleted", err, slog.String("newz_id", newzID))
		}
	}

	if err := s.viewRepo.DeleteByViewer(ctx, userID); err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}

	// ユーザー行の削除。newzer_statsとsessionsはCASCADEで消える。
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		s.logFailure("identity_deleted", err, slog.String("user_id", userID))
	}

	if s.blobStore != nil {
		if err := s.blobStore.DeleteByPrefix(ctx, avatarPrefix+"/"+userID); err != nil {
			s.logFailure("identity_deleted", err, slog.String("user_id", userID))
		}
	}

	s.logger.Info("newzer deleted", slog.String("user_id", userID))
}

// CreateStation はステーションと非正規化station_refを作成し、
// 所有者のstation_countを+1する。
func (s *Service) CreateStation(ctx context.Context, ownerID, title string, isPublic, isCollaborative bool) (*model.Station, error) {
	if ownerID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	title = s.sanitizer.SanitizeText(title)
	if title == "" {
		return nil, model.NewInvalidArgumentError("title is required")
	}

	now := time.Now()
	station := &model.Station{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Title:           title,
		IsPublic:        isPublic,
		IsCollaborative: isCollaborative,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.stationRepo.CreateWithRef(ctx, station); err != nil {
		return nil, fmt.Errorf("failed to create station: %w", err)
	}

	s.counter.OnChildCreated(ctx, ownerID, repository.FieldStationCount)

	s.logger.Info("station created",
		slog.String("station_id", station.ID),
		slog.String("owner_id", ownerID),
	)
	return station, nil
}

// DeleteStation はステーションを削除し、所有者のstation_countを-1する。
// 所有者以外の削除は拒否される。
func (s *Service) DeleteStation(ctx context.Context, callerID, stationID string) error {
	if callerID == "" {
		return model.NewUnauthenticatedError()
	}
	if stationID == "" {
		return model.NewInvalidArgumentError("station ID is required")
	}

	station, err := s.stationRepo.FindByID(ctx, stationID)
	if err != nil {
		return fmt.Errorf("failed to find station: %w", err)
	}
	if station == nil {
		return model.NewStationNotFoundError(stationID)
	}
	if station.OwnerID != callerID {
		return model.NewNotStationOwnerError(stationID)
	}

	if err := s.stationRepo.DeleteByID(ctx, stationID); err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}

	s.counter.OnChildDeleted(ctx, callerID, repository.FieldStationCount)

	s.logger.Info("station deleted",
		slog.String("station_id", stationID),
		slog.String("owner_id", callerID),
	)
	return nil
}

// CreateNewzRequest はニュース作成の入力を表す。
// OwnerIDが空の場合は投稿者自身が所有者になる。
type CreateNewzRequest struct {
	OwnerID    string
	Title      string
	Caption    string
	IsPublic   bool
	StationIDs []string
	UploadDate time.Time
}

// CreateNewz はニュースを作成する。
// タイトルとキャプションはサニタイズされ、本体・ステーションリンク・
// ゼロ初期化メトリクスが同一トランザクションで書き込まれる。
// 所有者のnewz_countを+1し、リンクされた各ステーションのnewz_countへ+1をファンアウトする。
func (s *Service) CreateNewz(ctx context.Context, posterID string, req CreateNewzRequest) (*model.NewzItem, error) {
	if posterID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	title := s.sanitizer.SanitizeText(req.Title)
	if title == "" {
		return nil, model.NewInvalidArgumentError("title is required")
	}
	caption := s.sanitizer.SanitizeText(req.Caption)

	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = posterID
	}

	// リンク先ステーションの検証。他人のステーションへは
	// コラボレーション許可がある場合のみ投稿できる。
	for _, stationID := range req.StationIDs {
		station, err := s.stationRepo.FindByID(ctx, stationID)
		if err != nil {
			return nil, fmt.Errorf("failed to find station: %w", err)
		}
		if station == nil {
			return nil, model.NewStationNotFoundError(stationID)
		}
		if station.OwnerID == posterID {
			continue
		}
		if !station.IsCollaborative {
			return nil, model.NewStationNotCollaborativeError(stationID)
		}
		collab, err := s.collabRepo.FindByContributorAndStation(ctx, posterID, stationID)
		if err != nil {
			return nil, fmt.Errorf("failed to find collaboration: %w", err)
		}
		if collab == nil {
			return nil, model.NewStationNotCollaborativeError(stationID)
		}
	}

	uploadDate := req.UploadDate
	if uploadDate.IsZero() {
		uploadDate = time.Now()
	}

	item := &model.NewzItem{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		PosterID:   posterID,
		Title:      title,
		Caption:    caption,
		IsPublic:   req.IsPublic,
		UploadDate: uploadDate,
		StationIDs: req.StationIDs,
		CreatedAt:  time.Now(),
	}

	if err := s.newzRepo.CreateWithMetrics(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create newz: %w", err)
	}

	s.counter.OnChildCreated(ctx, ownerID, repository.FieldNewzCount)
	s.counter.FanOutStationCounts(ctx, req.StationIDs, repository.FieldNewzCount, 1)

	s.logger.Info("newz created",
		slog.String("newz_id", item.ID),
		slog.String("owner_id", ownerID),
		slog.String("poster_id", posterID),
		slog.Int("stations", len(req.StationIDs)),
	)
	return item, nil
}

// DeleteNewz はニュースを削除する。所有者または投稿者のみが削除できる。
// メトリクス・評価・視聴記録・コメント・ステーションリンクはCASCADE削除され、
// メディアプレフィックスが消去され、カウンターが巻き戻される。
func (s *Service) DeleteNewz(ctx context.Context, callerID, newzID string) error {
	if callerID == "" {
		return model.NewUnauthenticatedError()
	}
	if newzID == "" {
		return model.NewInvalidArgumentError("newz ID is required")
	}

	item, err := s.newzRepo.FindByID(ctx, newzID)
	if err != nil {
		return fmt.Errorf("failed to find newz: %w", err)
	}
	if item == nil {
		return model.NewNewzNotFoundError(newzID)
	}
	if item.OwnerID != callerID && item.PosterID != callerID {
		return model.NewNotNewzOwnerError(newzID)
	}

	if err := s.removeNewz(ctx, item.OwnerID, newzID); err != nil {
		return err
	}

	s.logger.Info("newz deleted",
		slog.String("newz_id", newzID),
		slog.String("caller_id", callerID),
	)
	return nil
}

// removeNewz はニュース削除の共通経路。
// ステーションセットの収集、本体削除、メディア消去、カウンター巻き戻しを行う。
func (s *Service) removeNewz(ctx context.Context, ownerID, newzID string) error {
	stationIDs, err := s.newzRepo.StationIDs(ctx, newzID)
	if err != nil {
		return fmt.Errorf("failed to collect station links: %w", err)
	}

	if err := s.newzRepo.DeleteByID(ctx, newzID); err != nil {
		return fmt.Errorf("failed to delete newz: %w", err)
	}

	if s.blobStore != nil {
		if err := s.blobStore.DeleteByPrefix(ctx, blob.NewzAssetPrefix(newzID)); err != nil {
			s.logFailure("newz_media_delete", err, slog.String("newz_id", newzID))
		}
	}

	s.counter.OnChildDeleted(ctx, ownerID, repository.FieldNewzCount)
	s.counter.FanOutStationCounts(ctx, stationIDs, repository.FieldNewzCount, -1)

	return nil
}

// AddComment はニュースへコメントを投稿する。本文はサニタイズされる。
func (s *Service) AddComment(ctx context.Context, authorID, newzID, body string) (*model.Comment, error) {
	if authorID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	if newzID == "" {
		return nil, model.NewInvalidArgumentError("newz ID is required")
	}
	body = s.sanitizer.SanitizeComment(body)
	if body == "" {
		return nil, model.NewInvalidArgumentError("comment body is required")
	}

	item, err := s.newzRepo.FindByID(ctx, newzID)
	if err != nil {
		return nil, fmt.Errorf("failed to find newz: %w", err)
	}
	if item == nil {
		return nil, model.NewNewzNotFoundError(newzID)
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		NewzID:    newzID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// ListComments はニュースのコメント一覧を作成日時昇順で返す。
func (s *Service) ListComments(ctx context.Context, newzID string) ([]*model.Comment, error) {
	if newzID == "" {
		return nil, model.NewInvalidArgumentError("newz ID is required")
	}

	item, err := s.newzRepo.FindByID(ctx, newzID)
	if err != nil {
		return nil, fmt.Errorf("failed to find newz: %w", err)
	}
	if item == nil {
		return nil, model.NewNewzNotFoundError(newzID)
	}

	comments, err := s.commentRepo.ListByNewzID(ctx, newzID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// mirrorAvatar はIdPのプロフィール画像をブロブストレージへミラーする。
// URLはSSRFガードで事前検証され、取得はサイズ上限付きで行う。
func (s *Service) mirrorAvatar(ctx context.Context, userID, photoURL string) error {
	if s.blobStore == nil {
		return nil
	}
	if s.urlGuard != nil {
		if err := s.urlGuard.ValidateURL(photoURL); err != nil {
			return fmt.Errorf("unsafe photo URL: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create avatar request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("avatar fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarSize))
	if err != nil {
		return fmt.Errorf("failed to read avatar body: %w", err)
	}

	path := avatarPrefix + "/" + userID + "/profile"
	if _, err := s.blobStore.Put(ctx, path, data); err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}

	s.logger.Info("avatar mirrored",
		slog.String("user_id", userID),
		slog.Int("size", len(data)),
	)
	return nil
}

func (s *Service) logFailure(operation string, err error, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("operation", operation), slog.String("error", err.Error()))
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.Error("ライフサイクル処理に失敗しました", args...)
	if s.metrics != nil {
		s.metrics.RecordLifecycleFailure(operation)
	}
}
