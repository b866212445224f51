// Package announcement はお知らせのドメインロジックを提供する。
// 本文HTMLはXSS対策として保存前にbluemondayでサニタイズする。
package announcement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/netfrix/backend/internal/model"
	"github.com/netfrix/backend/internal/repository"
)

// Service はお知らせのサービス層。
type Service struct {
	annRepo   repository.AnnouncementRepository
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// bluemondayのUGCPolicyを使い、scriptタグやイベント属性を本文から除去する。
func NewService(annRepo repository.AnnouncementRepository, logger *slog.Logger) *Service {
	return &Service{
		annRepo:   annRepo,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
		now:       time.Now,
	}
}

// ListActive は有効なお知らせを優先度順で返す。公開エンドポイント用。
func (s *Service) ListActive(ctx context.Context) ([]*model.Announcement, error) {
	items, err := s.annRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("お知らせ一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// List は非表示を含む全お知らせを返す。管理画面用。
func (s *Service) List(ctx context.Context) ([]*model.Announcement, error) {
	items, err := s.annRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("お知らせ一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// Input はお知らせ作成・更新の入力。
type Input struct {
	Title    string
	Body     string
	Type     model.AnnouncementType
	Priority model.AnnouncementPriority
	IsActive bool
}

func (in *Input) validate() error {
	if in.Title == "" {
		return model.NewValidationError("titleは必須です")
	}
	if !in.Type.Valid() {
		return model.NewValidationError("typeはinfo/warning/promoのいずれかを指定してください")
	}
	if !in.Priority.Valid() {
		return model.NewValidationError("priorityはlow/normal/highのいずれかを指定してください")
	}
	return nil
}

// Create は新しいお知らせを作成する。本文はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, in Input) (*model.Announcement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	ann := &model.Announcement{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Body:      s.sanitizer.Sanitize(in.Body),
		Type:      in.Type,
		Priority:  in.Priority,
		IsActive:  in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.annRepo.Create(ctx, ann); err != nil {
		return nil, fmt.Errorf("お知らせの作成に失敗しました: %w", err)
	}

	s.logger.Info("お知らせを作成しました",
		slog.String("announcement_id", ann.ID),
		slog.String("type", string(ann.Type)),
	)
	return ann, nil
}

// Update は既存のお知らせを入力の内容で置き換える。
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Announcement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ann, err := s.annRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("お知らせの取得に失敗しました: %w", err)
	}
	if ann == nil {
		return nil, model.NewAnnouncementNotFoundError(id)
	}

	ann.Title = in.Title
	ann.Body = s.sanitizer.Sanitize(in.Body)
	ann.Type = in.Type
	ann.Priority = in.Priority
	ann.IsActive = in.IsActive
	ann.UpdatedAt = s.now()

	if err := s.annRepo.Update(ctx, ann); err != nil {
		return nil, fmt.Errorf("お知らせの更新に失敗しました: %w", err)
	}
	return ann, nil
}

// Delete は指定IDのお知らせを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	ann, err := s.annRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("お知らせの取得に失敗しました: %w", err)
	}
	if ann == nil {
		return model.NewAnnouncementNotFoundError(id)
	}

	if err := s.annRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("お知らせの削除に失敗しました: %w", err)
	}
	return nil
}
