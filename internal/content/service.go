// Package content はカタログエントリのドメインロジックを提供する。
package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/netfrix/backend/internal/model"
	"github.com/netfrix/backend/internal/repository"
)

// Service はカタログのサービス層。
// 閲覧は全員に開放し、作成・更新・削除は管理者のみがハンドラー側で呼ぶ。
type Service struct {
	contentRepo repository.ContentRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(contentRepo repository.ContentRepository, logger *slog.Logger) *Service {
	return &Service{
		contentRepo: contentRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Get は指定IDのコンテンツを取得する。存在しない場合はContentNotFoundを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Content, error) {
	content, err := s.contentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("コンテンツの取得に失敗しました: %w", err)
	}
	if content == nil {
		return nil, model.NewContentNotFoundError(id)
	}
	return content, nil
}

// List は全コンテンツを作成日時の降順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Content, error) {
	contents, err := s.contentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("コンテンツ一覧の取得に失敗しました: %w", err)
	}
	return contents, nil
}

// CreateInput はコンテンツ作成・更新の入力。
type CreateInput struct {
	Title       string
	Kind        model.ContentKind
	Description string
	PosterURL   string
	Seasons     []model.Season
}

// validate は入力の業務的な妥当性を検証する。
func (in *CreateInput) validate() error {
	if in.Title == "" {
		return model.NewValidationError("titleは必須です")
	}
	if !in.Kind.Valid() {
		return model.NewValidationError("kindはmovieまたはseriesを指定してください")
	}
	if in.Kind == model.ContentKindMovie && len(in.Seasons) > 0 {
		return model.NewValidationError("movieにseasonsは指定できません")
	}
	return nil
}

// Create は新しいコンテンツを作成する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Content, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	content := &model.Content{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Kind:        in.Kind,
		Description: in.Description,
		PosterURL:   in.PosterURL,
		Seasons:     in.Seasons,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.contentRepo.Create(ctx, content); err != nil {
		return nil, fmt.Errorf("コンテンツの作成に失敗しました: %w", err)
	}

	s.logger.Info("コンテンツを作成しました",
		slog.String("content_id", content.ID),
		slog.String("kind", string(content.Kind)),
	)
	return content, nil
}

// Update は既存コンテンツを入力の内容で置き換える。
func (s *Service) Update(ctx context.Context, id string, in CreateInput) (*model.Content, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	content, err := s.contentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("コンテンツの取得に失敗しました: %w", err)
	}
	if content == nil {
		return nil, model.NewContentNotFoundError(id)
	}

	content.Title = in.Title
	content.Kind = in.Kind
	content.Description = in.Description
	content.PosterURL = in.PosterURL
	content.Seasons = in.Seasons
	content.UpdatedAt = s.now()

	if err := s.contentRepo.Update(ctx, content); err != nil {
		return nil, fmt.Errorf("コンテンツの更新に失敗しました: %w", err)
	}
	return content, nil
}

// Delete は指定IDのコンテンツを削除する。
// 視聴進捗レコードは消さずに残す（コンテンツ復活時に進捗が戻る）。
func (s *Service) Delete(ctx context.Context, id string) error {
	content, err := s.contentRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("コンテンツの取得に失敗しました: %w", err)
	}
	if content == nil {
		return model.NewContentNotFoundError(id)
	}

	if err := s.contentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("コンテンツの削除に失敗しました: %w", err)
	}

	s.logger.Info("コンテンツを削除しました",
		slog.String("content_id", id),
	)
	return nil
}
