// Package progress は視聴進捗のドメインロジックを提供する。
// 進捗は認証済みユーザーIDまたは匿名訪問者IDのいずれかをキーに記録され、
// どちらのキーでも同じ操作が使える。
package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/netfrix/backend/internal/model"
	"github.com/netfrix/backend/internal/repository"
)

// Service は視聴進捗のサービス層。
type Service struct {
	progressRepo repository.ProgressRepository
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(progressRepo repository.ProgressRepository, logger *slog.Logger) *Service {
	return &Service{
		progressRepo: progressRepo,
		logger:       logger,
	}
}

// Report は(identity, content)キーの視聴位置を記録する。
// contentIDはUUID形式であること、secondsは非負であることを検証する。
// 小数はハンドラー側で秒へ切り捨て済みの値を受け取る。
// 同一キーへの記録は冪等で、常に最後の書き込みが残る。
func (s *Service) Report(ctx context.Context, identityID, contentID string, seconds int) error {
	if identityID == "" {
		return model.NewValidationError("識別子が空です")
	}
	if _, err := uuid.Parse(contentID); err != nil {
		return model.NewValidationError("contentIdの形式が不正です")
	}
	if seconds < 0 {
		return model.NewValidationError("timeは0以上である必要があります")
	}

	if err := s.progressRepo.Upsert(ctx, identityID, contentID, seconds); err != nil {
		return fmt.Errorf("進捗の保存に失敗しました: %w", err)
	}
	return nil
}

// Fetch は(identity, content)キーの視聴位置を秒で返す。
// レコードが存在しない場合はエラーではなく0を返し、
// 初回再生が常に先頭から始まるようにする。
func (s *Service) Fetch(ctx context.Context, identityID, contentID string) (int, error) {
	if identityID == "" || contentID == "" {
		return 0, model.NewValidationError("識別子が空です")
	}

	record, err := s.progressRepo.Find(ctx, identityID, contentID)
	if err != nil {
		return 0, fmt.Errorf("進捗の取得に失敗しました: %w", err)
	}
	if record == nil {
		return 0, nil
	}
	return record.Seconds, nil
}

// Merge は匿名訪問者IDの進捗を認証済みユーザーIDへ統合する。
// ログイン成功時に呼び、訪問者として記録された進捗を引き継ぐ。
// fromIDが空、または両IDが同一の場合は何もしない。失敗しても呼び出し側の
// 認証フローは継続できるよう、エラーはログに留める設計を想定している。
func (s *Service) Merge(ctx context.Context, fromID, toID string) error {
	if fromID == "" || fromID == toID {
		return nil
	}

	if err := s.progressRepo.MergeIdentity(ctx, fromID, toID); err != nil {
		return fmt.Errorf("進捗の統合に失敗しました: %w", err)
	}

	s.logger.Info("訪問者の進捗をユーザーへ統合しました",
		slog.String("user_id", toID),
	)
	return nil
}
