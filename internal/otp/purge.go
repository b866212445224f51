package otp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/netfrix/backend/internal/repository"
)

// PurgeJob は期限切れワンタイムコードの自動削除ジョブ。
// 正しさは読み取り時の期限判定で担保されるため、これはストレージ衛生のみを目的とする。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type PurgeJob struct {
	otpRepo repository.OTPRepository
	logger  *slog.Logger
}

// NewPurgeJob は新しいPurgeJobを生成する。
func NewPurgeJob(otpRepo repository.OTPRepository, logger *slog.Logger) *PurgeJob {
	return &PurgeJob{
		otpRepo: otpRepo,
		logger:  logger,
	}
}

// Run は期限切れコードを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *PurgeJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.otpRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error("期限切れコードのパージに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れコードのパージに失敗: %w", err)
	}

	j.logger.Info("期限切れコードのパージが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
