// Package otp はワンタイムコードの発行と検証のドメインロジックを提供する。
// コードは連絡先（メールアドレス）単位で管理し、発行・検証・再設定前提チェックの
// 状態機械を実装する。
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/netfrix/backend/internal/email"
	"github.com/netfrix/backend/internal/model"
	"github.com/netfrix/backend/internal/repository"
)

// codeDigits は認証コードの桁数。ゼロ埋め6桁の10進数文字列を使う。
const codeDigits = 6

// Service はワンタイムコードのサービス層。
type Service struct {
	otpRepo repository.OTPRepository
	sender  email.Sender
	expiry  time.Duration
	logger  *slog.Logger
	now     func() time.Time // テストで時刻を注入するためのフック
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(otpRepo repository.OTPRepository, sender email.Sender, expiry time.Duration, logger *slog.Logger) *Service {
	return &Service{
		otpRepo: otpRepo,
		sender:  sender,
		expiry:  expiry,
		logger:  logger,
		now:     time.Now,
	}
}

// Issue は連絡先に新しい認証コードを発行して配信する。
// 発行前に同一連絡先の未検証コードをすべて削除し、有効なコードを常に1件に保つ。
// 配信に失敗した場合は作成したレコードを取り消してエラーを返す。リトライはしない。
func (s *Service) Issue(ctx context.Context, contact string) error {
	if err := s.otpRepo.DeleteUnverifiedByContact(ctx, contact); err != nil {
		return fmt.Errorf("既存コードの削除に失敗しました: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("コードの生成に失敗しました: %w", err)
	}

	now := s.now()
	record := &model.OTPCode{
		ID:        uuid.New().String(),
		Contact:   contact,
		Method:    model.OTPMethodEmail,
		Code:      code,
		ExpiresAt: now.Add(s.expiry),
		Verified:  false,
		Attempts:  0,
		CreatedAt: now,
	}
	if err := s.otpRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("コードの保存に失敗しました: %w", err)
	}

	if err := s.sender.SendOTP(ctx, contact, code); err != nil {
		// 配信できなかったコードは検証不能なので取り消す
		if delErr := s.otpRepo.DeleteByID(ctx, record.ID); delErr != nil {
			s.logger.Warn("配信失敗コードの取り消しに失敗しました",
				slog.String("error", delErr.Error()),
			)
		}
		s.logger.Error("認証コードの配信に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.NewOTPDeliveryFailedError()
	}

	s.logger.Info("認証コードを発行しました",
		slog.String("contact", contact),
		slog.Time("expires_at", record.ExpiresAt),
	)
	return nil
}

// Verify は連絡先とコードの組を検証する。
// 一致するレコードが存在し期限内であれば検証済みにして成功を返す。
// 期限内の検証済みコードを再検証した場合も成功を返す（冪等）。
// 期限切れのコードは検証済みフラグが立っていても拒否する。
// 不一致・期限切れはいずれも同一のエラーで拒否し、区別を外部に漏らさない。
func (s *Service) Verify(ctx context.Context, contact, code string) error {
	record, err := s.otpRepo.FindByContactAndCode(ctx, contact, code)
	if err != nil {
		return fmt.Errorf("コードの検索に失敗しました: %w", err)
	}
	if record == nil {
		// 失敗試行を最新コードに記録する（監査用、拒否判定には使わない）
		if incErr := s.otpRepo.IncrementAttempts(ctx, contact); incErr != nil {
			s.logger.Warn("試行回数の記録に失敗しました",
				slog.String("error", incErr.Error()),
			)
		}
		return model.NewOTPInvalidOrExpiredError()
	}

	// 期限切れは検証済みフラグに関わらず拒否する。
	// 検証済みレコードを素通しすると、期限後もセッション発行に使い回せてしまう。
	if record.Expired(s.now()) {
		return model.NewOTPInvalidOrExpiredError()
	}

	// 期限内の再検証は成功扱い（確認メールの二重クリックなどで発生する）
	if record.Verified {
		return nil
	}

	if err := s.otpRepo.MarkVerified(ctx, record.ID); err != nil {
		return fmt.Errorf("検証済みフラグの更新に失敗しました: %w", err)
	}

	s.logger.Info("認証コードを検証しました",
		slog.String("contact", contact),
	)
	return nil
}

// CheckVerified は検証済みかつ期限内のコードが存在するか確認する。
// パスワード再設定の前提条件チェック用。存在しない場合はOTPNotVerifiedを返す。
func (s *Service) CheckVerified(ctx context.Context, contact, code string) (*model.OTPCode, error) {
	record, err := s.otpRepo.FindVerified(ctx, contact, code, s.now())
	if err != nil {
		return nil, fmt.Errorf("検証済みコードの検索に失敗しました: %w", err)
	}
	if record == nil {
		return nil, model.NewOTPNotVerifiedError()
	}
	return record, nil
}

// Consume は使用済みコードを削除する。パスワード再設定の完了時に呼ぶ。
func (s *Service) Consume(ctx context.Context, id string) error {
	if err := s.otpRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("使用済みコードの削除に失敗しました: %w", err)
	}
	return nil
}

// generateCode は暗号論的乱数からゼロ埋め6桁のコードを生成する。
func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
