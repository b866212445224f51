package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/netfrix/backend/internal/model"
	"github.com/netfrix/backend/internal/repository"
)

// isUniqueViolation はPostgreSQLの一意制約違反（SQLSTATE 23505）か判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// OTPFlow はワンタイムコードの発行・検証インターフェース。
type OTPFlow interface {
	// Issue は連絡先に新しいコードを発行して配信する。
	Issue(ctx context.Context, contact string) error
	// Verify は連絡先とコードの組を検証する。
	Verify(ctx context.Context, contact, code string) error
	// CheckVerified は検証済みかつ期限内のコードを取得する。
	CheckVerified(ctx context.Context, contact, code string) (*model.OTPCode, error)
	// Consume は使用済みコードを削除する。
	Consume(ctx context.Context, id string) error
}

// OAuthUserInfo は外部IdPから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider は外部IdPによる認証のインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はIdPの認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// Service は認証フローのオーケストレーター。
// サインアップ・ログイン・コード検証・パスワード再設定を調停する。
// ここではセッションは発行せず、コード検証の成功後に初めてトークンを発行する。
type Service struct {
	userRepo repository.UserRepository
	otp      OTPFlow
	issuer   *TokenIssuer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, otp OTPFlow, issuer *TokenIssuer, logger *slog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		otp:      otp,
		issuer:   issuer,
		logger:   logger,
		now:      time.Now,
	}
}

// Signup は新規ユーザーを未検証状態で作成し、確認コードを発行する。
// 同一メールアドレスのユーザーが既に存在する場合はUserExistsを返す。
// セッションはこの時点では発行しない。
func (s *Service) Signup(ctx context.Context, email, password, name string) error {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return model.NewUserExistsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         model.RoleUser,
		IsVerified:   false,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// 存在チェックと作成の間に同一メールアドレスの並行登録が割り込んだ場合
		if isUniqueViolation(err) {
			return model.NewUserExistsError()
		}
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.logger.Info("ユーザーを作成しました",
		slog.String("user_id", user.ID),
	)

	return s.otp.Issue(ctx, email)
}

// Login はパスワードを照合し、成功時に確認コードを発行する。
// 未知のメールアドレスとパスワード不一致は同一のエラーを返し、
// アカウントの存在を外部から判別できないようにする。
// パスワードハッシュを持たないユーザー（外部IdP経由）はWrongAuthMethodで拒否する。
func (s *Service) Login(ctx context.Context, email, password string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewInvalidCredentialsError()
	}

	if user.PasswordHash == "" {
		return model.NewWrongAuthMethodError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.NewInvalidCredentialsError()
	}

	if err := s.userRepo.UpdateLastLogin(ctx, email, s.now()); err != nil {
		return fmt.Errorf("最終ログイン時刻の更新に失敗しました: %w", err)
	}

	return s.otp.Issue(ctx, email)
}

// VerifyAndIssueSession は確認コードを検証し、セッショントークンを発行する。
// 初回検証時はユーザーの所有確認フラグも立てる。
// コード不一致・期限切れ・ユーザー不在はいずれもInvalidOrExpiredで拒否する。
func (s *Service) VerifyAndIssueSession(ctx context.Context, email, code string) (*model.User, string, error) {
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		// コードは合っているがユーザーレコードがない異常系。詳細は漏らさない
		return nil, "", model.NewOTPInvalidOrExpiredError()
	}

	if !user.IsVerified {
		if err := s.userRepo.MarkVerified(ctx, email); err != nil {
			return nil, "", fmt.Errorf("所有確認フラグの更新に失敗しました: %w", err)
		}
		user.IsVerified = true
	}

	token, err := s.issuer.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("セッションを発行しました",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, token, nil
}

// ForgotPassword はパスワード再設定用の確認コードを発行する。
// 未知のメールアドレスはUserNotFoundを返す（再設定フローは存在確認を許容する）。
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if user.PasswordHash == "" {
		// 外部IdPユーザーには再設定すべきパスワードがない
		return model.NewWrongAuthMethodError()
	}

	return s.otp.Issue(ctx, email)
}

// ResetPassword は検証済みコードを前提条件としてパスワードを差し替える。
// 使用したコードは完了時に削除し、再利用を防ぐ。
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	record, err := s.otp.CheckVerified(ctx, email, code)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}

	if err := s.otp.Consume(ctx, record.ID); err != nil {
		s.logger.Warn("使用済みコードの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("パスワードを再設定しました",
		slog.String("user_id", user.ID),
	)
	return nil
}

// LoginWithOAuth は外部IdPで認証済みのユーザー情報からセッショントークンを発行する。
// 未知のメールアドレスの場合はパスワードハッシュを持たないユーザーを自動作成する。
// IdPがメールアドレスの所有を確認済みのため、コード検証は経由せず、
// 作成時点で所有確認フラグを立てる。このユーザーはパスワードログインできず、
// LoginではWrongAuthMethodで拒否される。
func (s *Service) LoginWithOAuth(ctx context.Context, info *OAuthUserInfo) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, info.Email)
	if err != nil {
		return nil, "", fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	if user == nil {
		now := s.now()
		user = &model.User{
			ID:         uuid.New().String(),
			Email:      info.Email,
			Name:       info.Name,
			Role:       model.RoleUser,
			IsVerified: true,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			if isUniqueViolation(err) {
				// 同一メールアドレスの並行ログインが先に作成した場合は既存レコードを使う
				user, err = s.userRepo.FindByEmail(ctx, info.Email)
				if err != nil || user == nil {
					return nil, "", fmt.Errorf("並行作成されたユーザーの再取得に失敗しました: %w", err)
				}
			} else {
				return nil, "", fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
			}
		} else {
			s.logger.Info("外部IdP経由でユーザーを作成しました",
				slog.String("user_id", user.ID),
				slog.String("provider", info.Provider),
			)
		}
	}

	if err := s.userRepo.UpdateLastLogin(ctx, info.Email, s.now()); err != nil {
		return nil, "", fmt.Errorf("最終ログイン時刻の更新に失敗しました: %w", err)
	}

	token, err := s.issuer.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("外部IdP経由でセッションを発行しました",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user, token, nil
}
