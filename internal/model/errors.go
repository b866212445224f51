package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Codeはハンドラー境界でHTTPステータスへ変換し、レスポンスボディには
// Messageのみを {"error": ...} 形式で載せる。CategoryとActionはログ用。
type APIError struct {
	Code     string // エラーコード
	Message  string // ユーザー向けエラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法（ログにのみ記録）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeUserExists           = "USER_EXISTS"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeWrongAuthMethod      = "WRONG_AUTH_METHOD"
	ErrCodeOTPInvalidOrExpired  = "OTP_INVALID_OR_EXPIRED"
	ErrCodeOTPNotVerified       = "OTP_NOT_VERIFIED"
	ErrCodeOTPDeliveryFailed    = "OTP_DELIVERY_FAILED"
	ErrCodeAuthRequired         = "AUTH_REQUIRED"
	ErrCodeAdminRequired        = "ADMIN_REQUIRED"
	ErrCodeContentNotFound      = "CONTENT_NOT_FOUND"
	ErrCodeAnnouncementNotFound = "ANNOUNCEMENT_NOT_FOUND"
	ErrCodeRateLimited          = "RATE_LIMITED"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUserExistsError は連絡先の重複登録エラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
// ログインでは列挙攻撃対策のためこのエラーは使わず、
// NewInvalidCredentialsErrorに統一する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "メールアドレスを確認するか、新規登録してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// 未登録メールアドレスとパスワード誤りのどちらでも同一のメッセージを返し、
// アカウントの存在を推測させない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewWrongAuthMethodError は外部IdP登録ユーザーのパスワードログイン拒否エラーを生成する。
func NewWrongAuthMethodError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongAuthMethod,
		Message:  "このメールアドレスは外部アカウント連携で登録されています。外部アカウントでログインしてください。",
		Category: "auth",
		Action:   "外部アカウントのサインインを使用してください。",
	}
}

// NewOTPInvalidOrExpiredError はワンタイムコードの不一致・期限切れエラーを生成する。
func NewOTPInvalidOrExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPInvalidOrExpired,
		Message:  "確認コードが正しくないか、有効期限が切れています。",
		Category: "auth",
		Action:   "コードを再送して新しいコードを入力してください。",
	}
}

// NewOTPNotVerifiedError はパスワード再設定時の未検証コードエラーを生成する。
func NewOTPNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPNotVerified,
		Message:  "確認コードが検証されていないか、有効期限が切れています。",
		Category: "auth",
		Action:   "コードの検証からやり直してください。",
	}
}

// NewOTPDeliveryFailedError はコード配送失敗エラーを生成する。
// 自動リトライはせず、クライアントに再送を促す。
func NewOTPDeliveryFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPDeliveryFailed,
		Message:  "確認コードの送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってからコードを再送してください。",
	}
}

// NewAuthRequiredError は認証必須エンドポイントの未認証エラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewAdminRequiredError は管理者権限エラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "この操作には管理者権限が必要です。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewContentNotFoundError はコンテンツ未検出エラーを生成する。
func NewContentNotFoundError(contentID string) *APIError {
	return &APIError{
		Code:     ErrCodeContentNotFound,
		Message:  fmt.Sprintf("指定されたコンテンツが見つかりません: %s", contentID),
		Category: "catalog",
		Action:   "コンテンツIDを確認してください。",
	}
}

// NewAnnouncementNotFoundError はお知らせ未検出エラーを生成する。
func NewAnnouncementNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAnnouncementNotFound,
		Message:  fmt.Sprintf("指定されたお知らせが見つかりません: %s", id),
		Category: "catalog",
		Action:   "お知らせIDを確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		Category: "system",
		Action:   "時間をおいて再度お試しください。",
	}
}
